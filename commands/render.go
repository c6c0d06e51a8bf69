// Copyright 2018 Bull S.A.S. Atos Technologies - Bull, Rue Jean Jaures, B.P.68, 78340, Les Clayes-sous-Bois, France.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package commands

import (
	"fmt"
	"io/ioutil"

	"github.com/spf13/cobra"

	"github.com/hpcops/slurmsub/slurm"
)

func init() {
	var outputFile string
	renderCmd := &cobra.Command{
		Use:          "render <descriptor.yaml>",
		Short:        "Render the batch script of a job descriptor without submitting it",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := slurm.LoadJob(args[0])
			if err != nil {
				return err
			}
			job.ApplyDefaults(getConfig())
			script, err := slurm.RenderScript(job)
			if err != nil {
				return err
			}
			if outputFile != "" {
				return ioutil.WriteFile(outputFile, []byte(script), 0755)
			}
			fmt.Print(script)
			return nil
		},
	}
	renderCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the script to a file instead of stdout")
	RootCmd.AddCommand(renderCmd)
}
