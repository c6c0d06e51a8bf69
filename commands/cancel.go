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

	"github.com/spf13/cobra"

	"github.com/hpcops/slurmsub/slurm"
)

func init() {
	cancelCmd := &cobra.Command{
		Use:          "cancel <job-id> [<job-id>...]",
		Short:        "Cancel submitted jobs",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := slurm.GetClient(getConfig())
			if err != nil {
				return err
			}
			for _, jobID := range args {
				if err := slurm.CancelJob(client, jobID); err != nil {
					return err
				}
				fmt.Printf("Cancellation of job %s requested\n", jobID)
			}
			return nil
		},
	}
	RootCmd.AddCommand(cancelCmd)
}
