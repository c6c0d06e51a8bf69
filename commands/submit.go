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
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hpcops/slurmsub/slurm"
)

func init() {
	var monitor bool
	submitCmd := &cobra.Command{
		Use:   "submit <descriptor.yaml> [<descriptor.yaml>...]",
		Short: "Submit one or more job descriptors",
		Long: `Submit renders each descriptor into a batch script and hands it to the scheduler.
Each descriptor is an independent submission, the same file can be submitted several times.`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig()
			client, err := slurm.GetClient(cfg)
			if err != nil {
				return err
			}

			results := make([]*slurm.SubmissionResult, len(args))
			for i, descriptorPath := range args {
				job, err := slurm.LoadJob(descriptorPath)
				if err != nil {
					return err
				}
				res, err := slurm.Submit(client, cfg, job)
				if err != nil {
					return errors.Wrapf(err, "failed to submit %q", descriptorPath)
				}
				fmt.Printf("Submitted batch job %s (%s)\n", res.JobID, res.JobName)
				results[i] = res
			}

			if !monitor {
				return nil
			}
			// each job gets its own runner, SSH sessions can't be shared
			// across goroutines
			g, gCtx := errgroup.WithContext(cmd.Context())
			for _, res := range results {
				res := res
				g.Go(func() error {
					monitorClient, err := slurm.GetClient(cfg)
					if err != nil {
						return err
					}
					return slurm.MonitorJob(gCtx, monitorClient, cfg, res, func(file, content string) {
						fmt.Fprint(os.Stdout, content)
					})
				})
			}
			return g.Wait()
		},
	}
	submitCmd.Flags().BoolVarP(&monitor, "monitor", "m", false, "Wait for the jobs to finish, streaming their logs")
	RootCmd.AddCommand(submitCmd)
}
