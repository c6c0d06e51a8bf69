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
	"strings"

	humanize "github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hpcops/slurmsub/helper/tabutil"
	"github.com/hpcops/slurmsub/slurm"
)

func init() {
	var byName bool
	var noColor bool
	statusCmd := &cobra.Command{
		Use:          "status <job-id> [<job-id>...]",
		Short:        "Show the queue state of submitted jobs",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			colorize := !noColor
			client, err := slurm.GetClient(getConfig())
			if err != nil {
				return err
			}

			table := tabutil.NewTable()
			table.AddHeaders("Job", "Name", "State", "Partition", "Nodes", "Submitted")
			for _, arg := range args {
				jobID, jobName := arg, ""
				if byName {
					jobID, jobName = "", arg
				}
				status, err := slurm.GetJobStatus(client, jobID, jobName)
				if err != nil {
					if !slurm.IsNoJobFoundError(err) {
						return err
					}
					table.AddRow(arg, "", getColoredJobState(colorize, "NOT IN QUEUE"), "", "", "")
					continue
				}
				submitted := ""
				if !status.SubmittedAt.IsZero() {
					submitted = humanize.Time(status.SubmittedAt)
				}
				table.AddRow(status.ID, status.Name, getColoredJobState(colorize, status.State), status.Partition, status.Nodes, submitted)
			}
			fmt.Println("Jobs:")
			fmt.Println(table.Render())
			return nil
		},
	}
	statusCmd.Flags().BoolVarP(&byName, "name", "n", false, "Query jobs by name instead of ID")
	statusCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable coloring of job states")
	RootCmd.AddCommand(statusCmd)
}

func getColoredJobState(colorize bool, state string) string {
	if !colorize {
		return state
	}
	switch strings.ToUpper(state) {
	case "FAILED", "TIMEOUT", "NODE_FAIL", "OUT_OF_MEMORY", "CANCELLED":
		return color.New(color.FgHiRed, color.Bold).SprintFunc()(state)
	case "COMPLETED":
		return color.New(color.FgHiGreen, color.Bold).SprintFunc()(state)
	case "PENDING", "CONFIGURING", "COMPLETING", "RUNNING":
		return color.New(color.FgHiYellow, color.Bold).SprintFunc()(state)
	default:
		return color.New(color.Bold).SprintFunc()(state)
	}
}
