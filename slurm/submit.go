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

package slurm

import (
	"fmt"
	"path"
	"strings"

	"github.com/pkg/errors"

	"github.com/hpcops/slurmsub/config"
	"github.com/hpcops/slurmsub/helper/sshutil"
	"github.com/hpcops/slurmsub/helper/stringutil"
	"github.com/hpcops/slurmsub/log"
)

const scriptName = "submit.sbatch"

// SubmissionResult holds the identifiers of a freshly submitted job
type SubmissionResult struct {
	JobID      string
	JobName    string
	RemoteDir  string
	ScriptPath string
	// Outputs are the stdout/stderr destinations with placeholders expanded
	Outputs []string
}

// Submit renders the descriptor, stages the batch script in a unique working
// directory and hands it to sbatch. Each call is an independent submission:
// submitting the same descriptor again creates a new job with a new ID.
func Submit(client sshutil.Client, cfg config.Configuration, job *Job) (*SubmissionResult, error) {
	job.ApplyDefaults(cfg)
	script, err := RenderScript(job)
	if err != nil {
		return nil, err
	}

	dir := path.Join(cfg.WorkingDirectory, stringutil.UniqueTimestampedName(".slurmsub_", ""))
	scriptPath := path.Join(dir, scriptName)
	if err := client.CopyFile(strings.NewReader(script), scriptPath, "0755"); err != nil {
		return nil, errors.Wrapf(err, "failed to stage batch script in %q", dir)
	}
	log.Debugf("staged batch script %q", scriptPath)

	cmd := fmt.Sprintf("cd %s;sbatch %s", dir, scriptName)
	output, err := client.RunCommand(cmd)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to submit job, output:%q", output)
	}
	jobID, err := parseJobIDFromBatchOutput(output)
	if err != nil {
		return nil, err
	}
	log.Printf("job %q submitted with id %q", job.Name, jobID)

	return &SubmissionResult{
		JobID:      jobID,
		JobName:    job.Name,
		RemoteDir:  dir,
		ScriptPath: scriptPath,
		Outputs:    MonitoredOutputs(script, job.ExtraOpts, dir, job.Name, jobID),
	}, nil
}
