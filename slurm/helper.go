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
	"time"

	"github.com/pkg/errors"

	"github.com/hpcops/slurmsub/helper/sshutil"
)

type jobInfoShort struct {
	ID    string
	name  string
	state string
}

// getJobInfo queries squeue for a job known by ID or by name. It returns a
// noJobFound error when the queue holds no matching entry, which is the
// normal outcome once a job reached a terminal state.
func getJobInfo(client sshutil.Client, jobID, jobName string) (*jobInfoShort, error) {
	var cmd string
	if jobID != "" {
		cmd = fmt.Sprintf("squeue --noheader --job=%s -o \"%%j,%%i,%%T\"", jobID)
	} else {
		cmd = fmt.Sprintf("squeue --noheader --name=%s -o \"%%j,%%i,%%T\"", jobName)
	}
	output, err := client.RunCommand(cmd)
	if err != nil {
		return nil, errors.Wrap(err, output)
	}
	out := strings.Trim(output, "\" \t\n\x00")
	if out != "" {
		d := strings.Split(out, ",")
		if len(d) != 3 {
			return nil, errors.Errorf("unexpected squeue output format %q", out)
		}
		return &jobInfoShort{ID: d[1], name: d[0], state: d[2]}, nil
	}
	return nil, &noJobFound{msg: fmt.Sprintf("no information found for job with id:%q, name:%q", jobID, jobName)}
}

// getJobSubmitTime asks the queue for the submission time of a job
func getJobSubmitTime(client sshutil.Client, jobID string) (time.Time, error) {
	cmd := fmt.Sprintf("squeue --noheader --job=%s -o \"%%V\"", jobID)
	output, err := client.RunCommand(cmd)
	if err != nil {
		return time.Time{}, errors.Wrap(err, output)
	}
	out := strings.Trim(output, "\" \t\n\x00")
	if out == "" {
		return time.Time{}, &noJobFound{msg: fmt.Sprintf("no information found for job with id:%q, name:%q", jobID, "")}
	}
	t, err := time.ParseInLocation("2006-01-02T15:04:05", out, time.Local)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "unexpected squeue submit time %q", out)
	}
	return t, nil
}

// cancelJobID asks the scheduler to cancel a job
func cancelJobID(jobID string, client sshutil.Client) error {
	scancelCmd := fmt.Sprintf("scancel %s", jobID)
	output, err := client.RunCommand(scancelCmd)
	if err != nil {
		return errors.Wrapf(err, "failed to cancel job with id:%q, output:%q", jobID, output)
	}
	return nil
}

// parseJobIDFromBatchOutput extracts the job ID from the sbatch confirmation
// line "Submitted batch job <ID>"
func parseJobIDFromBatchOutput(out string) (string, error) {
	parsed := strings.Split(out, "Submitted batch job ")
	if len(parsed) != 2 {
		return "", errors.Errorf("unexpected sbatch output %q", out)
	}
	return strings.Trim(parsed[1], "\" \t\n\x00"), nil
}

// parseKeyValue parses a "key=value" string and returns false when the string
// has another shape
func parseKeyValue(str string) (bool, string, string) {
	keyVal := strings.Split(str, "=")
	if len(keyVal) == 2 && strings.TrimSpace(keyVal[0]) != "" && strings.TrimSpace(keyVal[1]) != "" {
		return true, keyVal[0], keyVal[1]
	}
	return false, "", ""
}

// parseOutputConfigFromOpts returns the stdout/stderr destinations set via
// raw sbatch option strings
func parseOutputConfigFromOpts(opts []string) []string {
	outputs := make([]string, 0)
	for _, opt := range opts {
		if is, key, value := parseKeyValue(opt); is {
			if key == "--output" || key == "--error" {
				outputs = append(outputs, value)
			}
		}
	}
	return outputs
}

// parseOutputConfigFromBatchScript extracts the stdout/stderr destinations
// declared by directives of a batch script. With all set, non-directive
// redirections found in command lines are returned too.
func parseOutputConfigFromBatchScript(script string, all bool) []string {
	outputs := make([]string, 0)
	for _, line := range strings.Split(script, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#SBATCH") {
			opt := strings.TrimSpace(strings.TrimPrefix(line, "#SBATCH"))
			if is, key, value := parseKeyValue(opt); is {
				if key == "--output" || key == "--error" {
					outputs = append(outputs, value)
				}
			}
			continue
		}
		if !all || line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		for _, redir := range []string{"2>", ">"} {
			if idx := strings.Index(line, redir); idx >= 0 {
				target := strings.Fields(line[idx+len(redir):])
				if len(target) > 0 && !strings.HasPrefix(target[0], "&") {
					outputs = append(outputs, target[0])
				}
				break
			}
		}
	}
	return outputs
}

// expandOutputPath substitutes the %x (job name) and %j (job ID) filename
// placeholders and anchors relative paths in dir
func expandOutputPath(pattern, dir, jobName, jobID string) string {
	p := strings.NewReplacer("%x", jobName, "%j", jobID).Replace(pattern)
	if !path.IsAbs(p) && dir != "" {
		p = path.Join(dir, p)
	}
	return p
}

// getAttribute retrieves a runtime job attribute exposed by the allocation
func getAttribute(client sshutil.Client, attributeName string, jobID, nodeName string) (string, error) {
	switch attributeName {
	case "cuda_visible_devices":
		if jobID == "" {
			return "", nil
		}
		cmd := fmt.Sprintf("srun --jobid=%s env|grep CUDA_VISIBLE_DEVICES", jobID)
		output, err := client.RunCommand(cmd)
		if err != nil {
			return "", errors.Wrap(err, output)
		}
		return getEnvValue(output), nil
	case "node_partition":
		cmd := fmt.Sprintf("squeue --noheader --job=%s -o \"%%N,%%P\"", jobID)
		output, err := client.RunCommand(cmd)
		if err != nil {
			return "", errors.Wrap(err, output)
		}
		return strings.Trim(output, "\" \t\n\x00"), nil
	default:
		return "", errors.Errorf("unknown job attribute %q", attributeName)
	}
}

// getEnvValue returns the value of a KEY=VALUE environment line
func getEnvValue(s string) string {
	if s == "" {
		return ""
	}
	if strings.ContainsRune(s, '=') {
		return strings.Trim(s[strings.Index(s, "=")+1:], "\r\n")
	}
	return ""
}
