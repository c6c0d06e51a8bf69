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
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hpcops/slurmsub/config"
	"github.com/hpcops/slurmsub/helper/sshutil"
	"github.com/hpcops/slurmsub/log"
)

const bashLogger = `if [ -f %s ]; then
    tail -n +%d %s
fi`

// LogWriter receives streamed job log lines during monitoring
type LogWriter func(file, content string)

// MonitorJob polls the scheduler until the job reaches a terminal state,
// streaming the job log files in between polls. It returns nil when the job
// completed successfully and an error describing the final state otherwise.
// Cancelling the context stops the monitoring but leaves the job running.
func MonitorJob(ctx context.Context, client sshutil.Client, cfg config.Configuration, res *SubmissionResult, logWriter LogWriter) error {
	interval := cfg.JobMonitoringTimeInterval
	if interval <= 0 {
		interval = config.DefaultJobMonitoringTimeInterval
	}
	m := &jobMonitor{
		client:    client,
		result:    res,
		logWriter: logWriter,
		lastIndex: make(map[string]int),
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var seenRunning bool
	for {
		select {
		case <-ctx.Done():
			m.streamLogs()
			return errors.Wrapf(ctx.Err(), "monitoring of job %q interrupted, the job is left running", res.JobID)
		case <-ticker.C:
		}

		info, err := getJobInfo(client, res.JobID, "")
		if err != nil {
			if !IsNoJobFoundError(err) {
				return err
			}
			// gone from the queue, sacct has the final word
			state, accErr := getAccountedState(client, res.JobID)
			if accErr != nil {
				log.Debugf("failed to retrieve accounted state of job %q: %v", res.JobID, accErr)
				state = "COMPLETED"
			}
			return m.finish(cfg, state)
		}

		switch info.state {
		case "PENDING", "CONFIGURING":
			log.Debugf("job %q is waiting for resources, state:%q", res.JobID, info.state)
		case "RUNNING", "COMPLETING", "SIGNALING", "RESIZING":
			if !seenRunning {
				seenRunning = true
				if devices, err := getAttribute(client, "cuda_visible_devices", res.JobID, ""); err == nil && devices != "" {
					log.Debugf("job %q runs with CUDA_VISIBLE_DEVICES=%s", res.JobID, devices)
				}
			}
			m.streamLogs()
		default:
			// terminal as reported by the queue itself
			return m.finish(cfg, info.state)
		}
	}
}

type jobMonitor struct {
	client    sshutil.Client
	result    *SubmissionResult
	logWriter LogWriter
	lastIndex map[string]int
}

// streamLogs tails each monitored output file past the last seen line
func (m *jobMonitor) streamLogs() {
	if m.logWriter == nil {
		return
	}
	for _, file := range m.result.Outputs {
		last := m.lastIndex[file]
		cmd := fmt.Sprintf(bashLogger, file, last+1, file)
		output, err := m.client.RunCommand(cmd)
		if err != nil {
			log.Debugf("failed to retrieve logs from %q: %v", file, err)
			continue
		}
		if output == "" {
			continue
		}
		m.lastIndex[file] = last + strings.Count(output, "\n")
		m.logWriter(file, output)
	}
}

// finish drains the remaining logs, removes the staged artifacts and maps the
// final state to the monitoring outcome
func (m *jobMonitor) finish(cfg config.Configuration, state string) error {
	m.streamLogs()
	if !cfg.KeepJobRemoteArtifacts {
		m.removeArtifacts()
	}
	if state == "COMPLETED" {
		log.Printf("job %q completed successfully", m.result.JobID)
		return nil
	}
	return errors.Errorf("job with ID:%q finished unsuccessfully with state:%q", m.result.JobID, state)
}

func (m *jobMonitor) removeArtifacts() {
	if m.result.RemoteDir == "" {
		return
	}
	cmd := fmt.Sprintf("rm -rf %s", m.result.RemoteDir)
	if output, err := m.client.RunCommand(cmd); err != nil {
		log.Debugf("failed to remove job artifacts directory %q, output:%q, error:%v", m.result.RemoteDir, output, err)
	}
}

// getAccountedState asks sacct for the final state of a job that left the queue
func getAccountedState(client sshutil.Client, jobID string) (string, error) {
	cmd := fmt.Sprintf("sacct --noheader -X -o State -j %s", jobID)
	output, err := client.RunCommand(cmd)
	if err != nil {
		return "", errors.Wrap(err, output)
	}
	state := strings.Trim(output, "\" \t\n\x00")
	if state == "" {
		return "", errors.Errorf("no accounting information for job %q", jobID)
	}
	// CANCELLED may carry the cancelling user, keep the state token only
	return strings.Fields(state)[0], nil
}

// CancelJob asks the scheduler to cancel a job known by ID
func CancelJob(client sshutil.Client, jobID string) error {
	if _, err := strconv.Atoi(jobID); err != nil {
		return errors.Errorf("invalid job id %q", jobID)
	}
	return cancelJobID(jobID, client)
}

// JobStatus is the queue view of a job
type JobStatus struct {
	ID          string
	Name        string
	State       string
	Nodes       string
	Partition   string
	SubmittedAt time.Time
}

// GetJobStatus returns the queue state of a job known by ID or name. The
// submission time and node placement are best effort, they stay empty when
// the queue does not report them.
func GetJobStatus(client sshutil.Client, jobID, jobName string) (*JobStatus, error) {
	info, err := getJobInfo(client, jobID, jobName)
	if err != nil {
		return nil, err
	}
	status := &JobStatus{ID: info.ID, Name: info.name, State: info.state}
	if submitted, err := getJobSubmitTime(client, info.ID); err == nil {
		status.SubmittedAt = submitted
	}
	if placement, err := getAttribute(client, "node_partition", info.ID, ""); err == nil {
		// squeue answers "<nodelist>,<partition>", the partition holds no comma
		if sep := strings.LastIndex(placement, ","); sep >= 0 {
			status.Nodes = placement[:sep]
			status.Partition = placement[sep+1:]
		}
	}
	return status, nil
}
