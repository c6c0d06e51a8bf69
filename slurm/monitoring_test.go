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
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpcops/slurmsub/config"
	"github.com/hpcops/slurmsub/helper/sshutil"
)

func monitoringConfig() config.Configuration {
	return config.Configuration{JobMonitoringTimeInterval: 5 * time.Millisecond}
}

// queueScript replays queue states in order, then keeps answering with the
// last one
type queueScript struct {
	mu     sync.Mutex
	states []string
	sacct  string
	logs   map[string][]string
}

func (q *queueScript) runCommand(cmd string) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	switch {
	case strings.HasPrefix(cmd, "squeue"):
		state := q.states[0]
		if len(q.states) > 1 {
			q.states = q.states[1:]
		}
		if state == "" {
			return "", nil
		}
		return "train," + "42," + state, nil
	case strings.HasPrefix(cmd, "sacct"):
		return q.sacct + "\n", nil
	case strings.HasPrefix(cmd, "srun"):
		return "CUDA_VISIBLE_DEVICES=0,1\n", nil
	case strings.HasPrefix(cmd, "rm -rf"):
		return "", nil
	case strings.HasPrefix(cmd, "if [ -f"):
		for file, lines := range q.logs {
			if strings.Contains(cmd, file) && len(lines) > 0 {
				out := lines[0]
				q.logs[file] = lines[1:]
				return out, nil
			}
		}
		return "", nil
	}
	return "", nil
}

func TestMonitorJobCompleted(t *testing.T) {
	t.Parallel()
	q := &queueScript{
		states: []string{"PENDING", "RUNNING", ""},
		sacct:  "COMPLETED",
		logs: map[string][]string{
			"work/train-42.out": {"epoch 1 done\n"},
		},
	}
	s := &sshutil.MockSSHClient{MockRunCommand: q.runCommand}
	var mu sync.Mutex
	var streamed []string
	res := &SubmissionResult{
		JobID:     "42",
		JobName:   "train",
		RemoteDir: "work",
		Outputs:   []string{"work/train-42.out"},
	}
	err := MonitorJob(context.Background(), s, monitoringConfig(), res, func(file, content string) {
		mu.Lock()
		defer mu.Unlock()
		streamed = append(streamed, content)
	})
	require.NoError(t, err)
	assert.Contains(t, strings.Join(streamed, ""), "epoch 1 done")
}

func TestMonitorJobFailed(t *testing.T) {
	t.Parallel()
	q := &queueScript{states: []string{"RUNNING", ""}, sacct: "FAILED"}
	s := &sshutil.MockSSHClient{MockRunCommand: q.runCommand}
	res := &SubmissionResult{JobID: "42", JobName: "train", RemoteDir: "work"}
	err := MonitorJob(context.Background(), s, monitoringConfig(), res, nil)
	require.Error(t, err)
	assert.EqualError(t, err, `job with ID:"42" finished unsuccessfully with state:"FAILED"`)
}

func TestMonitorJobTerminalQueueState(t *testing.T) {
	t.Parallel()
	q := &queueScript{states: []string{"TIMEOUT"}}
	s := &sshutil.MockSSHClient{MockRunCommand: q.runCommand}
	res := &SubmissionResult{JobID: "42", JobName: "train"}
	err := MonitorJob(context.Background(), s, monitoringConfig(), res, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `state:"TIMEOUT"`)
}

func TestMonitorJobCancelledContextLeavesJobRunning(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	var cancelled bool
	s := &sshutil.MockSSHClient{
		MockRunCommand: func(cmd string) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			if strings.HasPrefix(cmd, "scancel") {
				cancelled = true
			}
			if strings.HasPrefix(cmd, "squeue") {
				return "train,42,RUNNING", nil
			}
			return "", nil
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	res := &SubmissionResult{JobID: "42", JobName: "train"}
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	err := MonitorJob(ctx, s, monitoringConfig(), res, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "the job is left running")
	mu.Lock()
	defer mu.Unlock()
	assert.False(t, cancelled)
}

func TestMonitorJobRemovesArtifacts(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	var removed string
	s := &sshutil.MockSSHClient{
		MockRunCommand: func(cmd string) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			if strings.HasPrefix(cmd, "rm -rf ") {
				removed = strings.TrimPrefix(cmd, "rm -rf ")
			}
			if strings.HasPrefix(cmd, "sacct") {
				return "COMPLETED", nil
			}
			return "", nil
		},
	}
	res := &SubmissionResult{JobID: "42", JobName: "train", RemoteDir: "work/.slurmsub_1"}
	err := MonitorJob(context.Background(), s, monitoringConfig(), res, nil)
	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "work/.slurmsub_1", removed)
}

func TestMonitorJobKeepsArtifacts(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	var removed bool
	s := &sshutil.MockSSHClient{
		MockRunCommand: func(cmd string) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			if strings.HasPrefix(cmd, "rm -rf") {
				removed = true
			}
			if strings.HasPrefix(cmd, "sacct") {
				return "COMPLETED", nil
			}
			return "", nil
		},
	}
	cfg := monitoringConfig()
	cfg.KeepJobRemoteArtifacts = true
	res := &SubmissionResult{JobID: "42", JobName: "train", RemoteDir: "work/.slurmsub_1"}
	err := MonitorJob(context.Background(), s, cfg, res, nil)
	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	assert.False(t, removed)
}

func TestGetAccountedState(t *testing.T) {
	t.Parallel()
	s := &sshutil.MockSSHClient{
		MockRunCommand: func(cmd string) (string, error) {
			return " CANCELLED by 1001\n", nil
		},
	}
	state, err := getAccountedState(s, "42")
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", state)
}

func TestGetJobStatus(t *testing.T) {
	t.Parallel()
	s := &sshutil.MockSSHClient{
		MockRunCommand: func(cmd string) (string, error) {
			switch {
			case strings.Contains(cmd, "%V"):
				return "2026-08-31T10:30:00", nil
			case strings.Contains(cmd, "%N,%P"):
				return "node[01-02],gpu", nil
			}
			return "train,42,RUNNING", nil
		},
	}
	status, err := GetJobStatus(s, "42", "")
	require.NoError(t, err)
	assert.Equal(t, "42", status.ID)
	assert.Equal(t, "train", status.Name)
	assert.Equal(t, "RUNNING", status.State)
	assert.Equal(t, "node[01-02]", status.Nodes)
	assert.Equal(t, "gpu", status.Partition)
	assert.False(t, status.SubmittedAt.IsZero())
}

func TestGetJobStatusPendingWithoutPlacement(t *testing.T) {
	t.Parallel()
	s := &sshutil.MockSSHClient{
		MockRunCommand: func(cmd string) (string, error) {
			if strings.Contains(cmd, "%N,%P") {
				return ",batch", nil
			}
			if strings.Contains(cmd, "%V") {
				return "", nil
			}
			return "train,42,PENDING", nil
		},
	}
	status, err := GetJobStatus(s, "42", "")
	require.NoError(t, err)
	assert.Equal(t, "PENDING", status.State)
	assert.Equal(t, "", status.Nodes)
	assert.Equal(t, "batch", status.Partition)
	assert.True(t, status.SubmittedAt.IsZero())
}

func TestCancelJobInvalidID(t *testing.T) {
	t.Parallel()
	s := &sshutil.MockSSHClient{}
	err := CancelJob(s, "not-a-number")
	require.Error(t, err)
}
