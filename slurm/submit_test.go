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
	"io"
	"io/ioutil"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpcops/slurmsub/config"
	"github.com/hpcops/slurmsub/helper/sshutil"
)

func TestSubmit(t *testing.T) {
	t.Parallel()
	var copiedPath, copiedScript, runCmd string
	s := &sshutil.MockSSHClient{
		MockCopyFile: func(source io.Reader, remotePath, permissions string) error {
			data, err := ioutil.ReadAll(source)
			require.NoError(t, err)
			copiedPath = remotePath
			copiedScript = string(data)
			assert.Equal(t, "0755", permissions)
			return nil
		},
		MockRunCommand: func(cmd string) (string, error) {
			runCmd = cmd
			return "Submitted batch job 4567\n", nil
		},
	}
	cfg := config.Configuration{WorkingDirectory: "work"}
	res, err := Submit(s, cfg, validJob())
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, "4567", res.JobID)
	assert.Equal(t, "train", res.JobName)
	assert.True(t, strings.HasPrefix(res.RemoteDir, "work/.slurmsub_"))
	assert.Equal(t, res.RemoteDir+"/submit.sbatch", res.ScriptPath)
	assert.Equal(t, copiedPath, res.ScriptPath)
	assert.Contains(t, copiedScript, "#SBATCH --job-name=train")
	assert.Equal(t, "cd "+res.RemoteDir+";sbatch submit.sbatch", runCmd)
	assert.Equal(t, []string{res.RemoteDir + "/train-4567.out", res.RemoteDir + "/train-4567.err"}, res.Outputs)
}

func TestSubmitTwiceYieldsIndependentJobs(t *testing.T) {
	t.Parallel()
	jobIDs := []string{"100", "101"}
	var submissions int
	s := &sshutil.MockSSHClient{
		MockCopyFile: func(source io.Reader, remotePath, permissions string) error {
			return nil
		},
		MockRunCommand: func(cmd string) (string, error) {
			id := jobIDs[submissions]
			submissions++
			return "Submitted batch job " + id, nil
		},
	}
	cfg := config.Configuration{}
	job := validJob()
	first, err := Submit(s, cfg, job)
	require.NoError(t, err)
	second, err := Submit(s, cfg, job)
	require.NoError(t, err)
	assert.NotEqual(t, first.JobID, second.JobID)
	assert.NotEqual(t, first.RemoteDir, second.RemoteDir)
}

func TestSubmitInvalidJob(t *testing.T) {
	t.Parallel()
	s := &sshutil.MockSSHClient{}
	_, err := Submit(s, config.Configuration{}, &Job{})
	require.Error(t, err)
}

func TestSubmitSbatchFailure(t *testing.T) {
	t.Parallel()
	s := &sshutil.MockSSHClient{
		MockCopyFile: func(source io.Reader, remotePath, permissions string) error {
			return nil
		},
		MockRunCommand: func(cmd string) (string, error) {
			return "sbatch: error: invalid partition specified", errors.New("exit status 1")
		},
	}
	_, err := Submit(s, config.Configuration{}, validJob())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to submit job")
}

func TestSubmitStagingFailure(t *testing.T) {
	t.Parallel()
	s := &sshutil.MockSSHClient{
		MockCopyFile: func(source io.Reader, remotePath, permissions string) error {
			return errors.New("permission denied")
		},
	}
	_, err := Submit(s, config.Configuration{}, validJob())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to stage batch script")
}
