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
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"

	"github.com/hpcops/slurmsub/config"
	"github.com/hpcops/slurmsub/helper/executil"
	"github.com/hpcops/slurmsub/helper/sshutil"
)

// GetClient returns the command runner matching the configuration: an SSH
// client when a login node URL is set, otherwise a runner executing the
// scheduler commands on the local host.
func GetClient(cfg config.Configuration) (sshutil.Client, error) {
	if !cfg.IsRemote() {
		return &localClient{}, nil
	}
	return getSSHClient(cfg)
}

func getSSHClient(cfg config.Configuration) (sshutil.Client, error) {
	if err := checkCredentials(cfg); err != nil {
		return nil, err
	}

	authMethods := make([]ssh.AuthMethod, 0)
	if cfg.PrivateKey != "" {
		keyAuth, err := sshutil.ReadPrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		authMethods = append(authMethods, keyAuth)
	}
	if cfg.Password != "" {
		authMethods = append(authMethods, ssh.Password(cfg.Password))
	}

	port := cfg.Port
	if port == 0 {
		port = config.DefaultSSHPort
	}
	sshConfig := &ssh.ClientConfig{
		User: cfg.UserName,
		Auth: authMethods,
		// login nodes are provisioned hosts, host key checking is left to
		// the operator's known_hosts management
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         30 * time.Second,
	}
	return &sshutil.SSHClient{
		Config: sshConfig,
		Host:   cfg.URL,
		Port:   port,
	}, nil
}

func checkCredentials(cfg config.Configuration) error {
	if cfg.UserName == "" {
		return errors.New("a user name is required to connect to the login node")
	}
	if cfg.PrivateKey == "" && cfg.Password == "" {
		return errors.New("a private key or a password is required to connect to the login node")
	}
	return nil
}

// localClient satisfies sshutil.Client by running commands on the local host
// through the process-group aware executor
type localClient struct{}

func (c *localClient) RunCommand(cmd string) (string, error) {
	execCmd := executil.Command(context.Background(), "bash", "-c", cmd)
	var buf bytes.Buffer
	execCmd.Stdout = &buf
	execCmd.Stderr = &buf
	err := execCmd.Run()
	return buf.String(), errors.Wrapf(err, "failed to run command %q", cmd)
}

func (c *localClient) CopyFile(source io.Reader, remotePath, permissions string) error {
	perms, err := strconv.ParseUint(permissions, 8, 32)
	if err != nil {
		return errors.Wrapf(err, "invalid file permissions %q", permissions)
	}
	if err := os.MkdirAll(filepath.Dir(remotePath), 0755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %q", remotePath)
	}
	data, err := ioutil.ReadAll(source)
	if err != nil {
		return errors.Wrapf(err, "failed to read content to copy to %q", remotePath)
	}
	return errors.Wrapf(ioutil.WriteFile(remotePath, data, os.FileMode(perms)), "failed to write %q", remotePath)
}
