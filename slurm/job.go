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

// Package slurm handles SLURM batch job descriptors: loading, validation,
// batch script rendering, submission, monitoring and cancellation.
package slurm

import (
	"fmt"
	"io/ioutil"
	"regexp"
	"strconv"
	"strings"
	"time"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/hpcops/slurmsub/config"
	"github.com/hpcops/slurmsub/helper/sizeutil"
)

// slurmTimeRe matches the scheduler time specs [days-]hours:minutes:seconds and minutes
var slurmTimeRe = regexp.MustCompile(`^(?:(\d+)-)?(\d{1,2}):(\d{2}):(\d{2})$|^(\d+)$`)

// Job is the descriptor of a batch job: the resource request handed to the
// scheduler plus the launch command run once resources are allocated.
//
// A descriptor is static: it is authored, validated and submitted as-is.
// Submitting the same descriptor twice creates two independent jobs.
type Job struct {
	Name         string   `yaml:"name"`
	Comment      string   `yaml:"comment,omitempty"`
	Partition    string   `yaml:"partition"`
	QOS          string   `yaml:"qos,omitempty"`
	Account      string   `yaml:"account,omitempty"`
	Nodes        int      `yaml:"nodes"`
	Tasks        int      `yaml:"tasks"`
	TasksPerNode int      `yaml:"tasks_per_node,omitempty"`
	GPUs         int      `yaml:"gpus"`
	CPUsPerTask  int      `yaml:"cpus_per_task"`
	Mem          string   `yaml:"mem,omitempty"`
	WallTime     string   `yaml:"wall_time"`
	Output       string   `yaml:"output,omitempty"`
	Error        string   `yaml:"error,omitempty"`
	NodeList     string   `yaml:"node_list,omitempty"`
	ExtraOpts    []string `yaml:"extra_options,omitempty"`

	Env    map[string]string `yaml:"env,omitempty"`
	Launch Launch            `yaml:"launch"`
}

// Launch describes the training entry point invocation run inside the allocation
type Launch struct {
	Interpreter string `yaml:"interpreter,omitempty"`
	EntryPoint  string `yaml:"entry_point"`
	RunName     string `yaml:"run_name"`
	BaseConfig  string `yaml:"base_config"`
	Train       bool   `yaml:"train"`
	Devices     []int  `yaml:"devices,omitempty"`
}

// Command returns the launch command line as run inside the batch script
func (l Launch) Command() string {
	interpreter := l.Interpreter
	if interpreter == "" {
		interpreter = "python3"
	}
	cmd := fmt.Sprintf("%s %s --name %s --base %s", interpreter, l.EntryPoint, l.RunName, l.BaseConfig)
	if l.Train {
		cmd += " --train"
	}
	if len(l.Devices) > 0 {
		cmd += " --gpus " + l.DeviceList()
	}
	return cmd
}

// DeviceList returns the comma-separated accelerator index list of the launch command
func (l Launch) DeviceList() string {
	devices := make([]string, len(l.Devices))
	for i, d := range l.Devices {
		devices[i] = strconv.Itoa(d)
	}
	return strings.Join(devices, ",")
}

// LoadJob reads a job descriptor from a YAML file
func LoadJob(path string) (*Job, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read job descriptor %q", path)
	}
	job := &Job{}
	if err := yaml.UnmarshalStrict(data, job); err != nil {
		return nil, errors.Wrapf(err, "failed to parse job descriptor %q", path)
	}
	return job, nil
}

// ApplyDefaults fills unset descriptor fields from the configuration
func (j *Job) ApplyDefaults(cfg config.Configuration) {
	if j.Name == "" {
		j.Name = cfg.DefaultJobName
	}
	if j.Partition == "" {
		j.Partition = cfg.DefaultPartition
	}
	if j.Account == "" {
		j.Account = cfg.DefaultAccount
	}
	if j.QOS == "" {
		j.QOS = cfg.DefaultQOS
	}
	if j.Nodes == 0 {
		j.Nodes = 1
	}
	if j.Tasks == 0 {
		j.Tasks = 1
	}
	if j.Launch.RunName == "" {
		j.Launch.RunName = j.Name
	}
	if j.Output == "" {
		j.Output = "%x-%j.out"
	}
	if j.Error == "" {
		j.Error = "%x-%j.err"
	}
}

// Validate checks the descriptor invariants before submission. All violations
// are reported at once. Resource feasibility is the scheduler's business and
// is not checked here.
func (j *Job) Validate() error {
	var err *multierror.Error
	if j.Name == "" {
		err = multierror.Append(err, errors.New("job name is required"))
	}
	if j.Partition == "" {
		err = multierror.Append(err, errors.New("partition is required"))
	}
	if j.Nodes <= 0 {
		err = multierror.Append(err, errors.Errorf("node count must be a positive integer, got %d", j.Nodes))
	}
	if j.Tasks <= 0 {
		err = multierror.Append(err, errors.Errorf("task count must be a positive integer, got %d", j.Tasks))
	}
	if j.TasksPerNode < 0 {
		err = multierror.Append(err, errors.Errorf("tasks per node must be a positive integer, got %d", j.TasksPerNode))
	}
	if j.TasksPerNode > 0 && j.Nodes > 0 && j.TasksPerNode*j.Nodes < j.Tasks {
		err = multierror.Append(err, errors.Errorf("%d node(s) with %d task(s) per node cannot hold %d task(s)", j.Nodes, j.TasksPerNode, j.Tasks))
	}
	if j.GPUs < 0 {
		err = multierror.Append(err, errors.Errorf("gpu count cannot be negative, got %d", j.GPUs))
	}
	if j.CPUsPerTask <= 0 {
		err = multierror.Append(err, errors.Errorf("cpus per task must be a positive integer, got %d", j.CPUsPerTask))
	}
	if j.Mem != "" {
		if _, memErr := sizeutil.ConvertToGB(j.Mem); memErr != nil {
			err = multierror.Append(err, errors.Wrapf(memErr, "invalid memory request %q", j.Mem))
		}
	}
	if j.WallTime == "" {
		err = multierror.Append(err, errors.New("wall-clock limit is required"))
	} else if _, wtErr := parseWallTime(j.WallTime); wtErr != nil {
		err = multierror.Append(err, wtErr)
	}
	if j.Output == "" {
		err = multierror.Append(err, errors.New("stdout destination is required"))
	}
	if j.Error == "" {
		err = multierror.Append(err, errors.New("stderr destination is required"))
	}
	if j.Launch.EntryPoint == "" {
		err = multierror.Append(err, errors.New("launch entry point is required"))
	}
	if j.Launch.BaseConfig == "" {
		err = multierror.Append(err, errors.New("launch base config is required"))
	}
	if j.GPUs > 0 && len(j.Launch.Devices) != j.GPUs {
		err = multierror.Append(err, errors.Errorf("launch device index list has %d element(s) but %d gpu(s) are requested", len(j.Launch.Devices), j.GPUs))
	}
	return err.ErrorOrNil()
}

// parseWallTime accepts either a Go duration ("24h") or a scheduler time spec
// ("1-00:00:00", "23:59:00", "90") and returns the resulting duration
func parseWallTime(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return 0, errors.Errorf("wall-clock limit must be positive, got %q", s)
		}
		return d, nil
	}
	m := slurmTimeRe.FindStringSubmatch(s)
	if m == nil {
		return 0, errors.Errorf("invalid wall-clock limit %q", s)
	}
	if m[5] != "" {
		// bare integer means minutes
		minutes, _ := strconv.Atoi(m[5])
		if minutes <= 0 {
			return 0, errors.Errorf("wall-clock limit must be positive, got %q", s)
		}
		return time.Duration(minutes) * time.Minute, nil
	}
	var days int
	if m[1] != "" {
		days, _ = strconv.Atoi(m[1])
	}
	hours, _ := strconv.Atoi(m[2])
	minutes, _ := strconv.Atoi(m[3])
	seconds, _ := strconv.Atoi(m[4])
	if minutes > 59 || seconds > 59 {
		return 0, errors.Errorf("invalid wall-clock limit %q", s)
	}
	d := time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second
	if d <= 0 {
		return 0, errors.Errorf("wall-clock limit must be positive, got %q", s)
	}
	return d, nil
}

// formatWallTime renders a duration as the canonical scheduler time spec D-HH:MM:SS
func formatWallTime(d time.Duration) string {
	days := int(d.Hours()) / 24
	d -= time.Duration(days) * 24 * time.Hour
	hours := int(d.Hours())
	d -= time.Duration(hours) * time.Hour
	minutes := int(d.Minutes())
	d -= time.Duration(minutes) * time.Minute
	seconds := int(d.Seconds())
	if days > 0 {
		return fmt.Sprintf("%d-%02d:%02d:%02d", days, hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
