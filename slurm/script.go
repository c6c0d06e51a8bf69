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
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/hpcops/slurmsub/helper/sizeutil"
)

// Markers bracketing the launch command in the generated batch script. They
// land in the job stdout and let log consumers delimit the actual execution.
const (
	startMarker = "_______________EXECUTION_STARTED_______________"
	endMarker   = "_______________EXECUTION_FINISHED_______________"
)

// RenderScript generates the batch script of a job descriptor. Directives are
// emitted in a stable order so that rendering the same descriptor twice yields
// the same script. The GPU request is declared through both the generic
// resource and the accelerator count directives, generated from the same
// field so the two always agree.
func RenderScript(job *Job) (string, error) {
	if err := job.Validate(); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("#!/usr/bin/env bash\n")
	directive := func(format string, a ...interface{}) {
		b.WriteString(fmt.Sprintf("#SBATCH "+format+"\n", a...))
	}

	directive("--job-name=%s", job.Name)
	if job.Comment != "" {
		directive("--comment=%q", job.Comment)
	}
	if job.QOS != "" {
		directive("--qos=%s", job.QOS)
	}
	directive("--partition=%s", job.Partition)
	directive("--nodes=%d", job.Nodes)
	directive("--ntasks=%d", job.Tasks)
	if job.TasksPerNode > 0 {
		directive("--ntasks-per-node=%d", job.TasksPerNode)
	}
	if job.GPUs > 0 {
		directive("--gres=gpu:%d", job.GPUs)
		directive("--gpus=%d", job.GPUs)
	}
	if job.Account != "" {
		directive("--account=%s", job.Account)
	}
	directive("--cpus-per-task=%d", job.CPUsPerTask)
	if job.Mem != "" {
		// accept any human readable size but hand the scheduler its G suffix
		memGB, err := sizeutil.ConvertToGB(job.Mem)
		if err != nil {
			return "", errors.Wrapf(err, "invalid memory request %q", job.Mem)
		}
		directive("--mem=%dG", memGB)
	}
	wallTime, err := parseWallTime(job.WallTime)
	if err != nil {
		return "", err
	}
	directive("--time=%s", formatWallTime(wallTime))
	directive("--output=%s", job.Output)
	directive("--error=%s", job.Error)
	for _, opt := range job.ExtraOpts {
		directive("%s", opt)
	}
	if job.NodeList != "" {
		// kept as a hint only, uncomment to pin the allocation
		b.WriteString(fmt.Sprintf("##SBATCH --nodelist=%s\n", job.NodeList))
	}

	b.WriteString("\n")
	if len(job.Env) > 0 {
		keys := make([]string, 0, len(job.Env))
		for k := range job.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(fmt.Sprintf("export %s=%q\n", k, job.Env[k]))
		}
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf("echo %q\n", startMarker))
	b.WriteString(job.Launch.Command() + "\n")
	b.WriteString("rc=$?\n")
	b.WriteString(fmt.Sprintf("echo %q\n", endMarker))
	b.WriteString("exit $rc\n")
	return b.String(), nil
}

// MonitoredOutputs returns the stdout/stderr destinations of a submitted
// job with the filename placeholders expanded. Destinations come from the
// script directives and from raw sbatch options, so jobs whose script was
// authored elsewhere are monitored too.
func MonitoredOutputs(script string, opts []string, dir, jobName, jobID string) []string {
	outputs := append(parseOutputConfigFromBatchScript(script, false), parseOutputConfigFromOpts(opts)...)
	expanded := make([]string, 0, len(outputs))
	seen := make(map[string]struct{})
	for _, o := range outputs {
		p := expandOutputPath(o, dir, jobName, jobID)
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		expanded = append(expanded, p)
	}
	if len(expanded) == 0 {
		// scheduler default when no destination is declared
		expanded = append(expanded, expandOutputPath(fmt.Sprintf("slurm-%s.out", jobID), dir, jobName, jobID))
	}
	return expanded
}
