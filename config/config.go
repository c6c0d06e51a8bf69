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

// Package config defines configuration structures
package config

import (
	"strings"
	"time"

	"github.com/spf13/cast"
)

// DefaultJobMonitoringTimeInterval is the default polling interval of job state monitoring
const DefaultJobMonitoringTimeInterval = 5 * time.Second

// DefaultSSHPort is the default port of the cluster frontend SSH endpoint
const DefaultSSHPort = 22

// DefaultWorkingDirectory is the default directory where rendered batch scripts are staged before submission
const DefaultWorkingDirectory = "work"

// Configuration holds config information filled by Cobra and Viper (see commands package for more information)
type Configuration struct {
	// Cluster frontend access. If URL is empty scheduler commands run locally.
	UserName   string
	Password   string
	PrivateKey string
	URL        string
	Port       int

	WorkingDirectory          string
	DefaultPartition          string
	DefaultAccount            string
	DefaultQOS                string
	DefaultJobName            string
	JobMonitoringTimeInterval time.Duration
	KeepJobRemoteArtifacts    bool

	// Extra holds free-form per-cluster options
	Extra DynamicMap
}

// IsRemote returns true when scheduler commands must be run over SSH
func (c Configuration) IsRemote() bool {
	return c.URL != ""
}

// DynamicMap holds extra configuration parameters for a given cluster.
//
// It has methods to automatically cast data to the desired type.
type DynamicMap map[string]interface{}

// Get returns the raw value of a given configuration key
func (dm DynamicMap) Get(name string) interface{} {
	return dm[name]
}

// Set sets a value for a given configuration key
func (dm DynamicMap) Set(name string, value interface{}) {
	dm[name] = value
}

// GetString returns the value of the given key casted into a string.
// An empty string is returned if not found.
func (dm DynamicMap) GetString(name string) string {
	return cast.ToString(dm[name])
}

// GetStringOrDefault returns the value of the given key casted into a string.
// The given default value is returned if not found.
func (dm DynamicMap) GetStringOrDefault(name, defaultValue string) string {
	if res := dm.GetString(name); res != "" {
		return res
	}
	return defaultValue
}

// GetBool returns the value of the given key casted into a boolean.
// False is returned if not found.
func (dm DynamicMap) GetBool(name string) bool {
	return cast.ToBool(dm[name])
}

// GetInt returns the value of the given key casted into an int.
// 0 is returned if not found.
func (dm DynamicMap) GetInt(name string) int {
	return cast.ToInt(dm[name])
}

// GetDuration returns the value of the given key casted into a duration.
// A zero duration is returned if not found.
func (dm DynamicMap) GetDuration(name string) time.Duration {
	return cast.ToDuration(dm[name])
}

// GetStringSlice returns the value of the given key casted into a slice of string.
// If the corresponding raw value is a string, it is split on comas.
// A nil or empty slice is returned if not found.
func (dm DynamicMap) GetStringSlice(name string) []string {
	val := dm[name]
	switch v := val.(type) {
	case string:
		return strings.Split(v, ",")
	default:
		return cast.ToStringSlice(val)
	}
}
