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
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/hpcops/slurmsub/config"
	"github.com/hpcops/slurmsub/log"
)

const environmentVariablePrefix = "SLURMSUB"

var cfgFile string

// setConfig declares the persistent flags of the CLI and binds them to viper
// keys so that each parameter can come from a flag, an environment variable
// or the configuration file, in that order of precedence
func setConfig() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Configuration file path")
	RootCmd.PersistentFlags().StringP("user", "u", "", "User name used to connect to the cluster login node")
	RootCmd.PersistentFlags().String("password", "", "Password used to connect to the cluster login node")
	RootCmd.PersistentFlags().StringP("key-file", "k", "", "Path to the private key used to connect to the cluster login node")
	RootCmd.PersistentFlags().String("url", "", "Address of the cluster login node, scheduler commands run locally when unset")
	RootCmd.PersistentFlags().Int("port", config.DefaultSSHPort, "SSH port of the cluster login node")
	RootCmd.PersistentFlags().StringP("working-directory", "w", config.DefaultWorkingDirectory, "Directory where batch scripts are staged before submission")
	RootCmd.PersistentFlags().String("partition", "", "Default partition of submitted jobs")
	RootCmd.PersistentFlags().String("account", "", "Default account of submitted jobs")
	RootCmd.PersistentFlags().String("qos", "", "Default quality of service of submitted jobs")
	RootCmd.PersistentFlags().String("job-name", "slurmsub_job", "Default name of submitted jobs")
	RootCmd.PersistentFlags().Duration("monitoring-interval", config.DefaultJobMonitoringTimeInterval, "Polling interval of job state monitoring")
	RootCmd.PersistentFlags().Bool("keep-artifacts", false, "Keep the staged batch script directory after the job finished")

	viper.BindPFlag("user_name", RootCmd.PersistentFlags().Lookup("user"))
	viper.BindPFlag("password", RootCmd.PersistentFlags().Lookup("password"))
	viper.BindPFlag("private_key", RootCmd.PersistentFlags().Lookup("key-file"))
	viper.BindPFlag("url", RootCmd.PersistentFlags().Lookup("url"))
	viper.BindPFlag("port", RootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("working_directory", RootCmd.PersistentFlags().Lookup("working-directory"))
	viper.BindPFlag("default_partition", RootCmd.PersistentFlags().Lookup("partition"))
	viper.BindPFlag("default_account", RootCmd.PersistentFlags().Lookup("account"))
	viper.BindPFlag("default_qos", RootCmd.PersistentFlags().Lookup("qos"))
	viper.BindPFlag("default_job_name", RootCmd.PersistentFlags().Lookup("job-name"))
	viper.BindPFlag("job_monitoring_time_interval", RootCmd.PersistentFlags().Lookup("monitoring-interval"))
	viper.BindPFlag("keep_job_remote_artifacts", RootCmd.PersistentFlags().Lookup("keep-artifacts"))

	viper.SetEnvPrefix(environmentVariablePrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
}

// initConfig reads the configuration file when one is found
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config.slurmsub")
		viper.AddConfigPath("/etc/slurmsub/")
		viper.AddConfigPath(".")
	}
	if err := viper.ReadInConfig(); err != nil {
		if _, unset := err.(viper.ConfigFileNotFoundError); !unset {
			fmt.Fprintln(os.Stderr, "Can't use config file:", err)
		}
	} else {
		log.Debugf("using config file %q", viper.ConfigFileUsed())
	}
}

// getConfig builds the runtime configuration from the resolved viper keys
func getConfig() config.Configuration {
	return config.Configuration{
		UserName:                  viper.GetString("user_name"),
		Password:                  viper.GetString("password"),
		PrivateKey:                viper.GetString("private_key"),
		URL:                       viper.GetString("url"),
		Port:                      viper.GetInt("port"),
		WorkingDirectory:          viper.GetString("working_directory"),
		DefaultPartition:          viper.GetString("default_partition"),
		DefaultAccount:            viper.GetString("default_account"),
		DefaultQOS:                viper.GetString("default_qos"),
		DefaultJobName:            viper.GetString("default_job_name"),
		JobMonitoringTimeInterval: viper.GetDuration("job_monitoring_time_interval"),
		KeepJobRemoteArtifacts:    viper.GetBool("keep_job_remote_artifacts"),
		Extra:                     config.DynamicMap(viper.GetStringMap("extra")),
	}
}
