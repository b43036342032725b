// lark
// (C) 2024, Deutsche Telekom IT GmbH
//
// Deutsche Telekom IT GmbH and all other contributors /
// copyright owners license this file to you under the Apache
// License, Version 2.0 (the "License"); you may not use this
// file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package config

import (
	"time"

	"github.com/caas-team/lark/pkg/probes"
	"github.com/caas-team/lark/pkg/report"
)

type Config struct {
	Output    OutputConfig
	Probes    ProbesConfig
	Telemetry TelemetryConfig
	Git       GitConfig
}

// OutputConfig is the configuration of the report artifact
type OutputConfig struct {
	Dir    string
	Format report.Format
}

// ProbesConfig is the configuration of the probe run
type ProbesConfig struct {
	// Timeout is the default per-probe timeout
	Timeout time.Duration
	// EnvFile is an optional dotenv file read before the environment
	EnvFile string
	// OverridesFile is an optional yaml file with per-probe overrides
	OverridesFile string
}

// TelemetryConfig is the configuration of the run's side outputs
type TelemetryConfig struct {
	LogFile     string
	MetricsFile string
}

// GitConfig is the configuration for committing the report
type GitConfig struct {
	Commit      bool
	Push        bool
	AuthorName  string
	AuthorEmail string
	Token       string
}

// NewConfig creates a new Config
func NewConfig() *Config {
	return &Config{
		Output: OutputConfig{
			Dir:    report.DefaultDir,
			Format: report.FormatMarkdown,
		},
		Probes: ProbesConfig{
			Timeout: probes.DefaultTimeout,
		},
	}
}

// SetOutputDir sets the report directory
func (c *Config) SetOutputDir(dir string) {
	c.Output.Dir = dir
}

// SetFormat sets the report format
func (c *Config) SetFormat(format string) {
	c.Output.Format = report.Format(format)
}

// SetTimeout sets the default per-probe timeout
func (c *Config) SetTimeout(timeout time.Duration) {
	c.Probes.Timeout = timeout
}

func (c *Config) SetEnvFile(path string) {
	c.Probes.EnvFile = path
}

func (c *Config) SetOverridesFile(path string) {
	c.Probes.OverridesFile = path
}

func (c *Config) SetLogFile(path string) {
	c.Telemetry.LogFile = path
}

func (c *Config) SetMetricsFile(path string) {
	c.Telemetry.MetricsFile = path
}

// SetCommit enables committing the report to the enclosing git repository
func (c *Config) SetCommit(commit bool) {
	c.Git.Commit = commit
}

// SetPush enables pushing the report commit
func (c *Config) SetPush(push bool) {
	c.Git.Push = push
}

func (c *Config) SetCommitAuthor(name string) {
	c.Git.AuthorName = name
}

func (c *Config) SetCommitEmail(email string) {
	c.Git.AuthorEmail = email
}

// SetGitToken sets the token used to push the report
func (c *Config) SetGitToken(token string) {
	c.Git.Token = token
}
