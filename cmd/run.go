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

package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/caas-team/lark/internal/httpclient"
	"github.com/caas-team/lark/internal/logger"
	"github.com/caas-team/lark/pkg/config"
	"github.com/caas-team/lark/pkg/lark"
	"github.com/caas-team/lark/pkg/probes"
	"github.com/caas-team/lark/pkg/report"
)

// NewCmdRun creates a new run command
func NewCmdRun(version string) *cobra.Command {
	flagMapping := config.RunFlagsNameMapping{
		OutputDir:     "output",
		Format:        "format",
		Timeout:       "timeout",
		EnvFile:       "envFile",
		OverridesFile: "overrides",
		LogFile:       "logFile",
		MetricsFile:   "metricsFile",
		Commit:        "commit",
		Push:          "push",
		CommitAuthor:  "commitAuthor",
		CommitEmail:   "commitEmail",
		GitToken:      "gitToken",
	}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run all probes once and write the report",
		Long: "Lark probes every configured service concurrently, writes the daily report and\n" +
			"exits with 0 if no probe failed and 1 otherwise",
		Run: run(&flagMapping, version),
	}

	NewFlag("output.dir", flagMapping.OutputDir).StringP("o").Bind(cmd, report.DefaultDir, "directory the daily report is written to")
	NewFlag("output.format", flagMapping.Format).String().Bind(cmd, string(report.FormatMarkdown), "report format: markdown or json")
	NewFlag("probes.timeout", flagMapping.Timeout).Duration().Bind(cmd, probes.DefaultTimeout, "timeout of a single probe")
	NewFlag("probes.envFile", flagMapping.EnvFile).String().Bind(cmd, "", "dotenv file to read credentials from. The process environment takes precedence")
	NewFlag("probes.overrides", flagMapping.OverridesFile).String().Bind(cmd, "", "yaml file with per-probe overrides")
	NewFlag("telemetry.logFile", flagMapping.LogFile).String().Bind(cmd, "", "additionally write logs to this file, rotated by size")
	NewFlag("telemetry.metricsFile", flagMapping.MetricsFile).String().Bind(cmd, "", "write prometheus metrics of the run to this file")
	NewFlag("git.commit", flagMapping.Commit).Bool().Bind(cmd, false, "git: commit the report to the repository of the working directory")
	NewFlag("git.push", flagMapping.Push).Bool().Bind(cmd, false, "git: push the commit to origin")
	NewFlag("git.author", flagMapping.CommitAuthor).String().Bind(cmd, "lark", "git: name of the commit author")
	NewFlag("git.email", flagMapping.CommitEmail).String().Bind(cmd, "", "git: email of the commit author")
	NewFlag("git.token", flagMapping.GitToken).String().Bind(cmd, "", "git: token used to push over https")

	return cmd
}

// run is the entry point to start lark
func run(fm *config.RunFlagsNameMapping, version string) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		os.Exit(execute(cmd.Context(), cmd.OutOrStdout(), fm, version))
	}
}

func execute(ctx context.Context, out io.Writer, fm *config.RunFlagsNameMapping, version string) int {
	var w io.Writer = os.Stderr
	if f := viper.GetString("telemetry.logFile"); f != "" {
		file := logger.NewRotatingFile(f)
		defer file.Close()
		w = io.MultiWriter(os.Stderr, file)
	}
	log := logger.NewLogger(logger.NewHandler(w))
	ctx = logger.IntoContext(ctx, log)
	ctx = httpclient.IntoContext(ctx, httpclient.New("lark/"+version))
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.NewConfig()

	cfg.SetOutputDir(viper.GetString("output.dir"))
	cfg.SetFormat(viper.GetString("output.format"))
	cfg.SetTimeout(viper.GetDuration("probes.timeout"))
	cfg.SetEnvFile(viper.GetString("probes.envFile"))
	cfg.SetOverridesFile(viper.GetString("probes.overrides"))
	cfg.SetLogFile(viper.GetString("telemetry.logFile"))
	cfg.SetMetricsFile(viper.GetString("telemetry.metricsFile"))
	cfg.SetCommit(viper.GetBool("git.commit"))
	cfg.SetPush(viper.GetBool("git.push"))
	cfg.SetCommitAuthor(viper.GetString("git.author"))
	cfg.SetCommitEmail(viper.GetString("git.email"))
	cfg.SetGitToken(viper.GetString("git.token"))

	if err := cfg.Validate(ctx, fm); err != nil {
		log.Error("Error while validating the config", "error", err)
		return 1
	}

	l := lark.New(cfg, lark.WithOutput(out))

	log.Info("Running lark", "version", version)
	rep, err := l.Run(ctx)
	if err != nil {
		log.Error("Lark run failed", "error", l.Redactor().Error(err))
	}
	return lark.ExitCode(rep, err)
}
