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
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caas-team/lark/internal/logger"
	"github.com/caas-team/lark/pkg/report"
)

// maxTimeout bounds the per-probe timeout
const maxTimeout = 5 * time.Minute

// Validate validates the config
func (c *Config) Validate(ctx context.Context, fm *RunFlagsNameMapping) error {
	ctx, cancel := logger.NewContextWithLogger(ctx, "configValidation")
	defer cancel()
	log := logger.FromContext(ctx)

	var errs []error
	if strings.TrimSpace(c.Output.Dir) == "" {
		log.ErrorContext(ctx, "The report directory must not be empty", fm.OutputDir, c.Output.Dir)
		errs = append(errs, ErrInvalidOutputDir)
	}
	if _, err := report.NewRenderer(c.Output.Format); err != nil {
		log.ErrorContext(ctx, "The report format is not supported", fm.Format, c.Output.Format)
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidFormat, c.Output.Format))
	}
	if c.Probes.Timeout <= 0 || c.Probes.Timeout > maxTimeout {
		log.ErrorContext(ctx, "The probe timeout should be above 0 and at most 5m", fm.Timeout, c.Probes.Timeout.String())
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidTimeout, c.Probes.Timeout))
	}

	for flag, path := range map[string]string{fm.EnvFile: c.Probes.EnvFile, fm.OverridesFile: c.Probes.OverridesFile} {
		if path == "" {
			continue
		}
		if fi, err := os.Stat(path); err != nil || fi.IsDir() {
			log.ErrorContext(ctx, "The file does not exist or is a directory", flag, path)
			errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidFile, path))
		}
	}

	if c.Git.Push && !c.Git.Commit {
		log.ErrorContext(ctx, "Pushing requires committing the report", fm.Push, c.Git.Push, fm.Commit, c.Git.Commit)
		errs = append(errs, fmt.Errorf("%w: push without commit", ErrInvalidGitConfig))
	}
	if c.Git.Commit && filepath.IsAbs(c.Output.Dir) {
		log.ErrorContext(ctx, "The report directory must be relative to the repository when committing", fm.OutputDir, c.Output.Dir)
		errs = append(errs, fmt.Errorf("%w: absolute report directory", ErrInvalidGitConfig))
	}
	if c.Git.Commit && c.Git.AuthorEmail != "" && !strings.Contains(c.Git.AuthorEmail, "@") {
		log.ErrorContext(ctx, "The commit email is not a valid address", fm.CommitEmail, c.Git.AuthorEmail)
		errs = append(errs, fmt.Errorf("%w: commit email", ErrInvalidGitConfig))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation of configuration failed: %w", errors.Join(errs...))
	}
	return nil
}
