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

package lark

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/caas-team/lark/internal/logger"
	"github.com/caas-team/lark/pkg/config"
	"github.com/caas-team/lark/pkg/harness"
	"github.com/caas-team/lark/pkg/metrics"
	"github.com/caas-team/lark/pkg/probes"
	"github.com/caas-team/lark/pkg/redact"
	"github.com/caas-team/lark/pkg/report"
	"github.com/caas-team/lark/pkg/report/publish"
)

// Lark runs the probe catalog once and persists the resulting report
type Lark struct {
	cfg      *config.Config
	catalog  []probes.Spec
	stores   harness.StoreDialer
	workdir  string
	out      io.Writer
	now      func() time.Time
	redactor *redact.Redactor
}

type Option func(*Lark)

// WithCatalog replaces the built-in probe catalog
func WithCatalog(specs []probes.Spec) Option {
	return func(l *Lark) { l.catalog = specs }
}

// WithStores replaces the database dialers used by store probes
func WithStores(s harness.StoreDialer) Option {
	return func(l *Lark) { l.stores = s }
}

// WithWorkdir sets the directory the report directory is resolved against.
// When committing, the repository is discovered from here.
func WithWorkdir(dir string) Option {
	return func(l *Lark) { l.workdir = dir }
}

// WithOutput sets where progress lines are printed
func WithOutput(w io.Writer) Option {
	return func(l *Lark) { l.out = w }
}

func WithClock(now func() time.Time) Option {
	return func(l *Lark) { l.now = now }
}

// New creates a new Lark from the given configuration
func New(cfg *config.Config, opts ...Option) *Lark {
	l := &Lark{
		cfg:      cfg,
		catalog:  probes.Catalog(),
		workdir:  ".",
		out:      os.Stdout,
		now:      time.Now,
		redactor: redact.New(cfg.Git.Token),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Redactor returns the redactor covering every credential known to the last run
func (l *Lark) Redactor() *redact.Redactor {
	return l.redactor
}

// Run probes every service, then writes the report and its optional
// side outputs. A non-nil report is returned whenever the probes ran,
// even if persisting it failed.
func (l *Lark) Run(ctx context.Context) (*report.Report, error) {
	ctx, cancel := logger.NewContextWithLogger(ctx, "lark")
	defer cancel()
	log := logger.FromContext(ctx)

	keys := probes.CredentialKeys(l.catalog)
	l.redactor = redact.New(append(config.EnvironmentCredentials(keys).Values(), l.cfg.Git.Token)...)
	creds, err := config.LoadCredentials(ctx, l.cfg.Probes.EnvFile, keys)
	if err != nil {
		return nil, err
	}
	l.redactor = redact.New(append(creds.Values(), l.cfg.Git.Token)...)
	overrides, err := config.LoadOverrides(ctx, l.cfg.Probes.OverridesFile)
	if err != nil {
		return nil, err
	}
	specs, err := probes.Apply(l.catalog, l.cfg.Probes.Timeout, overrides)
	if err != nil {
		log.Error("Failed to apply overrides", "error", err)
		return nil, fmt.Errorf("failed to apply overrides: %w", err)
	}
	renderer, err := report.NewRenderer(l.cfg.Output.Format)
	if err != nil {
		return nil, err
	}

	opts := []harness.Option{
		harness.WithSecrets(l.cfg.Git.Token),
		harness.WithClock(l.now),
		harness.OnSettled(l.progress),
	}
	if l.stores != nil {
		opts = append(opts, harness.WithStores(l.stores))
	}
	h := harness.New(specs, creds, opts...)
	l.redactor = h.Redactor()

	rep := report.New(h.Run(ctx), l.now())
	log.Info("Probes finished", "pass", rep.Summary.Pass, "fail", rep.Summary.Fail, "skipped", rep.Summary.Skipped)

	path, err := l.persist(ctx, rep, renderer)
	if err != nil {
		log.Error("Failed to persist report", "error", l.redactor.Error(err))
		return rep, err
	}

	status := "FAILING"
	if rep.Summary.Passing {
		status = "PASSING"
	}
	fmt.Fprintf(l.out, "%d/%d passed, %d failed, %d skipped: %s (%s)\n",
		rep.Summary.Pass, rep.Summary.Total, rep.Summary.Fail, rep.Summary.Skipped, status, path)
	return rep, nil
}

// persist saves the report, exports metrics and commits the report if configured
func (l *Lark) persist(ctx context.Context, rep *report.Report, renderer report.Renderer) (string, error) {
	log := logger.FromContext(ctx)

	var (
		fs  billy.Filesystem = osfs.New(l.workdir)
		pub *publish.Publisher
		err error
	)
	if l.cfg.Git.Commit {
		pub, err = publish.Open(l.workdir, publish.Options{
			AuthorName:  l.cfg.Git.AuthorName,
			AuthorEmail: l.cfg.Git.AuthorEmail,
			Push:        l.cfg.Git.Push,
			Token:       l.cfg.Git.Token,
		})
		if err != nil {
			return "", err
		}
		if fs, err = pub.Filesystem(); err != nil {
			return "", err
		}
	}

	dir := l.cfg.Output.Dir
	if pub == nil && filepath.IsAbs(dir) {
		fs, dir = osfs.New(dir), "."
	}

	path, err := report.NewStore(fs, dir, renderer).Save(ctx, rep)
	if err != nil {
		return "", err
	}

	if f := l.cfg.Telemetry.MetricsFile; f != "" {
		if err = metrics.Export(rep, f); err != nil {
			return path, err
		}
		log.Debug("Metrics exported", "path", f)
	}

	if pub != nil {
		hash, err := pub.Commit(ctx, path)
		if err != nil {
			return path, err
		}
		if hash.IsZero() {
			log.Info("Report unchanged, nothing committed", "path", path)
		} else {
			log.Info("Report committed", "path", path, "commit", hash.String())
		}
	}
	return path, nil
}

func (l *Lark) progress(o probes.Outcome) {
	fmt.Fprintf(l.out, "%s %s: %s\n", report.Emoji(o.Status), o.Display, o.Message)
}

// ExitCode returns 0 only if the report was produced and persisted
// and every probe passed or was skipped.
func ExitCode(rep *report.Report, err error) int {
	if err != nil || rep == nil || !rep.Summary.Passing {
		return 1
	}
	return 0
}
