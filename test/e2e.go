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

package test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/caas-team/lark/pkg/config"
	"github.com/caas-team/lark/pkg/lark"
	"github.com/caas-team/lark/pkg/probes"
	"github.com/caas-team/lark/pkg/report"
	"github.com/caas-team/lark/test/upstream"
)

var _ Runner = (*E2E)(nil)

// E2E is an end-to-end test of a single lark run.
type E2E struct {
	t         *testing.T
	config    *config.Config
	upstream  *upstream.Server
	dir       string
	overrides map[string]map[string]any
	creds     map[string]string
	out       bytes.Buffer

	mu     sync.Mutex
	ran    bool
	report *report.Report
	err    error
}

// WithCredentials sets credentials in the process environment for the run.
func (t *E2E) WithCredentials(creds map[string]string) *E2E {
	for k, v := range creds {
		t.creds[k] = v
	}
	return t
}

// WithOverride merges the given keys into the overrides of a probe.
func (t *E2E) WithOverride(probe string, values map[string]any) *E2E {
	if t.overrides[probe] == nil {
		t.overrides[probe] = map[string]any{}
	}
	for k, v := range values {
		t.overrides[probe][k] = v
	}
	return t
}

// WithConfig lets the test change the configuration before the run.
func (t *E2E) WithConfig(f func(*config.Config)) *E2E {
	f(t.config)
	return t
}

// Upstream returns the fake upstream the http probes talk to.
func (t *E2E) Upstream() *upstream.Server {
	return t.upstream
}

// Dir returns the working directory of the run.
func (t *E2E) Dir() string {
	return t.dir
}

// Run writes the overrides file, sets the credentials and runs lark once.
func (t *E2E) Run(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ran {
		t.t.Fatal("E2E.Run must be called once")
	}
	t.ran = true

	for k, v := range t.creds {
		t.t.Setenv(k, v)
	}

	b, err := yaml.Marshal(map[string]any{"probes": t.overrides})
	if err != nil {
		t.t.Fatalf("Failed to marshal overrides: %v", err)
	}
	path := filepath.Join(t.dir, "overrides.yaml")
	if err = os.WriteFile(path, b, 0o600); err != nil {
		t.t.Fatalf("Failed to write overrides: %v", err)
	}
	t.config.SetOverridesFile(path)

	fm := &config.RunFlagsNameMapping{}
	if err = t.config.Validate(ctx, fm); err != nil {
		t.t.Fatalf("Invalid config: %v", err)
	}

	t.report, t.err = lark.New(t.config, lark.WithWorkdir(t.dir), lark.WithOutput(&t.out)).Run(ctx)
	return t.err
}

// Report returns the report of the run.
func (t *E2E) Report() *report.Report {
	t.t.Helper()
	t.mustHaveRun()
	return t.report
}

// ExitCode returns the exit code the run would have ended with.
func (t *E2E) ExitCode() int {
	t.t.Helper()
	t.mustHaveRun()
	return lark.ExitCode(t.report, t.err)
}

// Outcome returns the outcome of the named probe.
func (t *E2E) Outcome(name string) probes.Outcome {
	t.t.Helper()
	for _, o := range t.Report().Outcomes {
		if o.Service == name {
			return o
		}
	}
	t.t.Fatalf("No outcome for probe %q", name)
	return probes.Outcome{}
}

// ReportFile returns the content of the persisted report.
func (t *E2E) ReportFile() string {
	t.t.Helper()
	r, err := report.NewRenderer(t.config.Output.Format)
	if err != nil {
		t.t.Fatalf("Invalid format: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(t.dir, t.config.Output.Dir, report.FileName(t.Report().GeneratedAt, r)))
	if err != nil {
		t.t.Fatalf("Failed to read report: %v", err)
	}
	return string(b)
}

// Output returns what the run printed.
func (t *E2E) Output() string {
	t.mustHaveRun()
	return t.out.String()
}

func (t *E2E) mustHaveRun() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.ran {
		t.t.Fatal("E2E.Run must be called first")
	}
}
