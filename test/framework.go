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
	"context"
	"testing"
	"time"

	"github.com/caas-team/lark/pkg/config"
	"github.com/caas-team/lark/pkg/probes"
	"github.com/caas-team/lark/test/upstream"
)

// Runner is a test that can be run.
type Runner interface {
	// Run runs the test.
	Run(ctx context.Context) error
}

// Framework is a test framework.
// It provides a way to run various tests.
type Framework struct {
	t *testing.T
}

// NewFramework creates a new test framework.
func NewFramework(t *testing.T) *Framework {
	t.Helper()
	return &Framework{t: t}
}

// E2E creates a new end-to-end test against a fake upstream.
// Every http probe is pointed at the upstream, store probes are disabled
// and no credential is set.
// If the test is run in short mode, it will be skipped.
func (f *Framework) E2E(t *testing.T) *E2E {
	MarkAsLong(t)

	up := upstream.New(t)
	cfg := config.NewConfig()
	cfg.SetTimeout(2 * time.Second)

	overrides := map[string]map[string]any{
		"postgres": {"enabled": false},
		"redis":    {"enabled": false},
	}
	for _, s := range upstream.Services {
		overrides[s] = map[string]any{"baseUrl": up.URL(s)}
	}

	creds := map[string]string{}
	for _, k := range probes.CredentialKeys(probes.Catalog()) {
		creds[k] = ""
	}

	return &E2E{
		t:         t,
		config:    cfg,
		upstream:  up,
		dir:       t.TempDir(),
		overrides: overrides,
		creds:     creds,
	}
}
