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

// Package harness runs the probe catalog: one Runner per probe, all dispatched at once.
package harness

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/caas-team/lark/internal/logger"
	"github.com/caas-team/lark/pkg/datastore"
	"github.com/caas-team/lark/pkg/probes"
	"github.com/caas-team/lark/pkg/redact"
	"github.com/sourcegraph/conc/iter"
)

type options struct {
	stores    StoreDialer
	secrets   []string
	now       func() time.Time
	onSettled func(probes.Outcome)
}

// Option configures a Harness or Runner
type Option func(*options)

// WithStores sets the dialers used by store probes.
func WithStores(s StoreDialer) Option {
	return func(o *options) { o.stores = s }
}

// WithSecrets adds values that must be redacted besides the probe credentials.
func WithSecrets(secrets ...string) Option {
	return func(o *options) { o.secrets = append(o.secrets, secrets...) }
}

// WithClock sets the clock used for outcome timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// OnSettled registers a callback invoked once per outcome as soon as its probe settles.
// Calls are serialized but arrive in completion order.
func OnSettled(f func(probes.Outcome)) Option {
	return func(o *options) { o.onSettled = f }
}

func apply(opts []Option) options {
	o := options{
		stores: datastore.Defaults(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Harness runs a fixed probe set exactly once per Run
type Harness struct {
	specs     []probes.Spec
	runner    *Runner
	onSettled func(probes.Outcome)
	mu        sync.Mutex
}

// New returns a harness over specs. The specs are copied.
func New(specs []probes.Spec, creds probes.Credentials, opts ...Option) *Harness {
	o := apply(opts)
	return &Harness{
		specs:     slices.Clone(specs),
		runner:    newRunner(creds, o),
		onSettled: o.onSettled,
	}
}

// Redactor returns the redactor shared by all probes of this harness.
func (h *Harness) Redactor() *redact.Redactor {
	return h.runner.Redactor()
}

// Run dispatches every probe concurrently and waits for all of them to settle.
// The outcomes are ordered like the specs, independent of completion order.
// A failing probe never cancels its siblings.
func (h *Harness) Run(ctx context.Context) []probes.Outcome {
	log := logger.FromContext(ctx)
	if len(h.specs) == 0 {
		log.Warn("No probes configured")
		return []probes.Outcome{}
	}

	log.Info("Running probes", "amount", len(h.specs))
	mapper := iter.Mapper[probes.Spec, probes.Outcome]{MaxGoroutines: len(h.specs)}
	outcomes := mapper.Map(h.specs, func(spec *probes.Spec) probes.Outcome {
		out := h.runner.Run(ctx, *spec)
		h.settled(out)
		return out
	})
	log.Info("All probes settled")
	return outcomes
}

func (h *Harness) settled(out probes.Outcome) {
	if h.onSettled == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onSettled(out)
}
