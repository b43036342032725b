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

package probes

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/caas-team/lark/internal/helper"
)

// DefaultTimeout bounds a single probe unless its spec says otherwise
const DefaultTimeout = 10 * time.Second

// Status is the result class of a probe
type Status string

const (
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
	StatusSkipped Status = "skipped"
)

// MissingCredentialStatus is the status recorded for a probe whose credentials
// are absent. Such a probe counts as failed and forces a non-zero exit code.
// StatusSkipped is reserved for probes disabled by the operator.
const MissingCredentialStatus = StatusFail

// Reason names the class of failure behind a failed outcome
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonConfiguration Reason = "configuration"
	ReasonNetwork       Reason = "network"
	ReasonTimeout       Reason = "timeout"
	ReasonProtocol      Reason = "protocol"
	ReasonInternal      Reason = "internal"
)

// Kind distinguishes how a probe talks to its service
type Kind int

const (
	// KindHTTP probes send one HTTP request
	KindHTTP Kind = iota
	// KindStore probes open a connection and run a trivial round trip
	KindStore
)

func (k Kind) String() string {
	if k == KindStore {
		return "store"
	}
	return "http"
}

// Credentials are the secret values supplied by the environment, keyed by variable name.
// They are read-only once loaded.
type Credentials map[string]string

// Get returns the value for key and whether it is present and non-blank.
func (c Credentials) Get(key string) (string, bool) {
	v, ok := c[key]
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// Has reports whether every key is present.
func (c Credentials) Has(keys ...string) bool {
	for _, k := range keys {
		if _, ok := c.Get(k); !ok {
			return false
		}
	}
	return true
}

// Values returns all present values without surrounding whitespace,
// the input of the redaction boundary.
func (c Credentials) Values() []string {
	out := make([]string, 0, len(c))
	for k := range c {
		if v, ok := c.Get(k); ok {
			out = append(out, strings.TrimSpace(v))
		}
	}
	slices.Sort(out)
	return out
}

// Request is a concrete HTTP request derived from credentials
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Connection describes how to reach a data store
type Connection struct {
	// Driver selects the dialer, e.g. "postgres" or "redis"
	Driver string
	// DSN is the connection string handed to the driver
	DSN string
}

// Auth is one way of authenticating against a service.
// Exactly one of Request and Connect is set, matching the kind of the spec.
type Auth struct {
	// Name describes the mode in messages, e.g. "bot token"
	Name string
	// Keys must all be present for this mode to be used
	Keys []string
	// Optional keys are used when present
	Optional []string
	// Request builds the HTTP request. base is the spec's base URL.
	Request func(c Credentials, base string) (Request, error)
	// Connect builds the store connection descriptor
	Connect func(c Credentials) (Connection, error)
	// Expect replaces the spec's expectation for this mode when set
	Expect *Expect
}

// Spec is the static description of one checkable service
type Spec struct {
	// Name identifies the probe, e.g. "github"
	Name string
	// Display is the human-readable service name, e.g. "GitHub"
	Display string
	Kind    Kind
	// BaseURL is passed to HTTP request builders
	BaseURL string
	// Auth lists authentication modes in order of preference; the first whose keys are present wins
	Auth []Auth
	// Expect is the success predicate
	Expect Expect
	// Timeout bounds the whole attempt including retries
	Timeout time.Duration
	// Retry retries network failures within the timeout
	Retry helper.RetryConfig
	// Disabled probes are skipped without dispatching anything
	Disabled bool
}

// Select returns the first authentication mode whose keys are all present.
func (s *Spec) Select(c Credentials) (Auth, bool) {
	for _, a := range s.Auth {
		if c.Has(a.Keys...) {
			return a, true
		}
	}
	return Auth{}, false
}

// Missing returns the error describing which credentials the spec lacks.
func (s *Spec) Missing() ErrMissingCredentials {
	alts := make([][]string, 0, len(s.Auth))
	for _, a := range s.Auth {
		alts = append(alts, a.Keys)
	}
	return ErrMissingCredentials{Service: s.Name, Alternatives: alts}
}

// Expectation returns the success predicate used with the given mode.
func (s *Spec) Expectation(a Auth) Expect {
	if a.Expect != nil {
		return *a.Expect
	}
	return s.Expect
}

// EffectiveTimeout returns the spec's timeout or the default.
func (s *Spec) EffectiveTimeout() time.Duration {
	if s.Timeout <= 0 {
		return DefaultTimeout
	}
	return s.Timeout
}

// CredentialKeys lists every credential key referenced by specs, in catalog order without duplicates.
func CredentialKeys(specs []Spec) []string {
	var keys []string
	for _, s := range specs {
		for _, a := range s.Auth {
			for _, k := range append(slices.Clone(a.Keys), a.Optional...) {
				if !slices.Contains(keys, k) {
					keys = append(keys, k)
				}
			}
		}
	}
	return keys
}

// Outcome is the immutable record of one probe attempt.
// Message and Error only ever hold redacted text.
type Outcome struct {
	Service   string    `json:"service" yaml:"service"`
	Display   string    `json:"display" yaml:"display"`
	Status    Status    `json:"status" yaml:"status"`
	Reason    Reason    `json:"reason,omitempty" yaml:"reason,omitempty"`
	Message   string    `json:"message" yaml:"message"`
	Error     string    `json:"error,omitempty" yaml:"error,omitempty"`
	LatencyMs *int64    `json:"latencyMs,omitempty" yaml:"latencyMs,omitempty"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Dispatched reports whether the probe reached the point of contacting its service.
func (o Outcome) Dispatched() bool {
	return o.LatencyMs != nil
}
