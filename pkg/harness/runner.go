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

package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/caas-team/lark/internal/helper"
	"github.com/caas-team/lark/internal/httpclient"
	"github.com/caas-team/lark/internal/logger"
	"github.com/caas-team/lark/pkg/datastore"
	"github.com/caas-team/lark/pkg/probes"
	"github.com/caas-team/lark/pkg/redact"
	"github.com/sourcegraph/conc/panics"
)

const (
	// maxBody bounds how much of a response body is read
	maxBody = 1 << 20
	// grace is how long a cancelled attempt may take to unwind before the runner stops waiting for it
	grace = 250 * time.Millisecond
)

// StoreDialer opens data store sessions for store probes
type StoreDialer interface {
	Dial(ctx context.Context, conn probes.Connection) (datastore.Session, error)
}

// Runner executes single probes. It never panics and never returns an error:
// every failure becomes a failed outcome whose text has passed the redactor.
type Runner struct {
	creds    probes.Credentials
	redactor *redact.Redactor
	stores   StoreDialer
	now      func() time.Time
}

// NewRunner returns a runner using creds for every probe.
func NewRunner(creds probes.Credentials, opts ...Option) *Runner {
	return newRunner(creds, apply(opts))
}

func newRunner(creds probes.Credentials, o options) *Runner {
	return &Runner{
		creds:    creds,
		redactor: redact.New(append(creds.Values(), o.secrets...)...),
		stores:   o.stores,
		now:      o.now,
	}
}

// Redactor returns the redactor guarding this runner's output.
func (r *Runner) Redactor() *redact.Redactor {
	return r.redactor
}

// dispatch records when the probe started talking to its service
type dispatch struct {
	at time.Time
}

func (d *dispatch) latency(now time.Time) *time.Duration {
	if d.at.IsZero() {
		return nil
	}
	l := now.Sub(d.at)
	return &l
}

// Run executes spec once and returns its outcome.
func (r *Runner) Run(ctx context.Context, spec probes.Spec) (out probes.Outcome) {
	log := logger.FromContext(ctx).With("probe", spec.Name)
	ctx = logger.IntoContext(ctx, log)

	d := &dispatch{}
	var c panics.Catcher
	c.Try(func() { out = r.run(ctx, spec, d) })
	if rec := c.Recovered(); rec != nil {
		out = r.settle(spec, probes.StatusFail, probes.ReasonInternal,
			fmt.Sprintf("Internal error while probing %s", spec.Display),
			probes.ErrPanic{Value: rec.Value}, d.latency(time.Now()))
		log.Error("Probe panicked", "error", out.Error)
	}
	return out
}

func (r *Runner) run(ctx context.Context, spec probes.Spec, d *dispatch) probes.Outcome {
	log := logger.FromContext(ctx)

	if spec.Disabled {
		log.Debug("Probe disabled")
		return r.settle(spec, probes.StatusSkipped, probes.ReasonNone, fmt.Sprintf("%s probe disabled", spec.Display), nil, nil)
	}

	auth, ok := spec.Select(r.creds)
	if !ok {
		missing := spec.Missing()
		log.Debug("Credentials missing", "keys", missing.Keys())
		return r.settle(spec, probes.MissingCredentialStatus, probes.ReasonConfiguration,
			fmt.Sprintf("%s not configured", missing.Keys()), nil, nil)
	}

	effector, err := r.effector(spec, auth)
	if err != nil {
		err = probes.ErrInvalidCredentials{Service: spec.Name, Err: err}
		return r.settle(spec, probes.StatusFail, probes.ReasonConfiguration,
			fmt.Sprintf("Invalid %s configuration for %s", auth.Name, spec.Display), err, nil)
	}

	timeout := spec.EffectiveTimeout()
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log.Debug("Dispatching probe", "mode", auth.Name, "timeout", timeout.String())
	d.at = time.Now()
	identity, err := await(pctx, helper.Retry(effector.call, spec.Retry), effector)
	latency := d.latency(time.Now())

	if err == nil {
		return r.settle(spec, probes.StatusPass, probes.ReasonNone, success(spec, identity), nil, latency)
	}

	reason := probes.Classify(err)
	if errors.Is(pctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		reason = probes.ReasonTimeout
	}
	out := r.settle(spec, probes.StatusFail, reason, failure(spec, reason, timeout, err), err, latency)
	log.Warn("Probe failed", "reason", out.Reason, "error", out.Error)
	return out
}

// attempt is the per-probe effector with the identity found on success
type attempt struct {
	call     helper.Effector
	identity string
}

func (r *Runner) effector(spec probes.Spec, auth probes.Auth) (*attempt, error) {
	expect := spec.Expectation(auth)
	a := &attempt{}

	switch spec.Kind {
	case probes.KindHTTP:
		if auth.Request == nil {
			return nil, fmt.Errorf("no request builder for %s", auth.Name)
		}
		req, err := auth.Request(r.creds, spec.BaseURL)
		if err != nil {
			return nil, err
		}
		a.call = func(ctx context.Context) error {
			id, err := doHTTP(ctx, req, expect)
			a.identity = id
			return err
		}
	case probes.KindStore:
		if auth.Connect == nil {
			return nil, fmt.Errorf("no connection builder for %s", auth.Name)
		}
		conn, err := auth.Connect(r.creds)
		if err != nil {
			return nil, err
		}
		a.call = func(ctx context.Context) error {
			return r.roundTrip(ctx, conn, expect)
		}
	default:
		return nil, fmt.Errorf("unknown probe kind %d", spec.Kind)
	}
	return a, nil
}

type result struct {
	identity string
	err      error
}

// await runs call in its own goroutine and returns once it settled or ctx expired.
// A call that ignores cancellation is given a short grace period and then abandoned;
// it still releases its own resources when it eventually returns.
func await(ctx context.Context, call helper.Effector, a *attempt) (string, error) {
	done := make(chan result, 1)
	go func() {
		var c panics.Catcher
		var res result
		c.Try(func() {
			res.err = call(ctx)
			res.identity = a.identity
		})
		if rec := c.Recovered(); rec != nil {
			res.err = probes.ErrPanic{Value: rec.Value}
		}
		done <- res
	}()

	select {
	case res := <-done:
		return res.identity, res.err
	case <-ctx.Done():
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case res := <-done:
		return res.identity, res.err
	case <-timer.C:
		logger.FromContext(ctx).Warn("Probe did not unwind after cancellation, abandoning it")
		return "", ctx.Err()
	}
}

func doHTTP(ctx context.Context, req probes.Request, expect probes.Expect) (string, error) {
	client := httpclient.FromContext(ctx)

	var body io.Reader = http.NoBody
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return "", helper.Permanent(err)
	}
	hreq.Header = req.Header.Clone()

	resp, err := client.Do(hreq) //nolint:bodyclose // closed in defer below
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	id, err := expect.Check(resp.StatusCode, data)
	if err != nil {
		return "", helper.Permanent(err)
	}
	return id, nil
}

func (r *Runner) roundTrip(ctx context.Context, conn probes.Connection, expect probes.Expect) error {
	log := logger.FromContext(ctx)

	session, err := r.stores.Dial(ctx, conn)
	if err != nil {
		var (
			unknown probes.ErrUnknownDriver
			invalid probes.ErrInvalidCredentials
		)
		if errors.As(err, &unknown) || errors.As(err, &invalid) {
			return helper.Permanent(err)
		}
		return err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			log.Debug("Failed to close session", "error", r.redactor.Error(cerr))
		}
	}()

	got, err := session.RoundTrip(ctx)
	if err != nil {
		return err
	}
	if err := expect.CheckScalar(got); err != nil {
		return helper.Permanent(err)
	}
	return nil
}

// settle builds the outcome; every text field passes the redactor here and nowhere else
func (r *Runner) settle(spec probes.Spec, status probes.Status, reason probes.Reason, message string, err error, latency *time.Duration) probes.Outcome {
	out := probes.Outcome{
		Service:   spec.Name,
		Display:   spec.Display,
		Status:    status,
		Reason:    reason,
		Message:   r.redactor.Redact(message),
		Timestamp: r.now().UTC(),
	}
	if err != nil {
		out.Error = r.redactor.Error(err)
	}
	if latency != nil {
		ms := latency.Milliseconds()
		out.LatencyMs = &ms
	}
	return out
}

func target(spec probes.Spec) string {
	if spec.Kind == probes.KindStore {
		return spec.Display
	}
	return spec.Display + " API"
}

func success(spec probes.Spec, identity string) string {
	msg := target(spec) + " accessible"
	if spec.Kind == probes.KindStore {
		msg = spec.Display + " connection successful"
	}
	if identity != "" {
		msg += fmt.Sprintf(" (%s)", identity)
	}
	return msg
}

func failure(spec probes.Spec, reason probes.Reason, timeout time.Duration, err error) string {
	var status probes.ErrUnexpectedStatus
	switch {
	case reason == probes.ReasonConfiguration:
		return fmt.Sprintf("Invalid connection configuration for %s", spec.Display)
	case reason == probes.ReasonTimeout:
		return fmt.Sprintf("%s did not respond within %s", target(spec), timeout)
	case errors.As(err, &status):
		return fmt.Sprintf("%s returned status %d", target(spec), status.Code)
	case reason == probes.ReasonProtocol && spec.Kind == probes.KindStore:
		return fmt.Sprintf("%s returned unexpected result", target(spec))
	case reason == probes.ReasonProtocol:
		return fmt.Sprintf("%s returned unexpected response", target(spec))
	case reason == probes.ReasonInternal:
		return fmt.Sprintf("Internal error while probing %s", spec.Display)
	case spec.Kind == probes.KindStore:
		return fmt.Sprintf("Failed to connect to %s", spec.Display)
	default:
		return fmt.Sprintf("Failed to reach %s", target(spec))
	}
}
