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
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrMissingCredentials is returned when none of a probe's authentication modes is fully configured
type ErrMissingCredentials struct {
	Service      string
	Alternatives [][]string
}

func (e ErrMissingCredentials) Error() string {
	return fmt.Sprintf("missing credentials for %q: %s not configured", e.Service, e.Keys())
}

// Keys renders the accepted key combinations, e.g. "REDIS_URL or REDIS_HOST+REDIS_PORT".
func (e ErrMissingCredentials) Keys() string {
	alts := make([]string, 0, len(e.Alternatives))
	for _, a := range e.Alternatives {
		alts = append(alts, strings.Join(a, "+"))
	}
	return strings.Join(alts, " or ")
}

// ErrInvalidCredentials is returned when configured credentials cannot be turned into a request or connection
type ErrInvalidCredentials struct {
	Service string
	Err     error
}

func (e ErrInvalidCredentials) Error() string {
	return fmt.Sprintf("invalid credentials for %q: %v", e.Service, e.Err)
}

func (e ErrInvalidCredentials) Unwrap() error {
	return e.Err
}

// ErrUnexpectedStatus is returned when a service answers with a status code outside the accepted set
type ErrUnexpectedStatus struct {
	Code int
	Body string
}

func (e ErrUnexpectedStatus) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status code %d", e.Code)
	}
	return fmt.Sprintf("unexpected status code %d: %s", e.Code, e.Body)
}

// ErrUnexpectedBody is returned when a response body does not satisfy the expectation
type ErrUnexpectedBody struct {
	Reason string
}

func (e ErrUnexpectedBody) Error() string {
	return fmt.Sprintf("unexpected response body: %s", e.Reason)
}

// ErrUnexpectedScalar is returned when a store round trip yields the wrong value
type ErrUnexpectedScalar struct {
	Want string
	Got  string
}

func (e ErrUnexpectedScalar) Error() string {
	return fmt.Sprintf("unexpected result: expected %q, got %q", e.Want, e.Got)
}

// ErrUnknownDriver is returned when no dialer is registered for a connection's driver
type ErrUnknownDriver struct {
	Driver string
}

func (e ErrUnknownDriver) Error() string {
	return fmt.Sprintf("no dialer registered for driver %q", e.Driver)
}

// ErrPanic wraps a value recovered from a panicking probe
type ErrPanic struct {
	Value any
}

func (e ErrPanic) Error() string {
	return fmt.Sprintf("probe panicked: %v", e.Value)
}

// Classify maps an attempt error to a failure reason.
func Classify(err error) Reason {
	if err == nil {
		return ReasonNone
	}

	var (
		missing  ErrMissingCredentials
		invalid  ErrInvalidCredentials
		status   ErrUnexpectedStatus
		body     ErrUnexpectedBody
		scalar   ErrUnexpectedScalar
		driver   ErrUnknownDriver
		panicked ErrPanic
	)
	switch {
	case errors.As(err, &missing), errors.As(err, &invalid):
		return ReasonConfiguration
	case errors.As(err, &panicked), errors.As(err, &driver):
		return ReasonInternal
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.As(err, &status), errors.As(err, &body), errors.As(err, &scalar):
		return ReasonProtocol
	default:
		return ReasonNetwork
	}
}
