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

// Package datastore opens short-lived sessions against the data stores probed by lark.
package datastore

import (
	"context"

	"github.com/caas-team/lark/pkg/probes"
)

// Session is one exclusively owned connection to a data store
type Session interface {
	// RoundTrip runs the store's trivial query and returns the scalar it yields
	RoundTrip(ctx context.Context) (string, error)
	// Close releases the connection. It must be called on every exit path.
	Close() error
}

// Dialer opens sessions for a single driver
type Dialer interface {
	Dial(ctx context.Context, dsn string) (Session, error)
}

// DialerFunc adapts a function to the Dialer interface
type DialerFunc func(ctx context.Context, dsn string) (Session, error)

func (f DialerFunc) Dial(ctx context.Context, dsn string) (Session, error) {
	return f(ctx, dsn)
}

// Registry maps driver names to dialers
type Registry map[string]Dialer

// Defaults returns a registry with the postgres and redis dialers.
func Defaults() Registry {
	return Registry{
		probes.DriverPostgres: Postgres{},
		probes.DriverRedis:    Redis{},
	}
}

// Dial opens a session for the connection's driver.
func (r Registry) Dial(ctx context.Context, conn probes.Connection) (Session, error) {
	d, ok := r[conn.Driver]
	if !ok || d == nil {
		return nil, probes.ErrUnknownDriver{Driver: conn.Driver}
	}
	return d.Dial(ctx, conn.DSN)
}
