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

package datastore

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caas-team/lark/pkg/probes"
)

const pingQuery = "SELECT 1"

// Postgres dials a pool limited to a single connection and holds that connection for the session
type Postgres struct{}

func (Postgres) Dial(ctx context.Context, dsn string) (Session, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, probes.ErrInvalidCredentials{Service: probes.DriverPostgres, Err: fmt.Errorf("failed to parse connection string: %w", err)}
	}
	cfg.MaxConns = 1
	cfg.MinConns = 0

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	conn, err := pool.Acquire(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return &pgSession{pool: pool, conn: conn}, nil
}

type pgSession struct {
	pool *pgxpool.Pool
	conn *pgxpool.Conn
}

func (s *pgSession) RoundTrip(ctx context.Context) (string, error) {
	var n int
	if err := s.conn.QueryRow(ctx, pingQuery).Scan(&n); err != nil {
		return "", fmt.Errorf("query failed: %w", err)
	}
	return strconv.Itoa(n), nil
}

func (s *pgSession) Close() error {
	s.conn.Release()
	s.pool.Close()
	return nil
}
