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

	"github.com/redis/go-redis/v9"

	"github.com/caas-team/lark/pkg/probes"
)

// Redis dials a single-connection client and pings it
type Redis struct{}

func (Redis) Dial(_ context.Context, dsn string) (Session, error) {
	opts, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, probes.ErrInvalidCredentials{Service: probes.DriverRedis, Err: fmt.Errorf("failed to parse redis url: %w", err)}
	}
	opts.PoolSize = 1
	// retries belong to the probe's retry config
	opts.MaxRetries = -1
	opts.ContextTimeoutEnabled = true
	return &redisSession{client: redis.NewClient(opts)}, nil
}

type redisSession struct {
	client *redis.Client
}

func (s *redisSession) RoundTrip(ctx context.Context) (string, error) {
	pong, err := s.client.Ping(ctx).Result()
	if err != nil {
		return "", fmt.Errorf("ping failed: %w", err)
	}
	return pong, nil
}

func (s *redisSession) Close() error {
	return s.client.Close()
}
