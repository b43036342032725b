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
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/caas-team/lark/internal/helper"
)

// Credential keys read from the environment
const (
	KeyDatabaseURL       = "DATABASE_URL"
	KeyNeonDatabaseURL   = "NEON_DATABASE_URL"
	KeyRedisURL          = "REDIS_URL"
	KeyRedisHost         = "REDIS_HOST"
	KeyRedisPort         = "REDIS_PORT"
	KeyRedisPassword     = "REDIS_PASSWORD"
	KeyDiscordBotToken   = "DISCORD_BOT_TOKEN"
	KeyDiscordWebhookURL = "DISCORD_WEBHOOK_URL"
	KeyRenderAPIKey      = "RENDER_API_KEY"
	KeyLinearAPIKey      = "LINEAR_API_KEY"
	KeyNeonAPIKey        = "NEON_API_KEY"
	KeyGitHubToken       = "GITHUB_TOKEN"
)

// Drivers understood by the store dialers
const (
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Default base URLs of the HTTP services
const (
	DiscordBaseURL = "https://discord.com"
	RenderBaseURL  = "https://api.render.com"
	LinearBaseURL  = "https://api.linear.app"
	NeonBaseURL    = "https://console.neon.tech"
	GitHubBaseURL  = "https://api.github.com"
)

const linearViewerQuery = "{ viewer { id name } }"

// Catalog returns the static probe set in report order.
// Every call returns fresh values, so callers may adjust them before running.
func Catalog() []Spec {
	return []Spec{
		{
			Name:    "postgres",
			Display: "PostgreSQL",
			Kind:    KindStore,
			Auth: []Auth{
				{Name: "database url", Keys: []string{KeyDatabaseURL}, Connect: dsnFrom(DriverPostgres, KeyDatabaseURL)},
				{Name: "neon database url", Keys: []string{KeyNeonDatabaseURL}, Connect: dsnFrom(DriverPostgres, KeyNeonDatabaseURL)},
			},
			Expect: Expect{Scalar: "1"},
		},
		{
			Name:    "redis",
			Display: "Redis",
			Kind:    KindStore,
			Auth: []Auth{
				{Name: "host and port", Keys: []string{KeyRedisHost, KeyRedisPort}, Optional: []string{KeyRedisPassword}, Connect: redisAddr},
				{Name: "redis url", Keys: []string{KeyRedisURL}, Connect: dsnFrom(DriverRedis, KeyRedisURL)},
			},
			Expect: Expect{Scalar: "PONG"},
		},
		{
			Name:    "discord",
			Display: "Discord",
			Kind:    KindHTTP,
			BaseURL: DiscordBaseURL,
			Auth: []Auth{
				{
					Name: "bot token",
					Keys: []string{KeyDiscordBotToken},
					Request: func(c Credentials, base string) (Request, error) {
						token, _ := c.Get(KeyDiscordBotToken)
						return get(base, "/api/v10/users/@me", http.Header{"Authorization": {"Bot " + token}})
					},
				},
				{
					Name: "webhook",
					Keys: []string{KeyDiscordWebhookURL},
					Request: func(c Credentials, _ string) (Request, error) {
						hook, _ := c.Get(KeyDiscordWebhookURL)
						return get(hook, "", nil)
					},
					// a webhook only accepts POST, so 405 proves it exists
					Expect: &Expect{
						Codes:    []int{http.StatusOK, http.StatusNoContent, http.StatusMethodNotAllowed},
						Identity: "name",
					},
				},
			},
			Expect: Expect{Identity: "username"},
		},
		{
			Name:    "render",
			Display: "Render",
			Kind:    KindHTTP,
			BaseURL: RenderBaseURL,
			Auth:    []Auth{bearer(KeyRenderAPIKey, "/v1/services", nil)},
		},
		{
			Name:    "linear",
			Display: "Linear",
			Kind:    KindHTTP,
			BaseURL: LinearBaseURL,
			Auth: []Auth{
				{
					Name: "api key",
					Keys: []string{KeyLinearAPIKey},
					Request: func(c Credentials, base string) (Request, error) {
						key, _ := c.Get(KeyLinearAPIKey)
						body, err := json.Marshal(map[string]string{"query": linearViewerQuery})
						if err != nil {
							return Request{}, err
						}
						req, err := get(base, "/graphql", http.Header{
							"Authorization": {key},
							"Content-Type":  {"application/json"},
						})
						req.Method, req.Body = http.MethodPost, body
						return req, err
					},
				},
			},
			Expect: Expect{GraphQL: true, Require: []string{"data.viewer"}, Identity: "data.viewer.name"},
		},
		{
			Name:    "neon",
			Display: "NeonDB",
			Kind:    KindHTTP,
			BaseURL: NeonBaseURL,
			Auth:    []Auth{bearer(KeyNeonAPIKey, "/api/v2/projects", nil)},
		},
		{
			Name:    "github",
			Display: "GitHub",
			Kind:    KindHTTP,
			BaseURL: GitHubBaseURL,
			Auth: []Auth{bearer(KeyGitHubToken, "/user", http.Header{
				"Accept":               {"application/vnd.github+json"},
				"X-GitHub-Api-Version": {"2022-11-28"},
			})},
			Expect: Expect{Identity: "login"},
		},
	}
}

// Override adjusts a catalog entry from operator configuration
type Override struct {
	Enabled *bool               `json:"enabled,omitempty" yaml:"enabled,omitempty" mapstructure:"enabled"`
	Timeout time.Duration       `json:"timeout,omitempty" yaml:"timeout,omitempty" mapstructure:"timeout"`
	BaseURL string              `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty" mapstructure:"baseUrl"`
	Retry   *helper.RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty" mapstructure:"retry"`
}

// Apply returns a copy of specs with the overrides applied.
// defaultTimeout is used for every spec without its own timeout when positive.
func Apply(specs []Spec, defaultTimeout time.Duration, overrides map[string]Override) ([]Spec, error) {
	known := make(map[string]bool, len(specs))
	out := make([]Spec, len(specs))
	for i, s := range specs {
		known[s.Name] = true
		if s.Timeout <= 0 && defaultTimeout > 0 {
			s.Timeout = defaultTimeout
		}
		if o, ok := overrides[s.Name]; ok {
			if o.Enabled != nil {
				s.Disabled = !*o.Enabled
			}
			if o.Timeout > 0 {
				s.Timeout = o.Timeout
			}
			if o.BaseURL != "" {
				if s.Kind != KindHTTP {
					return nil, fmt.Errorf("probe %q: baseUrl is only valid for http probes", s.Name)
				}
				s.BaseURL = strings.TrimSuffix(o.BaseURL, "/")
			}
			if o.Retry != nil {
				s.Retry = *o.Retry
			}
		}
		out[i] = s
	}

	for name := range overrides {
		if !known[name] {
			return nil, fmt.Errorf("override for unknown probe %q", name)
		}
	}
	return out, nil
}

func bearer(key, path string, extra http.Header) Auth {
	return Auth{
		Name: "bearer token",
		Keys: []string{key},
		Request: func(c Credentials, base string) (Request, error) {
			token, _ := c.Get(key)
			h := http.Header{"Authorization": {"Bearer " + token}, "Accept": {"application/json"}}
			for k, v := range extra {
				h[k] = v
			}
			return get(base, path, h)
		},
	}
}

func get(base, path string, h http.Header) (Request, error) {
	u, err := url.Parse(strings.TrimSuffix(base, "/") + path)
	if err != nil {
		return Request{}, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Request{}, fmt.Errorf("invalid url scheme %q", u.Scheme)
	}
	if h == nil {
		h = http.Header{}
	}
	return Request{Method: http.MethodGet, URL: u.String(), Header: h}, nil
}

func dsnFrom(driver, key string) func(Credentials) (Connection, error) {
	return func(c Credentials) (Connection, error) {
		dsn, _ := c.Get(key)
		return Connection{Driver: driver, DSN: strings.TrimSpace(dsn)}, nil
	}
}

func redisAddr(c Credentials) (Connection, error) {
	host, _ := c.Get(KeyRedisHost)
	port, _ := c.Get(KeyRedisPort)
	u := url.URL{Scheme: "redis", Host: net.JoinHostPort(strings.TrimSpace(host), strings.TrimSpace(port))}
	if pw, ok := c.Get(KeyRedisPassword); ok {
		u.User = url.UserPassword("", pw)
	}
	return Connection{Driver: DriverRedis, DSN: u.String()}, nil
}
