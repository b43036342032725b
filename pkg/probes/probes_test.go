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
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/caas-team/lark/internal/helper"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_Order(t *testing.T) {
	var names []string
	for _, s := range Catalog() {
		names = append(names, s.Name)
	}
	want := []string{"postgres", "redis", "discord", "render", "linear", "neon", "github"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("Catalog() order mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalog_AuthShape(t *testing.T) {
	for _, s := range Catalog() {
		t.Run(s.Name, func(t *testing.T) {
			require.NotEmpty(t, s.Auth)
			for _, a := range s.Auth {
				assert.NotEmpty(t, a.Keys)
				switch s.Kind {
				case KindHTTP:
					assert.NotNil(t, a.Request, "http probes build requests")
					assert.Nil(t, a.Connect)
				case KindStore:
					assert.NotNil(t, a.Connect, "store probes build connections")
					assert.Nil(t, a.Request)
				}
			}
		})
	}
}

func TestCredentials(t *testing.T) {
	c := Credentials{"A": "x", "B": "  ", "C": "z"}

	v, ok := c.Get("A")
	assert.True(t, ok)
	assert.Equal(t, "x", v)

	_, ok = c.Get("B")
	assert.False(t, ok, "blank values count as absent")
	_, ok = c.Get("D")
	assert.False(t, ok)

	assert.True(t, c.Has("A", "C"))
	assert.False(t, c.Has("A", "B"))
	assert.True(t, c.Has())
	assert.Equal(t, []string{"x", "z"}, c.Values())
}

func TestCredentials_ValuesTrimmed(t *testing.T) {
	c := Credentials{KeyDatabaseURL: "  postgres://app:pw1234@db:5432/app\n", KeyGitHubToken: "\tghp_token "}
	assert.Equal(t, []string{"ghp_token", "postgres://app:pw1234@db:5432/app"}, c.Values())
}

func TestSpec_Select(t *testing.T) {
	discord := spec(t, "discord")

	tests := []struct {
		name     string
		creds    Credentials
		wantMode string
		wantOK   bool
	}{
		{name: "none", creds: Credentials{}, wantOK: false},
		{name: "webhook only", creds: Credentials{KeyDiscordWebhookURL: "https://discord.com/api/webhooks/1/abc"}, wantMode: "webhook", wantOK: true},
		{name: "bot only", creds: Credentials{KeyDiscordBotToken: "tok"}, wantMode: "bot token", wantOK: true},
		{
			name:     "bot preferred",
			creds:    Credentials{KeyDiscordBotToken: "tok", KeyDiscordWebhookURL: "https://discord.com/api/webhooks/1/abc"},
			wantMode: "bot token",
			wantOK:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, ok := discord.Select(tt.creds)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantMode, a.Name)
		})
	}
}

func TestSpec_Missing(t *testing.T) {
	redis := spec(t, "redis")
	err := redis.Missing()

	assert.Equal(t, "REDIS_HOST+REDIS_PORT or REDIS_URL", err.Keys())
	assert.Equal(t, `missing credentials for "redis": REDIS_HOST+REDIS_PORT or REDIS_URL not configured`, err.Error())
	assert.Equal(t, ReasonConfiguration, Classify(err))
}

func TestSpec_Expectation(t *testing.T) {
	discord := spec(t, "discord")
	bot, webhook := discord.Auth[0], discord.Auth[1]

	assert.False(t, discord.Expectation(bot).Accepts(http.StatusMethodNotAllowed))
	assert.True(t, discord.Expectation(webhook).Accepts(http.StatusMethodNotAllowed))
	assert.Equal(t, "username", discord.Expectation(bot).Identity)
}

func TestSpec_EffectiveTimeout(t *testing.T) {
	s := Spec{}
	assert.Equal(t, DefaultTimeout, s.EffectiveTimeout())
	s.Timeout = time.Second
	assert.Equal(t, time.Second, s.EffectiveTimeout())
}

func TestCredentialKeys(t *testing.T) {
	want := []string{
		KeyDatabaseURL, KeyNeonDatabaseURL,
		KeyRedisHost, KeyRedisPort, KeyRedisPassword, KeyRedisURL,
		KeyDiscordBotToken, KeyDiscordWebhookURL,
		KeyRenderAPIKey, KeyLinearAPIKey, KeyNeonAPIKey, KeyGitHubToken,
	}
	if diff := cmp.Diff(want, CredentialKeys(Catalog())); diff != "" {
		t.Errorf("CredentialKeys() mismatch (-want +got):\n%s", diff)
	}
}

func TestRequests(t *testing.T) {
	creds := Credentials{
		KeyDiscordBotToken: "bot-secret",
		KeyRenderAPIKey:    "rnd-secret",
		KeyLinearAPIKey:    "lin-secret",
		KeyNeonAPIKey:      "neon-secret",
		KeyGitHubToken:     "gh-secret",
	}

	tests := []struct {
		probe      string
		wantMethod string
		wantURL    string
		wantHeader http.Header
		wantBody   string
	}{
		{
			probe:      "discord",
			wantMethod: http.MethodGet,
			wantURL:    "https://discord.com/api/v10/users/@me",
			wantHeader: http.Header{"Authorization": {"Bot bot-secret"}},
		},
		{
			probe:      "render",
			wantMethod: http.MethodGet,
			wantURL:    "https://api.render.com/v1/services",
			wantHeader: http.Header{"Authorization": {"Bearer rnd-secret"}, "Accept": {"application/json"}},
		},
		{
			probe:      "linear",
			wantMethod: http.MethodPost,
			wantURL:    "https://api.linear.app/graphql",
			wantHeader: http.Header{"Authorization": {"lin-secret"}, "Content-Type": {"application/json"}},
			wantBody:   `{"query":"{ viewer { id name } }"}`,
		},
		{
			probe:      "neon",
			wantMethod: http.MethodGet,
			wantURL:    "https://console.neon.tech/api/v2/projects",
			wantHeader: http.Header{"Authorization": {"Bearer neon-secret"}, "Accept": {"application/json"}},
		},
		{
			probe:      "github",
			wantMethod: http.MethodGet,
			wantURL:    "https://api.github.com/user",
			wantHeader: http.Header{
				"Authorization":        {"Bearer gh-secret"},
				"Accept":               {"application/vnd.github+json"},
				"X-GitHub-Api-Version": {"2022-11-28"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.probe, func(t *testing.T) {
			s := spec(t, tt.probe)
			a, ok := s.Select(creds)
			require.True(t, ok)

			req, err := a.Request(creds, s.BaseURL)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMethod, req.Method)
			assert.Equal(t, tt.wantURL, req.URL)
			assert.Equal(t, tt.wantBody, string(req.Body))
			if diff := cmp.Diff(tt.wantHeader, req.Header); diff != "" {
				t.Errorf("header mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRequests_Webhook(t *testing.T) {
	s := spec(t, "discord")
	creds := Credentials{KeyDiscordWebhookURL: "https://discord.com/api/webhooks/42/hook-secret"}
	a, ok := s.Select(creds)
	require.True(t, ok)

	req, err := a.Request(creds, "http://ignored")
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "https://discord.com/api/webhooks/42/hook-secret", req.URL)

	_, err = a.Request(Credentials{KeyDiscordWebhookURL: "discord.com/hook"}, "")
	assert.Error(t, err, "relative webhook urls are rejected")
}

func TestConnections(t *testing.T) {
	tests := []struct {
		name  string
		probe string
		creds Credentials
		want  Connection
	}{
		{
			name:  "postgres url",
			probe: "postgres",
			creds: Credentials{KeyDatabaseURL: "postgres://u:p@db:5432/app"},
			want:  Connection{Driver: DriverPostgres, DSN: "postgres://u:p@db:5432/app"},
		},
		{
			name:  "neon fallback",
			probe: "postgres",
			creds: Credentials{KeyNeonDatabaseURL: "postgres://u:p@neon:5432/app "},
			want:  Connection{Driver: DriverPostgres, DSN: "postgres://u:p@neon:5432/app"},
		},
		{
			name:  "redis host and port",
			probe: "redis",
			creds: Credentials{KeyRedisHost: "cache", KeyRedisPort: "6379"},
			want:  Connection{Driver: DriverRedis, DSN: "redis://cache:6379"},
		},
		{
			name:  "redis with password",
			probe: "redis",
			creds: Credentials{KeyRedisHost: "cache", KeyRedisPort: "6379", KeyRedisPassword: "pw"},
			want:  Connection{Driver: DriverRedis, DSN: "redis://:pw@cache:6379"},
		},
		{
			name:  "redis url",
			probe: "redis",
			creds: Credentials{KeyRedisURL: "redis://cache:6380/1"},
			want:  Connection{Driver: DriverRedis, DSN: "redis://cache:6380/1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := spec(t, tt.probe)
			a, ok := s.Select(tt.creds)
			require.True(t, ok)
			got, err := a.Connect(tt.creds)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpect_Check(t *testing.T) {
	graphql := Expect{GraphQL: true, Require: []string{"data.viewer"}, Identity: "data.viewer.name"}

	tests := []struct {
		name       string
		expect     Expect
		code       int
		body       string
		wantID     string
		wantReason Reason
	}{
		{name: "2xx default", expect: Expect{}, code: 204},
		{name: "5xx default", expect: Expect{}, code: 500, body: "boom", wantReason: ReasonProtocol},
		{name: "3xx default", expect: Expect{}, code: 302, wantReason: ReasonProtocol},
		{name: "extra code", expect: Expect{Codes: []int{200, 405}}, code: 405, body: "<html>"},
		{name: "identity", expect: Expect{Identity: "login"}, code: 200, body: `{"login":"octocat"}`, wantID: "octocat"},
		{name: "identity number", expect: Expect{Identity: "id"}, code: 200, body: `{"id":42}`, wantID: "42"},
		{name: "identity absent", expect: Expect{Identity: "login"}, code: 200, body: `{}`},
		{name: "identity non json", expect: Expect{Identity: "login"}, code: 200, body: `ok`},
		{name: "graphql ok", expect: graphql, code: 200, body: `{"data":{"viewer":{"id":"1","name":"Ada"}}}`, wantID: "Ada"},
		{name: "graphql empty errors", expect: graphql, code: 200, body: `{"data":{"viewer":{"id":"1"}},"errors":[]}`},
		{name: "graphql errors", expect: graphql, code: 200, body: `{"errors":[{"message":"auth"}],"data":null}`, wantReason: ReasonProtocol},
		{name: "graphql missing field", expect: graphql, code: 200, body: `{"data":{}}`, wantReason: ReasonProtocol},
		{name: "graphql null field", expect: graphql, code: 200, body: `{"data":{"viewer":null}}`, wantReason: ReasonProtocol},
		{name: "graphql malformed", expect: graphql, code: 200, body: `{"data"`, wantReason: ReasonProtocol},
		{name: "graphql non-2xx", expect: graphql, code: 401, body: `{}`, wantReason: ReasonProtocol},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := tt.expect.Check(tt.code, []byte(tt.body))
			assert.Equal(t, tt.wantReason, Classify(err))
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestExpect_CheckStatusError(t *testing.T) {
	_, err := Expect{}.Check(500, []byte("  internal\n  error "))
	var status ErrUnexpectedStatus
	require.ErrorAs(t, err, &status)
	assert.Equal(t, 500, status.Code)
	assert.Equal(t, "internal error", status.Body)
	assert.Equal(t, "unexpected status code 500: internal error", err.Error())
}

func TestExpect_CheckScalar(t *testing.T) {
	e := Expect{Scalar: "1"}
	assert.NoError(t, e.CheckScalar("1"))
	assert.NoError(t, e.CheckScalar(" 1\n"))

	err := e.CheckScalar("2")
	assert.Equal(t, ReasonProtocol, Classify(err))
	assert.EqualError(t, err, `unexpected result: expected "1", got "2"`)
}

func TestLookup(t *testing.T) {
	doc := map[string]any{"a": map[string]any{"b": "c", "n": nil}, "list": []any{1}}

	v, ok := Lookup(doc, "a.b")
	assert.True(t, ok)
	assert.Equal(t, "c", v)

	for _, path := range []string{"a.n", "a.x", "a.b.c", "list.0", "x"} {
		_, ok := Lookup(doc, path)
		assert.False(t, ok, path)
	}
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "a b", Snippet([]byte(" a\n\tb ")))

	long := make([]byte, 0, 600)
	for len(long) < 600 {
		long = append(long, "é"...)
	}
	got := Snippet(long)
	assert.LessOrEqual(t, len(got), maxSnippet+3)
	assert.Contains(t, got, "...")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Reason
	}{
		{name: "nil", err: nil, want: ReasonNone},
		{name: "missing", err: ErrMissingCredentials{Service: "x"}, want: ReasonConfiguration},
		{name: "invalid", err: ErrInvalidCredentials{Service: "x", Err: errors.New("bad url")}, want: ReasonConfiguration},
		{name: "deadline", err: &url.Error{Op: "Get", URL: "https://x", Err: context.DeadlineExceeded}, want: ReasonTimeout},
		{name: "wrapped deadline", err: fmt.Errorf("dial: %w", context.DeadlineExceeded), want: ReasonTimeout},
		{name: "status", err: ErrUnexpectedStatus{Code: 500}, want: ReasonProtocol},
		{name: "body", err: fmt.Errorf("decode: %w", ErrUnexpectedBody{Reason: "x"}), want: ReasonProtocol},
		{name: "scalar", err: ErrUnexpectedScalar{Want: "1"}, want: ReasonProtocol},
		{name: "panic", err: ErrPanic{Value: "boom"}, want: ReasonInternal},
		{name: "driver", err: ErrUnknownDriver{Driver: "mysql"}, want: ReasonInternal},
		{name: "refused", err: errors.New("connection refused"), want: ReasonNetwork},
		{name: "canceled", err: context.Canceled, want: ReasonNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestApply(t *testing.T) {
	off := false

	tests := []struct {
		name      string
		overrides map[string]Override
		check     func(t *testing.T, specs []Spec)
		wantErr   bool
	}{
		{
			name: "default timeout",
			check: func(t *testing.T, specs []Spec) {
				for _, s := range specs {
					assert.Equal(t, 3*time.Second, s.Timeout, s.Name)
				}
			},
		},
		{
			name: "per probe",
			overrides: map[string]Override{
				"github": {
					Enabled: &off,
					Timeout: time.Second,
					BaseURL: "https://ghe.example.com/api/v3/",
					Retry:   &helper.RetryConfig{Count: 2, Delay: time.Millisecond},
				},
			},
			check: func(t *testing.T, specs []Spec) {
				gh := specs[len(specs)-1]
				assert.True(t, gh.Disabled)
				assert.Equal(t, time.Second, gh.Timeout)
				assert.Equal(t, "https://ghe.example.com/api/v3", gh.BaseURL)
				assert.Equal(t, 2, gh.Retry.Count)
				assert.False(t, specs[0].Disabled)
			},
		},
		{
			name:      "unknown probe",
			overrides: map[string]Override{"mysql": {}},
			wantErr:   true,
		},
		{
			name:      "base url on store probe",
			overrides: map[string]Override{"postgres": {BaseURL: "http://x"}},
			wantErr:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := Catalog()
			specs, err := Apply(catalog, 3*time.Second, tt.overrides)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, specs, len(catalog))
			tt.check(t, specs)
			assert.Zero(t, catalog[0].Timeout, "input is not modified")
		})
	}
}

func spec(t *testing.T, name string) Spec {
	t.Helper()
	for _, s := range Catalog() {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("probe %q not in catalog", name)
	return Spec{}
}
