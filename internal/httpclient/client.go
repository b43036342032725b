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

package httpclient

import (
	"context"
	"net/http"

	"github.com/caas-team/lark/internal/logger"
)

type client struct{}

// New returns a client whose requests carry the given User-Agent unless one is set already.
// No client-wide timeout is configured; every probe bounds its request through its context.
func New(userAgent string) *http.Client {
	next := http.DefaultTransport
	if t, ok := next.(*http.Transport); ok {
		next = t.Clone()
	}
	return &http.Client{
		Transport: &userAgentTransport{next: next, userAgent: userAgent},
	}
}

// userAgentTransport sets the User-Agent header on outgoing requests
type userAgentTransport struct {
	next      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" || t.userAgent == "" {
		return t.next.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.userAgent)
	return t.next.RoundTrip(r)
}

// IntoContext embeds the provided http.Client into the given context and returns the modified context.
func IntoContext(ctx context.Context, c *http.Client) context.Context {
	return context.WithValue(ctx, client{}, c)
}

// FromContext extracts the http.Client from the provided context.
// If the context does not have a client it returns http.DefaultClient.
func FromContext(ctx context.Context) *http.Client {
	if ctx != nil {
		if c, ok := ctx.Value(client{}).(*http.Client); ok && c != nil {
			return c
		}
	}

	logger.FromContext(ctx).Debug("No http.Client found in context; using http.DefaultClient")
	return http.DefaultClient
}
