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

// Package redact removes credential material from human-readable text.
//
// A Redactor works in two phases over its input. First every occurrence of a
// known secret value (and its percent-encoded forms) is masked. Then a fixed,
// ordered table of rules masks values that have the shape of a secret, such as
// bearer tokens, user info embedded in URLs or api keys in query strings.
// Masked runs are replaced by a placeholder.
//
// Redact is total and idempotent, and the returned text never contains any
// non-empty secret the Redactor was built with.
package redact

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// Placeholder replaces redacted text.
const Placeholder = "[REDACTED]"

// maxPasses bounds the passes needed to reach a fixed point.
const maxPasses = 8

// minDerivedLength is the minimum length of a secret derived from a configured
// value, like the password component of a connection string.
const minDerivedLength = 6

// placeholders are tried in order. A later one is only used when a secret
// overlaps the earlier ones, so that the replacement cannot reintroduce it.
var placeholders = []string{Placeholder, "***", "###"}

// rule masks the submatches listed in groups wherever re matches.
type rule struct {
	name   string
	re     *regexp.Regexp
	groups []int
}

// value character classes never contain the characters of a placeholder
// delimiter, so already redacted text is not matched again.
const (
	value      = `[^\s"'&,;\[\]*#<>]`
	tokenValue = `[A-Za-z0-9._~+/=-]`
)

var rules = []rule{
	{
		name:   "authorization-scheme",
		re:     regexp.MustCompile(`(?i)(authorization["']?\s*[:=]\s*["']?(?:token|basic)\s+)(` + tokenValue + `+)`),
		groups: []int{2},
	},
	{
		name:   "bearer-token",
		re:     regexp.MustCompile(`(?i)((?:bearer|bot)\s+)(` + tokenValue + `{8,})`),
		groups: []int{2},
	},
	{
		name:   "authorization-raw",
		re:     regexp.MustCompile(`(?i)(authorization["']?\s*[:=]\s*["']?)(` + value + `{12,})`),
		groups: []int{2},
	},
	{
		name:   "url-userinfo",
		re:     regexp.MustCompile(`(?i)([a-z][a-z0-9+.\-]*://)([^\s:/?#@\[\]*"']*)(?::([^\s/?#@\[\]*"']*))?@`),
		groups: []int{2, 3},
	},
	{
		name:   "webhook-path",
		re:     regexp.MustCompile(`(?i)(/api(?:/v\d+)?/webhooks/\d+/|hooks\.slack\.com/services/)([A-Za-z0-9._/-]+)`),
		groups: []int{2},
	},
	{
		name:   "query-parameter",
		re:     regexp.MustCompile(`(?i)([?&](?:api[_-]?key|apikey|access[_-]?token|auth[_-]?token|token|key|secret|client[_-]?secret|password|passwd|pwd|sig|signature)=)(` + value + `+)`),
		groups: []int{2},
	},
	{
		name:   "key-value",
		re:     regexp.MustCompile(`(?i)((?:api[_-]?key|access[_-]?token|auth[_-]?token|token|secret|password|passwd)["']?\s*[:=]\s*["']?)(` + value + `+)`),
		groups: []int{2},
	},
	{
		name: "known-token-shape",
		re: regexp.MustCompile(`(gh[pousr]_[A-Za-z0-9]{36,}|github_pat_[A-Za-z0-9_]{22,}|lin_api_[A-Za-z0-9]{20,}|rnd_[A-Za-z0-9]{20,}|` +
			`eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+|[A-Za-z0-9_-]{23,28}\.[A-Za-z0-9_-]{6,7}\.[A-Za-z0-9_-]{27,})`),
		groups: []int{1},
	},
}

// Redactor removes a fixed set of secrets from text.
// It holds no mutable state and is safe for concurrent use.
type Redactor struct {
	secrets []string
}

// New creates a Redactor for the given secret values. Empty values are ignored.
func New(secrets ...string) *Redactor {
	seen := map[string]struct{}{}
	add := func(s string) {
		if s == "" {
			return
		}
		seen[s] = struct{}{}
	}

	for _, s := range secrets {
		if s == "" {
			continue
		}
		add(s)
		add(url.QueryEscape(s))
		add(url.PathEscape(s))
		for _, d := range derived(s) {
			if len(d) >= minDerivedLength {
				add(d)
				add(url.QueryEscape(d))
			}
		}
	}

	r := &Redactor{secrets: make([]string, 0, len(seen))}
	for s := range seen {
		r.secrets = append(r.secrets, s)
	}
	// longest first, ties broken lexically for a stable order
	sort.Slice(r.secrets, func(i, j int) bool {
		if len(r.secrets[i]) != len(r.secrets[j]) {
			return len(r.secrets[i]) > len(r.secrets[j])
		}
		return r.secrets[i] < r.secrets[j]
	})
	return r
}

// Redact is a shorthand for New(secrets...).Redact(text).
func Redact(text string, secrets []string) string {
	return New(secrets...).Redact(text)
}

// Redact returns text with all secrets and secret-shaped values replaced.
// A nil Redactor still applies the rule table.
func (r *Redactor) Redact(text string) string {
	out := text
	for i := 0; i < maxPasses; i++ {
		next := r.pass(out)
		if next == out {
			return out
		}
		out = next
	}
	// no fixed point: drop the text rather than return something unstable
	return ""
}

// Error redacts the message of err. A nil error yields an empty string.
func (r *Redactor) Error(err error) string {
	if err == nil {
		return ""
	}
	return r.Redact(err.Error())
}

// Secrets returns the number of values the Redactor masks verbatim.
func (r *Redactor) Secrets() int {
	if r == nil {
		return 0
	}
	return len(r.secrets)
}

// pass runs the exact and the rule phase once over text
func (r *Redactor) pass(text string) string {
	if text == "" {
		return ""
	}

	mask := make([]bool, len(text))
	if r != nil {
		for _, s := range r.secrets {
			markAll(text, s, mask)
		}
	}
	for _, rl := range rules {
		for _, m := range rl.re.FindAllStringSubmatchIndex(text, -1) {
			for _, g := range rl.groups {
				start, end := m[2*g], m[2*g+1]
				if start < 0 {
					continue
				}
				for i := start; i < end; i++ {
					mask[i] = true
				}
			}
		}
	}

	for _, p := range placeholders {
		out := render(text, mask, p)
		if !r.leaks(out) {
			return out
		}
	}
	return ""
}

// leaks reports whether any secret occurs in text
func (r *Redactor) leaks(text string) bool {
	if r == nil {
		return false
	}
	for _, s := range r.secrets {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}

// markAll marks every occurrence of s in text, overlapping ones included
func markAll(text, s string, mask []bool) {
	for start := 0; start <= len(text)-len(s); {
		i := strings.Index(text[start:], s)
		if i < 0 {
			return
		}
		i += start
		for j := i; j < i+len(s); j++ {
			mask[j] = true
		}
		start = i + 1
	}
}

// render replaces every maximal masked run of text with placeholder
func render(text string, mask []bool, placeholder string) string {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); {
		if !mask[i] {
			b.WriteByte(text[i])
			i++
			continue
		}
		b.WriteString(placeholder)
		for i < len(text) && mask[i] {
			i++
		}
	}
	return b.String()
}

// derived returns secret components embedded in s, like the password of a
// connection string or the token segment of a webhook URL.
func derived(s string) []string {
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil
	}

	var out []string
	if u.User != nil {
		if p, ok := u.User.Password(); ok {
			out = append(out, p)
		}
	}
	if q := u.Query(); len(q) > 0 {
		for _, k := range []string{"password", "token", "key", "api_key", "secret"} {
			if v := q.Get(k); v != "" {
				out = append(out, v)
			}
		}
	}
	if strings.Contains(u.Path, "/webhooks/") {
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		out = append(out, segments[len(segments)-1])
	}
	return out
}
