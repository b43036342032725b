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
	"net/http"
	"slices"
	"strings"
	"unicode/utf8"
)

// maxSnippet bounds how much of a response body ends up in an outcome
const maxSnippet = 256

// Expect is the declarative success predicate of a probe
type Expect struct {
	// Codes are the accepted status codes; empty accepts any 2xx
	Codes []int
	// GraphQL fails responses that carry a non-empty "errors" member
	GraphQL bool
	// Require lists dotted paths that must be present and non-null in the JSON body
	Require []string
	// Identity is a dotted path naming the authenticated principal, reported when found
	Identity string
	// Scalar is the value a store round trip must yield
	Scalar string
}

// Accepts reports whether the status code counts as success.
func (e Expect) Accepts(code int) bool {
	if len(e.Codes) == 0 {
		return code >= http.StatusOK && code < http.StatusMultipleChoices
	}
	return slices.Contains(e.Codes, code)
}

// Check evaluates an HTTP response and returns the principal's identity if the body names one.
func (e Expect) Check(code int, body []byte) (string, error) {
	if !e.Accepts(code) {
		return "", ErrUnexpectedStatus{Code: code, Body: Snippet(body)}
	}

	strict := e.GraphQL || len(e.Require) > 0
	if !strict && e.Identity == "" {
		return "", nil
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		if strict {
			return "", ErrUnexpectedBody{Reason: "malformed json"}
		}
		return "", nil
	}

	if e.GraphQL {
		if errs, ok := Lookup(doc, "errors"); ok {
			if list, isList := errs.([]any); !isList || len(list) > 0 {
				return "", ErrUnexpectedBody{Reason: "graphql errors: " + graphQLMessage(errs)}
			}
		}
	}
	for _, path := range e.Require {
		if _, ok := Lookup(doc, path); !ok {
			return "", ErrUnexpectedBody{Reason: fmt.Sprintf("missing %q", path)}
		}
	}

	if e.Identity == "" {
		return "", nil
	}
	id, ok := Lookup(doc, e.Identity)
	if !ok {
		return "", nil
	}
	switch v := id.(type) {
	case string:
		return v, nil
	case float64, bool:
		return fmt.Sprint(v), nil
	default:
		return "", nil
	}
}

// CheckScalar evaluates the value returned by a store round trip.
func (e Expect) CheckScalar(got string) error {
	if strings.TrimSpace(got) != e.Scalar {
		return ErrUnexpectedScalar{Want: e.Scalar, Got: got}
	}
	return nil
}

// Lookup resolves a dotted path like "data.viewer.id" in a decoded JSON document.
// It reports false for absent and null members.
func Lookup(doc any, path string) (any, bool) {
	cur := doc
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, cur != nil
}

// Snippet shortens a response body for inclusion in a message.
func Snippet(body []byte) string {
	s := strings.Join(strings.Fields(string(body)), " ")
	if len(s) <= maxSnippet {
		return s
	}
	s = s[:maxSnippet]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s + "..."
}

func graphQLMessage(errs any) string {
	if list, ok := errs.([]any); ok && len(list) > 0 {
		if msg, ok := Lookup(list[0], "message"); ok {
			if s, ok := msg.(string); ok {
				return s
			}
		}
	}
	return "request rejected"
}
