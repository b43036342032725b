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

// Package upstream provides a fake of every remote api lark probes.
// Each service is mounted under its own path prefix so the probe base
// urls can be pointed at it through the overrides file.
package upstream

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

const (
	Discord = "discord"
	Render  = "render"
	Linear  = "linear"
	Neon    = "neon"
	GitHub  = "github"
)

// Services lists every faked service
var Services = []string{Discord, Render, Linear, Neon, GitHub}

// Behavior controls how a service answers
type Behavior struct {
	// Status defaults to 200
	Status int
	// Body replaces the healthy default body
	Body any
	// Delay is waited before answering or until the request is cancelled
	Delay time.Duration
}

type Server struct {
	srv *httptest.Server

	mu        sync.Mutex
	behaviors map[string]Behavior
	hits      map[string]int
	auth      map[string]string
}

// New starts a fake upstream that is closed when the test finishes
func New(t *testing.T) *Server {
	t.Helper()
	s := &Server{
		behaviors: map[string]Behavior{},
		hits:      map[string]int{},
		auth:      map[string]string{},
	}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Get("/discord/api/v10/users/@me", s.serve(Discord, map[string]any{"id": "1", "username": "larkbot"}))
	r.Get("/render/v1/services", s.serve(Render, []any{}))
	r.Post("/linear/graphql", s.serve(Linear, map[string]any{
		"data": map[string]any{"viewer": map[string]any{"id": "u1", "name": "Ada Lovelace"}},
	}))
	r.Get("/neon/api/v2/projects", s.serve(Neon, map[string]any{"projects": []any{}}))
	r.Get("/github/user", s.serve(GitHub, map[string]any{"login": "octocat"}))

	s.srv = httptest.NewServer(r)
	t.Cleanup(s.srv.Close)
	return s
}

// URL returns the base url of the given service
func (s *Server) URL(service string) string {
	return s.srv.URL + "/" + service
}

// Set changes the behavior of a service
func (s *Server) Set(service string, b Behavior) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.behaviors[service] = b
}

// Hits returns how many requests reached the service
func (s *Server) Hits(service string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[service]
}

// Total returns how many requests reached any service
func (s *Server) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, h := range s.hits {
		n += h
	}
	return n
}

// Authorization returns the last authorization header the service received
func (s *Server) Authorization(service string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auth[service]
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		service, _, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
		s.mu.Lock()
		s.hits[service]++
		s.auth[service] = r.Header.Get("Authorization")
		s.mu.Unlock()

		if r.Header.Get("Authorization") == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "401: Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) serve(service string, healthy any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		b := s.behaviors[service]
		s.mu.Unlock()

		if b.Delay > 0 {
			select {
			case <-time.After(b.Delay):
			case <-r.Context().Done():
				return
			}
		}

		status := b.Status
		if status == 0 {
			status = http.StatusOK
		}
		body := b.Body
		if body == nil {
			body = healthy
		}
		writeJSON(w, status, body)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
