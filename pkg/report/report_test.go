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

package report

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/caas-team/lark/pkg/probes"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var generated = time.Date(2024, 5, 17, 6, 0, 0, 0, time.UTC)

func latency(ms int64) *int64 { return &ms }

func sampleOutcomes() []probes.Outcome {
	return []probes.Outcome{
		{
			Service: "postgres", Display: "PostgreSQL", Status: probes.StatusPass,
			Message: "PostgreSQL connection successful", LatencyMs: latency(12), Timestamp: generated,
		},
		{
			Service: "github", Display: "GitHub", Status: probes.StatusFail, Reason: probes.ReasonProtocol,
			Message: "GitHub API returned status 401", Error: "unexpected status code 401: `bad`",
			LatencyMs: latency(40), Timestamp: generated,
		},
		{
			Service: "redis", Display: "Redis", Status: probes.StatusSkipped,
			Message: "Redis probe disabled", Timestamp: generated,
		},
	}
}

func TestSummarize(t *testing.T) {
	pass := probes.Outcome{Status: probes.StatusPass}
	fail := probes.Outcome{Status: probes.StatusFail}
	skip := probes.Outcome{Status: probes.StatusSkipped}

	tests := []struct {
		name     string
		outcomes []probes.Outcome
		want     Summary
	}{
		{name: "empty", outcomes: nil, want: Summary{Passing: true}},
		{name: "two of five fail", outcomes: []probes.Outcome{pass, fail, pass, fail, pass}, want: Summary{Total: 5, Pass: 3, Fail: 2, Passing: false}},
		{name: "all pass", outcomes: []probes.Outcome{pass, pass}, want: Summary{Total: 2, Pass: 2, Passing: true}},
		{name: "skipped does not fail", outcomes: []probes.Outcome{pass, skip}, want: Summary{Total: 2, Pass: 1, Skipped: 1, Passing: true}},
		{name: "missing credentials fail", outcomes: []probes.Outcome{{Status: probes.MissingCredentialStatus}}, want: Summary{Total: 1, Fail: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.outcomes)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got.Total, got.Pass+got.Fail+got.Skipped)
		})
	}
}

func TestNew(t *testing.T) {
	local := time.Date(2024, 5, 17, 23, 30, 0, 0, time.FixedZone("UTC-2", -2*60*60))
	r := New(nil, local)

	assert.Equal(t, "2024-05-18", r.Date, "the date is the UTC calendar day")
	assert.Equal(t, time.UTC, r.GeneratedAt.Location())
	assert.NotNil(t, r.Outcomes)
	assert.True(t, r.Summary.Passing)
}

func TestMarkdown_Render(t *testing.T) {
	want := "# Integration Status Report\n" +
		"\n" +
		"**Date**: 2024-05-17\n" +
		"**Generated**: 2024-05-17T06:00:00Z\n" +
		"\n" +
		"## Summary\n" +
		"\n" +
		"- ✅ Passed: 1\n" +
		"- ❌ Failed: 1\n" +
		"- ⏭️ Skipped: 1\n" +
		"- 📊 Total: 3\n" +
		"\n" +
		"## Overall Status: ❌ FAILING\n" +
		"\n" +
		"## Detailed Results\n" +
		"\n" +
		"### ✅ PostgreSQL\n" +
		"\n" +
		"**Status**: PASS\n" +
		"**Message**: PostgreSQL connection successful\n" +
		"**Response Time**: 12ms\n" +
		"\n" +
		"### ❌ GitHub\n" +
		"\n" +
		"**Status**: FAIL\n" +
		"**Reason**: protocol\n" +
		"**Message**: GitHub API returned status 401\n" +
		"**Response Time**: 40ms\n" +
		"**Error**: ``unexpected status code 401: `bad` ``\n" +
		"\n" +
		"### ⏭️ Redis\n" +
		"\n" +
		"**Status**: SKIPPED\n" +
		"**Message**: Redis probe disabled\n" +
		"\n" +
		"---\n" +
		"\n" +
		"*This report was generated automatically by lark.*\n"

	rep := New(sampleOutcomes(), generated)
	got, err := Markdown{}.Render(rep)
	require.NoError(t, err)
	if diff := cmp.Diff(want, string(got)); diff != "" {
		t.Errorf("Markdown.Render() mismatch (-want +got):\n%s", diff)
	}

	again, err := Markdown{}.Render(New(sampleOutcomes(), generated))
	require.NoError(t, err)
	assert.Equal(t, got, again, "rendering is deterministic")
}

func TestMarkdown_Passing(t *testing.T) {
	got, err := Markdown{}.Render(New(sampleOutcomes()[:1], generated))
	require.NoError(t, err)
	assert.Contains(t, string(got), "## Overall Status: ✅ PASSING\n")
}

func TestJSON_Render(t *testing.T) {
	got, err := JSON{}.Render(New(sampleOutcomes(), generated))
	require.NoError(t, err)

	var doc struct {
		Date     string         `json:"date"`
		Summary  map[string]any `json:"summary"`
		Outcomes []map[string]any
	}
	require.NoError(t, json.Unmarshal(got, &doc))

	assert.Equal(t, "2024-05-17", doc.Date)
	assert.Equal(t, map[string]any{"total": 3.0, "pass": 1.0, "fail": 1.0, "skipped": 1.0, "passing": false}, doc.Summary)
	require.Len(t, doc.Outcomes, 3)
	assert.Equal(t, "github", doc.Outcomes[1]["service"])
	assert.Equal(t, "protocol", doc.Outcomes[1]["reason"])
	assert.Equal(t, 40.0, doc.Outcomes[1]["latencyMs"])
	assert.NotContains(t, doc.Outcomes[2], "latencyMs", "skipped outcomes carry no latency")
	assert.NotContains(t, doc.Outcomes[0], "error")
}

func TestNewRenderer(t *testing.T) {
	tests := []struct {
		format  Format
		wantExt string
		wantErr bool
	}{
		{format: FormatMarkdown, wantExt: ".md"},
		{format: "", wantExt: ".md"},
		{format: FormatJSON, wantExt: ".json"},
		{format: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			r, err := NewRenderer(tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantExt, r.Extension())
		})
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "Integration-Status-2024-05-17.md", FileName(generated, Markdown{}))
	assert.Equal(t, "Integration-Status-2024-05-17.json", FileName(generated, JSON{}))
}

func TestCodeSpan(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "plain", want: "`plain`"},
		{in: "a `b` c", want: "``a `b` c``"},
		{in: "`x`", want: "`` `x` ``"},
		{in: "multi\nline", want: "`multi line`"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, codeSpan(tt.in))
	}
}

func TestStore_Save(t *testing.T) {
	ctx := context.Background()
	fs := memfs.New()
	s := NewStore(fs, "", Markdown{})

	first := New(sampleOutcomes(), generated)
	p1, err := s.Save(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "DailyIntegrationTestResult/Integration-Status-2024-05-17.md", p1)

	later := New(sampleOutcomes()[:1], generated.Add(10*time.Hour))
	p2, err := s.Save(ctx, later)
	require.NoError(t, err)
	assert.Equal(t, p1, p2, "same day overwrites")

	content, err := util.ReadFile(fs, p1)
	require.NoError(t, err)
	want, err := Markdown{}.Render(later)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(content), "the file holds only the latest report")

	next := New(sampleOutcomes(), generated.Add(24*time.Hour))
	p3, err := s.Save(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, "DailyIntegrationTestResult/Integration-Status-2024-05-18.md", p3)

	entries, err := fs.ReadDir(DefaultDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
