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
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/caas-team/lark/pkg/probes"
)

// Format selects the report encoding
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// Renderer encodes a report. Renderers never redact; outcomes are redacted when they are created.
type Renderer interface {
	Render(r *Report) ([]byte, error)
	// Extension is the file extension including the dot
	Extension() string
}

// NewRenderer returns the renderer for format.
func NewRenderer(f Format) (Renderer, error) {
	switch f {
	case FormatMarkdown, "md", "":
		return Markdown{}, nil
	case FormatJSON:
		return JSON{}, nil
	default:
		return nil, fmt.Errorf("unknown report format %q", f)
	}
}

// FileName returns the name of the report for the calendar day of now.
func FileName(now time.Time, r Renderer) string {
	return fmt.Sprintf("Integration-Status-%s%s", now.UTC().Format(DateLayout), r.Extension())
}

// Markdown renders the human-readable report
type Markdown struct{}

func (Markdown) Extension() string { return ".md" }

func (Markdown) Render(r *Report) ([]byte, error) {
	var b bytes.Buffer
	s := r.Summary

	b.WriteString("# Integration Status Report\n\n")
	fmt.Fprintf(&b, "**Date**: %s\n", r.Date)
	fmt.Fprintf(&b, "**Generated**: %s\n\n", r.GeneratedAt.UTC().Format(time.RFC3339))

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- ✅ Passed: %d\n", s.Pass)
	fmt.Fprintf(&b, "- ❌ Failed: %d\n", s.Fail)
	fmt.Fprintf(&b, "- ⏭️ Skipped: %d\n", s.Skipped)
	fmt.Fprintf(&b, "- 📊 Total: %d\n\n", s.Total)

	overall := "✅ PASSING"
	if !s.Passing {
		overall = "❌ FAILING"
	}
	fmt.Fprintf(&b, "## Overall Status: %s\n\n", overall)

	b.WriteString("## Detailed Results\n\n")
	for _, o := range r.Outcomes {
		fmt.Fprintf(&b, "### %s %s\n\n", Emoji(o.Status), o.Display)
		fmt.Fprintf(&b, "**Status**: %s\n", strings.ToUpper(string(o.Status)))
		if o.Reason != probes.ReasonNone {
			fmt.Fprintf(&b, "**Reason**: %s\n", o.Reason)
		}
		fmt.Fprintf(&b, "**Message**: %s\n", o.Message)
		if o.LatencyMs != nil {
			fmt.Fprintf(&b, "**Response Time**: %dms\n", *o.LatencyMs)
		}
		if o.Error != "" {
			fmt.Fprintf(&b, "**Error**: %s\n", codeSpan(o.Error))
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n\n")
	b.WriteString("*This report was generated automatically by lark.*\n")
	return b.Bytes(), nil
}

// JSON renders the machine-readable report
type JSON struct{}

func (JSON) Extension() string { return ".json" }

func (JSON) Render(r *Report) ([]byte, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return append(b, '\n'), nil
}

// Emoji returns the status marker used in reports and console lines.
func Emoji(s probes.Status) string {
	switch s {
	case probes.StatusPass:
		return "✅"
	case probes.StatusSkipped:
		return "⏭️"
	default:
		return "❌"
	}
}

// codeSpan wraps s in a markdown code span that survives backticks inside s
func codeSpan(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	fence := "`"
	for strings.Contains(s, fence) {
		fence += "`"
	}
	if strings.HasPrefix(s, "`") || strings.HasSuffix(s, "`") {
		return fence + " " + s + " " + fence
	}
	return fence + s + fence
}
