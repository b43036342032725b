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

// Package report aggregates probe outcomes and persists them as the daily integration status document.
package report

import (
	"time"

	"github.com/caas-team/lark/pkg/probes"
)

// DateLayout is the calendar date format used in report names and headers
const DateLayout = "2006-01-02"

// Summary holds the counts of a run
type Summary struct {
	Total   int `json:"total" yaml:"total"`
	Pass    int `json:"pass" yaml:"pass"`
	Fail    int `json:"fail" yaml:"fail"`
	Skipped int `json:"skipped" yaml:"skipped"`
	// Passing is true iff no probe failed
	Passing bool `json:"passing" yaml:"passing"`
}

// Summarize counts the outcomes in a single pass.
func Summarize(outcomes []probes.Outcome) Summary {
	s := Summary{Total: len(outcomes)}
	for _, o := range outcomes {
		switch o.Status {
		case probes.StatusPass:
			s.Pass++
		case probes.StatusSkipped:
			s.Skipped++
		default:
			s.Fail++
		}
	}
	s.Passing = s.Fail == 0
	return s
}

// Report is the result of one run
type Report struct {
	GeneratedAt time.Time        `json:"generatedAt" yaml:"generatedAt"`
	Date        string           `json:"date" yaml:"date"`
	Summary     Summary          `json:"summary" yaml:"summary"`
	Outcomes    []probes.Outcome `json:"outcomes" yaml:"outcomes"`
}

// New builds the report of outcomes generated at now.
// The outcomes must already be in catalog order.
func New(outcomes []probes.Outcome, now time.Time) *Report {
	now = now.UTC()
	if outcomes == nil {
		outcomes = []probes.Outcome{}
	}
	return &Report{
		GeneratedAt: now,
		Date:        now.Format(DateLayout),
		Summary:     Summarize(outcomes),
		Outcomes:    outcomes,
	}
}
