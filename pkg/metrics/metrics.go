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

package metrics

import (
	"fmt"

	"github.com/caas-team/lark/pkg/probes"
	"github.com/caas-team/lark/pkg/report"
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics holds the collectors of a single run
type PrometheusMetrics struct {
	registry *prometheus.Registry
	up       *prometheus.GaugeVec
	latency  *prometheus.GaugeVec
	failure  *prometheus.GaugeVec
	outcomes *prometheus.GaugeVec
	lastRun  prometheus.Gauge
}

// NewMetrics initializes the metrics and returns the PrometheusMetrics
func NewMetrics() *PrometheusMetrics {
	m := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
		up: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lark_probe_up",
				Help: "Specifies if the service passed its probe.",
			},
			[]string{"probe"},
		),
		latency: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lark_probe_latency_seconds",
				Help: "Time from dispatch to settlement of the probe in seconds.",
			},
			[]string{"probe"},
		),
		failure: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lark_probe_failure",
				Help: "Set to 1 for the reason a probe failed.",
			},
			[]string{"probe", "reason"},
		),
		outcomes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lark_probes",
				Help: "Number of probes per status in the last run.",
			},
			[]string{"status"},
		),
		lastRun: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "lark_last_run_timestamp_seconds",
				Help: "Unix time the last report was generated.",
			},
		),
	}

	m.registry.MustRegister(m.up, m.latency, m.failure, m.outcomes, m.lastRun)
	return m
}

// GetRegistry returns the registry to register prometheus metrics
func (m *PrometheusMetrics) GetRegistry() *prometheus.Registry {
	return m.registry
}

// Record sets the collectors from the report of a run
func (m *PrometheusMetrics) Record(rep *report.Report) {
	for _, o := range rep.Outcomes {
		if o.Status == probes.StatusSkipped {
			continue
		}
		up := 0.0
		if o.Status == probes.StatusPass {
			up = 1
		}
		m.up.WithLabelValues(o.Service).Set(up)
		if o.LatencyMs != nil {
			m.latency.WithLabelValues(o.Service).Set(float64(*o.LatencyMs) / 1000)
		}
		if o.Reason != probes.ReasonNone {
			m.failure.WithLabelValues(o.Service, string(o.Reason)).Set(1)
		}
	}

	m.outcomes.WithLabelValues(string(probes.StatusPass)).Set(float64(rep.Summary.Pass))
	m.outcomes.WithLabelValues(string(probes.StatusFail)).Set(float64(rep.Summary.Fail))
	m.outcomes.WithLabelValues(string(probes.StatusSkipped)).Set(float64(rep.Summary.Skipped))
	m.lastRun.Set(float64(rep.GeneratedAt.Unix()))
}

// Export records rep and writes the metrics in the text exposition format to path,
// ready for a node exporter textfile collector.
func Export(rep *report.Report, path string) error {
	m := NewMetrics()
	m.Record(rep)
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
