/*
Copyright 2026 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package prometheusbackend exports every published stats variable as a
// Prometheus collector.
package prometheusbackend

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/olapfe/planstate/go/stats"
	"github.com/olapfe/planstate/go/vt/logutil"
)

// PromBackend implements stats.NewVarHook using Prometheus as the backing
// metrics storage.
type PromBackend struct {
	namespace  string
	registerer prometheus.Registerer
}

var logUnsupported = logutil.NewThrottledLogger("PrometheusUnsupportedMetricType", 1*time.Minute)

// Init initializes the Prometheus backend with the given namespace on the
// default registry and serves it on /metrics of the default mux.
func Init(namespace string) {
	http.Handle("/metrics", promhttp.Handler())
	InitWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// InitWithRegisterer exports every published variable to reg.
func InitWithRegisterer(namespace string, reg prometheus.Registerer) *PromBackend {
	be := &PromBackend{namespace: namespace, registerer: reg}
	stats.Register(be.publishPrometheusMetric)
	return be
}

func (be *PromBackend) publishPrometheusMetric(name string, v stats.Variable) {
	switch st := v.(type) {
	case *stats.Gauge:
		be.newMetric(st, name, prometheus.GaugeValue, func() float64 { return float64(st.Get()) })
	case *stats.Counter:
		be.newMetric(st, name, prometheus.CounterValue, func() float64 { return float64(st.Get()) })
	case *stats.GaugeFunc:
		be.newMetric(st, name, prometheus.GaugeValue, func() float64 { return float64(st.Get()) })
	case *stats.GaugesWithSingleLabel:
		be.newCountersWithSingleLabel(&st.CountersWithSingleLabel, name, prometheus.GaugeValue)
	case *stats.CountersWithSingleLabel:
		be.newCountersWithSingleLabel(st, name, prometheus.CounterValue)
	default:
		logUnsupported.Infof("Not exporting to Prometheus an unsupported metric type of %T: %s", st, name)
	}
}

func (be *PromBackend) newCountersWithSingleLabel(c *stats.CountersWithSingleLabel, name string, vt prometheus.ValueType) {
	be.register(name, &countersWithSingleLabelCollector{
		counters: c,
		desc: prometheus.NewDesc(
			be.buildPromName(name),
			c.Help(),
			[]string{normalizeMetric(c.Label())},
			nil),
		vt: vt,
	})
}

func (be *PromBackend) newMetric(v stats.Variable, name string, vt prometheus.ValueType, f func() float64) {
	be.register(name, &metricFuncCollector{
		f: f,
		desc: prometheus.NewDesc(
			be.buildPromName(name),
			v.Help(),
			nil,
			nil),
		vt: vt,
	})
}

func (be *PromBackend) register(name string, c prometheus.Collector) {
	if err := be.registerer.Register(c); err != nil {
		logUnsupported.Errorf("failed to register %s: %v", name, err)
	}
}

// buildPromName specifies the namespace as a prefix to the metric name
func (be *PromBackend) buildPromName(name string) string {
	s := strings.TrimPrefix(normalizeMetric(name), be.namespace+"_")
	return prometheus.BuildFQName("", be.namespace, s)
}

// normalizeMetric produces a compliant name by applying special case
// conversions and then a camel case to snake case converter.
func normalizeMetric(name string) string {
	r := strings.NewReplacer("MTMV", "Mtmv", "MVCC", "Mvcc")
	return stats.GetSnakeName(r.Replace(name))
}
