// Package monitoring keeps in-process counters and exports them in the
// Prometheus text format.
package monitoring

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type MetricType string

const (
	MetricTypeCounter MetricType = "counter"
	MetricTypeGauge   MetricType = "gauge"
)

// Metric is one labelled series.
type Metric struct {
	Name   string            `json:"name"`
	Type   MetricType        `json:"type"`
	Value  float64           `json:"value"`
	Labels map[string]string `json:"labels,omitempty"`
}

type family struct {
	typ    MetricType
	help   string
	series map[string]*Metric
}

// MetricsCollector is safe for concurrent use.
type MetricsCollector struct {
	mu        sync.RWMutex
	families  map[string]*family
	startTime time.Time
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		families:  make(map[string]*family),
		startTime: time.Now(),
	}
}

// Describe declares a metric so it is exported with help text even before
// its first sample.
func (mc *MetricsCollector) Describe(name string, typ MetricType, help string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	f := mc.family(name, typ)
	f.help = help
}

func (mc *MetricsCollector) family(name string, typ MetricType) *family {
	f, ok := mc.families[name]
	if !ok {
		f = &family{typ: typ, series: make(map[string]*Metric)}
		mc.families[name] = f
	}
	return f
}

func (mc *MetricsCollector) IncrCounter(name string, labels map[string]string) {
	mc.AddCounter(name, 1, labels)
}

func (mc *MetricsCollector) AddCounter(name string, value float64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	m := mc.series(name, MetricTypeCounter, labels)
	m.Value += value
}

func (mc *MetricsCollector) SetGauge(name string, value float64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	m := mc.series(name, MetricTypeGauge, labels)
	m.Value = value
}

func (mc *MetricsCollector) series(name string, typ MetricType, labels map[string]string) *Metric {
	f := mc.family(name, typ)
	key := labelString(labels)
	m, ok := f.series[key]
	if !ok {
		copied := make(map[string]string, len(labels))
		for k, v := range labels {
			copied[k] = v
		}
		m = &Metric{Name: name, Type: f.typ, Labels: copied}
		f.series[key] = m
	}
	return m
}

// Value returns the current value of one series, zero if it was never set.
func (mc *MetricsCollector) Value(name string, labels map[string]string) float64 {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	f, ok := mc.families[name]
	if !ok {
		return 0
	}
	if m, ok := f.series[labelString(labels)]; ok {
		return m.Value
	}
	return 0
}

func (mc *MetricsCollector) GetUptime() time.Duration {
	return time.Since(mc.startTime)
}

// ExportPrometheus renders every family sorted by name, then by labels.
func (mc *MetricsCollector) ExportPrometheus() string {
	mc.SetGauge("process_uptime_seconds", mc.GetUptime().Seconds(), nil)

	mc.mu.RLock()
	defer mc.mu.RUnlock()

	names := make([]string, 0, len(mc.families))
	for name := range mc.families {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		f := mc.families[name]
		help := f.help
		if help == "" {
			help = fmt.Sprintf("Metric %s", name)
		}
		fmt.Fprintf(&b, "# HELP %s %s\n", name, help)
		fmt.Fprintf(&b, "# TYPE %s %s\n", name, f.typ)

		keys := make([]string, 0, len(f.series))
		for key := range f.series {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(&b, "%s%s %s\n", name, key, strconv.FormatFloat(f.series[key].Value, 'g', -1, 64))
		}
	}
	return b.String()
}

// labelString renders labels as {k="v",...} with sorted keys, or "" when
// there are none.
func labelString(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", k, labels[k]))
	}
	return "{" + strings.Join(parts, ",") + "}"
}
