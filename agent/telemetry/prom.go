package telemetry

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PromMetrics adapts a prometheus.Registerer into the Metrics interface.
// Counter/gauge vectors are created lazily and keyed by name plus the tag
// values supplied at call time, matching the label-free call sites used
// throughout the executor and workflow packages (tags are joined into a
// single "labels" label so arbitrary call sites don't need static label
// schemas registered up front).
type PromMetrics struct {
	reg prometheus.Registerer

	mu       sync.Mutex
	counters map[string]*prometheus.CounterVec
	gauges   map[string]*prometheus.GaugeVec
	timers   map[string]*prometheus.HistogramVec
}

// NewPromMetrics constructs a Metrics recorder backed by the given registry.
func NewPromMetrics(reg prometheus.Registerer) Metrics {
	return &PromMetrics{
		reg:      reg,
		counters: make(map[string]*prometheus.CounterVec),
		gauges:   make(map[string]*prometheus.GaugeVec),
		timers:   make(map[string]*prometheus.HistogramVec),
	}
}

func sanitize(name string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}

func (p *PromMetrics) IncCounter(name string, value float64, tags ...string) {
	p.mu.Lock()
	cv, ok := p.counters[name]
	if !ok {
		cv = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orchestrator_" + sanitize(name) + "_total",
		}, []string{"labels"})
		p.reg.MustRegister(cv)
		p.counters[name] = cv
	}
	p.mu.Unlock()
	cv.WithLabelValues(strings.Join(tags, ",")).Add(value)
}

func (p *PromMetrics) RecordTimer(name string, d time.Duration, tags ...string) {
	p.mu.Lock()
	hv, ok := p.timers[name]
	if !ok {
		hv = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "orchestrator_" + sanitize(name) + "_seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"labels"})
		p.reg.MustRegister(hv)
		p.timers[name] = hv
	}
	p.mu.Unlock()
	hv.WithLabelValues(strings.Join(tags, ",")).Observe(d.Seconds())
}

func (p *PromMetrics) RecordGauge(name string, value float64, tags ...string) {
	p.mu.Lock()
	gv, ok := p.gauges[name]
	if !ok {
		gv = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "orchestrator_" + sanitize(name),
		}, []string{"labels"})
		p.reg.MustRegister(gv)
		p.gauges[name] = gv
	}
	p.mu.Unlock()
	gv.WithLabelValues(strings.Join(tags, ",")).Set(value)
}
