// Package metrics exposes Prometheus counters for account and blog activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Auth methods and outcomes used as label values.
const (
	MethodPassword = "password"
	MethodGoogle   = "google"

	ResultSuccess = "success"
	ResultFailure = "failure"

	StatePublished = "published"
	StateDraft     = "draft"
)

// Collector records auth and submission counters. A nil *Collector is valid
// and records nothing.
type Collector struct {
	signups *prometheus.CounterVec
	signins *prometheus.CounterVec
	posts   *prometheus.CounterVec
}

// NewCollector creates the counters and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blog_auth_signups_total",
			Help: "Accounts created, by auth method.",
		}, []string{"method"}),
		signins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blog_auth_signins_total",
			Help: "Sign-in attempts, by auth method and result.",
		}, []string{"method", "result"}),
		posts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blog_posts_created_total",
			Help: "Blogs stored, by draft or published state.",
		}, []string{"state"}),
	}

	reg.MustRegister(c.signups, c.signins, c.posts)
	return c
}

func (c *Collector) RecordSignup(method string) {
	if c == nil {
		return
	}
	c.signups.WithLabelValues(method).Inc()
}

func (c *Collector) RecordSignin(method string, ok bool) {
	if c == nil {
		return
	}
	result := ResultSuccess
	if !ok {
		result = ResultFailure
	}
	c.signins.WithLabelValues(method, result).Inc()
}

func (c *Collector) RecordPost(draft bool) {
	if c == nil {
		return
	}
	state := StatePublished
	if draft {
		state = StateDraft
	}
	c.posts.WithLabelValues(state).Inc()
}

// Handler serves the gathered metrics in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
