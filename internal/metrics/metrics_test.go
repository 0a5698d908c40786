package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSignup(MethodPassword)
	c.RecordSignup(MethodGoogle)
	c.RecordSignup(MethodGoogle)
	c.RecordSignin(MethodPassword, true)
	c.RecordSignin(MethodPassword, false)
	c.RecordSignin(MethodPassword, false)
	c.RecordPost(false)
	c.RecordPost(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.signups.WithLabelValues(MethodPassword)))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.signups.WithLabelValues(MethodGoogle)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.signins.WithLabelValues(MethodPassword, ResultSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.signins.WithLabelValues(MethodPassword, ResultFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.posts.WithLabelValues(StatePublished)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.posts.WithLabelValues(StateDraft)))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordSignup(MethodPassword)
		c.RecordSignin(MethodGoogle, false)
		c.RecordPost(true)
	})
}

func TestHandler_Exposes(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg).RecordPost(false)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `blog_posts_created_total{state="published"} 1`)
}
