package metrics

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Recomputed("password_status")
	m.Recomputed("password_status")
	m.Emitted("username")
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	require.Equal(t, 2.0, testutil.ToFloat64(m.Recomputations.WithLabelValues("password_status")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Emissions.WithLabelValues("username")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSessions))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	require.NotPanics(t, func() {
		m.Recomputed("x")
		m.Emitted("x")
		m.SessionOpened()
		m.SessionClosed()
	})
}

func TestServer_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Recomputed("form_valid")

	srv := NewServer("127.0.0.1:0", reg)
	require.NoError(t, srv.Start())
	defer func() { _ = srv.Stop(context.Background()) }()

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.Contains(string(body), `regform_recomputations_total{signal="form_valid"} 1`))
}
