package biz_test

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kart-io/catalog-console/internal/catalog/gateway"
	"github.com/kart-io/catalog-console/internal/catalog/metrics"
	"github.com/kart-io/catalog-console/internal/catalog/mockserver"
	"github.com/kart-io/catalog-console/internal/model"
	"github.com/kart-io/catalog-console/pkg/utils/httpclient"
)

type env struct {
	gw      *gateway.Gateway
	mock    *mockserver.Server
	metrics *metrics.Metrics
}

func setup(t *testing.T) *env {
	t.Helper()
	mock := mockserver.New()
	srv := httptest.NewServer(mock.Handler())
	t.Cleanup(srv.Close)

	m := metrics.New(prometheus.NewRegistry())
	client := httpclient.NewClient(srv.URL+"/api", httpclient.WithObserver(m))
	return &env{gw: gateway.New(client), mock: mock, metrics: m}
}

// callsTo 返回指定路径上的请求。
func (e *env) callsTo(path string) []mockserver.Call {
	var out []mockserver.Call
	for _, c := range e.mock.Calls() {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

func (e *env) seed(t *testing.T, typ, title, content string) model.Artifact {
	t.Helper()
	a, err := e.mock.Seed(0, typ, title, content)
	if err != nil {
		t.Fatalf("seed artifact: %v", err)
	}
	e.mock.ResetCalls()
	return a
}

func ptr[T any](v T) *T { return &v }
