package observability_test

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"propchat/internal/observability"
)

func TestMetricsRegistryAndHandler(t *testing.T) {
	reg := observability.InitRegistry()

	observability.ObserveHTTP("/test", "GET", 200, 12*time.Millisecond)
	observability.ObserveLLM("intent", "fallback", 40*time.Millisecond)
	observability.ObserveCatalog(nil, time.Millisecond)

	mh := observability.MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	for _, name := range []string{"propchat_http_requests_total", "propchat_llm_requests_total", "propchat_catalog_loads_total"} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %s in output", name)
		}
	}
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	r := gin.New()
	r.Use(observability.GinMetrics(), observability.GinLogger(zerolog.New(&buf)))
	r.GET("/ping/:id", func(c *gin.Context) { c.String(http.StatusTeapot, "pong") })

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/ping/7", nil))

	if rr.Code != http.StatusTeapot {
		t.Fatalf("status: %d", rr.Code)
	}
	line := buf.String()
	if !strings.Contains(line, `"route":"/ping/:id"`) || !strings.Contains(line, `"status":418`) {
		t.Fatalf("unexpected log line: %s", line)
	}
}
