package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/boincctl/internal/testutil/testlog"
	"github.com/danmuck/boincctl/model"
	"github.com/danmuck/boincctl/protocol"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestOutcomeLabels(t *testing.T) {
	testlog.Start(t)
	cases := map[string]error{
		"ok":               nil,
		"network":          protocol.NetworkError(errors.New("reset")),
		"already_attached": protocol.AlreadyAttachedError("Already attached to project"),
		"other":            errors.New("plain"),
	}
	for want, err := range cases {
		if got := Outcome(err); got != want {
			t.Fatalf("Outcome(%v) got=%q want=%q", err, got, want)
		}
	}
}

func TestObserverRecordsCallsRetriesAndSessions(t *testing.T) {
	testlog.Start(t)
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveCall("get_host_info", nil, 5*time.Millisecond)
	m.ObserveCall("get_host_info", protocol.AuthError("unauthorized"), time.Millisecond)
	m.ObserveRetry("get_host_info", protocol.NetworkErrorMessage("reset"))
	m.ObserveSession(nil)
	m.ObserveSession(protocol.ConnectError(errors.New("refused")))

	if got := testutil.ToFloat64(m.calls.WithLabelValues("get_host_info", "ok")); got != 1 {
		t.Fatalf("ok calls got=%v", got)
	}
	if got := testutil.ToFloat64(m.calls.WithLabelValues("get_host_info", "auth")); got != 1 {
		t.Fatalf("auth calls got=%v", got)
	}
	if got := testutil.ToFloat64(m.retries.WithLabelValues("get_host_info")); got != 1 {
		t.Fatalf("retries got=%v", got)
	}
	if got := testutil.ToFloat64(m.sessions.WithLabelValues("connect")); got != 1 {
		t.Fatalf("failed sessions got=%v", got)
	}
	if got := testutil.CollectAndCount(m.callDuration); got != 1 {
		t.Fatalf("duration series got=%d", got)
	}
}

func TestSnapshotPublishesEveryResultState(t *testing.T) {
	testlog.Start(t)
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	host := model.HostInfo{NCPUs: 12, MemoryBytes: 8 << 30}
	results := []model.TaskResult{
		{State: model.ResultFilesDownloaded},
		{State: model.ResultFilesDownloaded},
		{State: model.ResultComputeError},
	}
	m.SetSnapshot(host, results, time.Unix(1700000000, 0))

	expected := `
# HELP boinc_host_ncpus Logical CPUs reported by the daemon.
# TYPE boinc_host_ncpus gauge
boinc_host_ncpus 12
# HELP boinc_up 1 when the last poll of the daemon succeeded.
# TYPE boinc_up gauge
boinc_up 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "boinc_up", "boinc_host_ncpus"); err != nil {
		t.Fatalf("gauges: %v", err)
	}
	if got := testutil.ToFloat64(m.results.WithLabelValues("files_downloaded")); got != 2 {
		t.Fatalf("files_downloaded got=%v", got)
	}
	if got := testutil.ToFloat64(m.results.WithLabelValues("new")); got != 0 {
		t.Fatalf("new got=%v", got)
	}
	if got := testutil.CollectAndCount(m.results); got != len(model.ResultStates) {
		t.Fatalf("result series got=%d", got)
	}

	m.SetDown()
	if got := testutil.ToFloat64(m.up); got != 0 {
		t.Fatalf("up after SetDown got=%v", got)
	}
	if got := testutil.ToFloat64(m.hostNCPUs); got != 12 {
		t.Fatalf("host gauges must survive a failed poll, got=%v", got)
	}
}

func TestMiddlewareLogsAndCountsRequests(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	var buf strings.Builder
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	router := gin.New()
	router.Use(RequestLogger(logger), RequestMetrics(m))
	router.GET("/health", func(c *gin.Context) {
		zerolog.Ctx(c.Request.Context()).Info().Msg("inside handler")
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK || w.Header().Get(RequestIDHeader) != "req-1" {
		t.Fatalf("status=%d request id=%q", w.Code, w.Header().Get(RequestIDHeader))
	}
	out := buf.String()
	if strings.Count(out, `"request_id":"req-1"`) != 2 {
		t.Fatalf("request id missing from logs: %s", out)
	}
	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/health", "200")); got != 1 {
		t.Fatalf("http requests got=%v", got)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "unmatched", "404")); got != 1 {
		t.Fatalf("unmatched requests got=%v", got)
	}
	if w.Header().Get(RequestIDHeader) == "" {
		t.Fatalf("generated request id missing")
	}
}
