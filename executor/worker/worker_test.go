package worker

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PeladoCollado/stress/logger"
	"github.com/PeladoCollado/stress/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newJob(url string, settings *types.Settings) types.Job {
	return types.Job{Method: http.MethodGet, URL: url, Settings: settings}
}

func TestExecuteAgainstServerRecordsStatusAndDuration(t *testing.T) {
	var gotMethod, gotHeader, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Get("X-Test")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	settings := types.DefaultSettings()
	executor := NewExecutor(NewHTTPTransport(1, logger.NewNop()), logger.NewNop())
	result := executor.Execute(context.Background(), types.Job{
		Method:   http.MethodPost,
		URL:      server.URL + "/index",
		Headers:  map[string]string{"X-Test": "yes"},
		Body:     []byte(`{"a":1}`),
		Settings: &settings,
	})

	if result.Outcome != types.OutcomeSuccess {
		t.Fatalf("expected completed exchange, got %s", result.Outcome)
	}
	if result.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", result.StatusCode)
	}
	if !result.HasElapsed || result.Elapsed <= 0 {
		t.Fatalf("expected measured duration, got %v (%t)", result.Elapsed, result.HasElapsed)
	}
	if result.Status() != "503" {
		t.Fatalf("expected status key 503, got %s", result.Status())
	}
	if gotMethod != http.MethodPost || gotHeader != "yes" || gotBody != `{"a":1}` {
		t.Fatalf("unexpected upstream request: method=%s header=%s body=%s", gotMethod, gotHeader, gotBody)
	}
}

func TestExecuteConnectionRefusedHasNoDuration(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	settings := types.DefaultSettings()
	executor := NewExecutor(NewHTTPTransport(1, logger.NewNop()), logger.NewNop())
	result := executor.Execute(context.Background(), newJob(url, &settings))

	if result.Outcome != types.OutcomeConnectionFailure {
		t.Fatalf("expected connection failure, got %s", result.Outcome)
	}
	if result.HasElapsed {
		t.Fatalf("connection failures must not carry a duration")
	}
	if result.Status() != "connection refused" {
		t.Fatalf("expected connection refused label, got %q", result.Status())
	}
}

func TestExecuteReadTimeoutIsClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	settings := types.DefaultSettings()
	settings.ReadTimeout = 20 * time.Millisecond
	executor := NewExecutor(NewHTTPTransport(1, logger.NewNop()), logger.NewNop())
	result := executor.Execute(context.Background(), newJob(server.URL, &settings))

	if result.Outcome != types.OutcomeConnectionFailure {
		t.Fatalf("expected connection failure, got %s", result.Outcome)
	}
	if result.Error != "timeout" {
		t.Fatalf("expected timeout label, got %q", result.Error)
	}
}

func TestExecuteRecoversFromPanickingTransport(t *testing.T) {
	transport := TransportFunc(func(ctx context.Context, req Request) (Response, error) {
		panic("boom")
	})
	settings := types.DefaultSettings()
	result := NewExecutor(transport, nil).Execute(context.Background(), newJob("http://example.local/", &settings))

	if result.Outcome != types.OutcomeUnexpectedFailure {
		t.Fatalf("expected unexpected failure, got %s", result.Outcome)
	}
	if !strings.Contains(result.Error, "boom") {
		t.Fatalf("expected panic value in label, got %q", result.Error)
	}
	if result.HasElapsed {
		t.Fatalf("expected no duration without a response")
	}
}

func TestExecuteKeepsStatusWhenBodyReadFails(t *testing.T) {
	transport := TransportFunc(func(ctx context.Context, req Request) (Response, error) {
		return Response{StatusCode: http.StatusOK}, errors.New("read response body: unexpected EOF")
	})
	settings := types.DefaultSettings()
	result := NewExecutor(transport, nil).Execute(context.Background(), newJob("http://example.local/", &settings))

	if result.Outcome != types.OutcomeUnexpectedFailure {
		t.Fatalf("expected unexpected failure, got %s", result.Outcome)
	}
	if result.Status() != "200" || !result.HasElapsed {
		t.Fatalf("expected status 200 with duration, got %s (%t)", result.Status(), result.HasElapsed)
	}
}

func TestExecuteLogsExtractedZeroHits(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	transport := TransportFunc(func(ctx context.Context, req Request) (Response, error) {
		return Response{StatusCode: http.StatusOK, Body: []byte(`{"hits":{"total":0}}`)}, nil
	})
	settings := types.DefaultSettings()
	settings.ParseJSON = true
	settings.Output = types.OutputHead

	result := NewExecutor(transport, logger.FromZap(zap.New(core))).
		Execute(context.Background(), newJob("http://example.local/_search", &settings))
	if result.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", result.StatusCode)
	}

	entries := logs.FilterMessage("Request completed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one request log line, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["hits"] != "0" {
		t.Fatalf("expected hits 0 to be logged, got %v", fields["hits"])
	}
	if fields["body"] != `{"hits":{"total":0}}` {
		t.Fatalf("expected body head in log, got %v", fields["body"])
	}
}

func TestExtractField(t *testing.T) {
	cases := []struct {
		body     string
		expected string
	}{
		{`{"hits":{"total":42}}`, "42"},
		{`{"hits":{"total":{"value":7,"relation":"eq"}}}`, `{"relation":"eq","value":7}`},
		{`{"hits":{}}`, "missing hits.total"},
	}
	for _, c := range cases {
		if got := extractField([]byte(c.body), "hits.total"); got != c.expected {
			t.Fatalf("extract from %s: expected %q, got %q", c.body, c.expected, got)
		}
	}
	if got := extractField([]byte("<html>"), "hits.total"); !strings.HasPrefix(got, "invalid json") {
		t.Fatalf("expected invalid json diagnostic, got %q", got)
	}
}

func TestShorten(t *testing.T) {
	if got := shorten("short"); got != "short" {
		t.Fatalf("expected unchanged label, got %q", got)
	}
	withParen := "HTTPConnectionPool(host='localhost', port=9200): Max retries exceeded with url: /_search"
	if got := shorten(withParen); got != "HTTPConnectionPool" {
		t.Fatalf("expected cut at parenthesis, got %q", got)
	}
	long := strings.Repeat("a", 50) + strings.Repeat("b", 50)
	got := shorten(long)
	if got != strings.Repeat("a", 35)+"..."+strings.Repeat("b", 35) {
		t.Fatalf("expected head and tail, got %q", got)
	}
}
