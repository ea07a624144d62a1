package amp_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"amp-whale-tracker/internal/domain/entity"
	"amp-whale-tracker/internal/infrastructure/amp"
	"amp-whale-tracker/internal/infrastructure/config"
	"amp-whale-tracker/internal/infrastructure/logger"

	"go.uber.org/zap"
)

func testLogger() *logger.Logger {
	return &logger.Logger{Logger: zap.NewNop()}
}

func newTestClient(endpoint string, attempts int) *amp.Client {
	return amp.NewClient(&config.AmpConfig{
		EndpointURL:    endpoint,
		QueryTimeout:   2 * time.Second,
		MaxAttempts:    attempts,
		RetryBaseDelay: time.Millisecond,
	}, testLogger())
}

func TestExecuteColumnarResponse(t *testing.T) {
	var gotQuery atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotQuery.Store(string(body))
		w.Write([]byte(`{"columns":["eth_amount","from_address"],"rows":[[120.5,"0xaaa"],[75,"0xbbb"]]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)
	table, err := client.Execute(context.Background(), "SELECT 1 AS test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotQuery.Load() != "SELECT 1 AS test" {
		t.Errorf("endpoint received %q", gotQuery.Load())
	}
	if len(table.Columns) != 2 || table.Columns[0] != "eth_amount" {
		t.Errorf("unexpected columns %v", table.Columns)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(table.Rows))
	}
	if table.Rows[0]["eth_amount"] != 120.5 || table.Rows[1]["from_address"] != "0xbbb" {
		t.Errorf("unexpected rows %v", table.Rows)
	}
}

func TestExecuteArrayResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"eth_amount":50,"from_address":"0xaaa"},{"eth_amount":60,"from_address":"0xbbb"}]`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)
	table, err := client.Execute(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(table.Rows))
	}
	if table.Rows[1]["eth_amount"] != 60.0 {
		t.Errorf("unexpected row %v", table.Rows[1])
	}
}

func TestExecuteJSONLResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{\"eth_amount\":50}\n{\"eth_amount\":60}\n\n{\"eth_amount\":70}\n"))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)
	table, err := client.Execute(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(table.Rows))
	}
	if table.Rows[2]["eth_amount"] != 70.0 {
		t.Errorf("unexpected row %v", table.Rows[2])
	}
}

func TestExecuteEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	client := newTestClient(server.URL, 3)
	table, err := client.Execute(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Rows) != 0 {
		t.Errorf("expected no rows, got %d", len(table.Rows))
	}
}

func TestExecuteParseErrorNotRetried(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)
	_, err := client.Execute(context.Background(), "q")
	if err == nil {
		t.Fatal("expected error")
	}

	qerr, ok := entity.AsQueryError(err)
	if !ok || qerr.Kind != entity.ErrKindParse {
		t.Fatalf("expected parse error, got %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("parse failure must not retry, endpoint hit %d times", got)
	}
}

func TestExecuteColumnarWidthMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"columns":["a","b"],"rows":[[1]]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)
	_, err := client.Execute(context.Background(), "q")
	qerr, ok := entity.AsQueryError(err)
	if !ok || qerr.Kind != entity.ErrKindParse {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestExecuteServerErrorRetried(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "query engine overloaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)
	_, err := client.Execute(context.Background(), "q")
	if err == nil {
		t.Fatal("expected error")
	}

	qerr, ok := entity.AsQueryError(err)
	if !ok || qerr.Kind != entity.ErrKindServer {
		t.Fatalf("expected server error, got %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Errorf("expected 3 attempts, endpoint hit %d times", got)
	}
}

func TestExecuteTimeout(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		time.Sleep(300 * time.Millisecond)
	}))
	defer server.Close()

	client := amp.NewClient(&config.AmpConfig{
		EndpointURL:    server.URL,
		QueryTimeout:   50 * time.Millisecond,
		MaxAttempts:    2,
		RetryBaseDelay: time.Millisecond,
	}, testLogger())

	_, err := client.Execute(context.Background(), "q")
	if err == nil {
		t.Fatal("expected error")
	}

	qerr, ok := entity.AsQueryError(err)
	if !ok || qerr.Kind != entity.ErrKindTimeout {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Errorf("expected 2 attempts, endpoint hit %d times", got)
	}
}

func TestExecuteConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	client := newTestClient(endpoint, 2)
	_, err := client.Execute(context.Background(), "q")
	if err == nil {
		t.Fatal("expected error")
	}

	qerr, ok := entity.AsQueryError(err)
	if !ok || qerr.Kind != entity.ErrKindConnection {
		t.Fatalf("expected connection error, got %v", err)
	}
}

func TestPing(t *testing.T) {
	var gotQuery atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotQuery.Store(string(body))
		w.Write([]byte(`[{"test":1}]`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 1)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery.Load() != "SELECT 1 AS test" {
		t.Errorf("ping sent %q", gotQuery.Load())
	}
}
