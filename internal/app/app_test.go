package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"PublishNotifier/internal/config"
	"PublishNotifier/internal/logging"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte("audit:\n  cronExpression: \"@every 1h\"\n"))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	cfg.Database.DSN = filepath.Join(t.TempDir(), "app.db")
	cfg.HTTP.Addr = "127.0.0.1:0"
	return cfg
}

func TestRunServesUntilCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := New(ctx, testConfig(t), logging.Discard())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if application.auditor == nil {
		t.Fatalf("valid cron expression should enable the audit")
	}

	rec := httptest.NewRecorder()
	application.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz returned %d", rec.Code)
	}

	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not stop after cancel")
	}
}

func TestNewDisablesAuditOnBadCron(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Audit.CronExpression = "whenever"

	application, err := New(context.Background(), cfg, logging.Discard())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	defer application.db.Close()

	if application.auditor != nil {
		t.Fatalf("invalid cron expression should disable the audit")
	}
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Database.Driver = "oracle"
	if _, err := New(context.Background(), cfg, logging.Discard()); err == nil {
		t.Fatalf("expected driver error")
	}
}
