package main

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/infrasense/internal/assess"
	ic "github.com/linnemanlabs/infrasense/internal/cfg"
	"github.com/linnemanlabs/infrasense/internal/severity"
)

func TestCheckCrossConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		apiPort   int
		opsPort   int
		upload    int64
		errSubstr string
	}{
		{name: "valid", apiPort: 8000, opsPort: 9000, upload: 10 << 20},
		{name: "upload at ceiling", apiPort: 8000, opsPort: 9000, upload: maxRequestBytes},
		{name: "upload above ceiling", apiPort: 8000, opsPort: 9000, upload: maxRequestBytes + 1, errSubstr: "exceeds request ceiling"},
		{name: "shared port", apiPort: 8000, opsPort: 8000, upload: 1024, errSubstr: "ports must differ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := &ic.Config{APIPort: tt.apiPort, MaxUploadBytes: tt.upload}
			err := checkCrossConfig(c, tt.opsPort)
			if tt.errSubstr == "" {
				if err != nil {
					t.Fatalf("checkCrossConfig: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errSubstr) {
				t.Errorf("error = %q, want substring %q", err, tt.errSubstr)
			}
		})
	}
}

func TestResultHook_Disabled(t *testing.T) {
	t.Parallel()

	hook, err := resultHook(context.Background(), log.Nop(), &ic.Config{NotifyMinSeverity: "bogus"})
	if err != nil {
		t.Fatalf("resultHook: %v", err)
	}
	if hook != nil {
		t.Error("expected nil hook without a webhook url")
	}
}

func TestResultHook_InvalidMinSeverity(t *testing.T) {
	t.Parallel()

	c := &ic.Config{SlackWebhookURL: "http://127.0.0.1:1/hook", NotifyMinSeverity: "critical"}
	if _, err := resultHook(context.Background(), log.Nop(), c); err == nil {
		t.Fatal("expected error for unknown minimum severity")
	}
}

func TestResultHook_PostsAtMinimum(t *testing.T) {
	t.Parallel()

	posted := make(chan struct{}, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		posted <- struct{}{}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	c := &ic.Config{SlackWebhookURL: srv.URL, NotifyMinSeverity: "medium"}
	hook, err := resultHook(context.Background(), log.Nop(), c)
	if err != nil {
		t.Fatalf("resultHook: %v", err)
	}
	if hook == nil {
		t.Fatal("expected hook with a webhook url")
	}

	hook(context.Background(), &assess.Result{ID: "low", Final: severity.Low})
	hook(context.Background(), &assess.Result{ID: "medium", Final: severity.Medium})

	select {
	case <-posted:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for webhook post")
	}
	select {
	case <-posted:
		t.Error("low severity result was posted")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNotifySystemd_Errors(t *testing.T) {
	tests := []struct {
		name   string
		socket func(t *testing.T) string
		substr string
	}{
		{"unset", func(*testing.T) string { return "" }, "NOTIFY_SOCKET not set"},
		{"missing socket", func(t *testing.T) string { return filepath.Join(t.TempDir(), "gone.sock") }, "dial failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NOTIFY_SOCKET", tt.socket(t))

			err := notifySystemd()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("error = %q, want substring %q", err, tt.substr)
			}
		})
	}
}

func TestNotifySystemd_SendsReady(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notify.sock")
	var lc net.ListenConfig
	pc, err := lc.ListenPacket(context.Background(), "unixgram", path)
	if err != nil {
		t.Fatalf("listen unixgram: %v", err)
	}
	t.Cleanup(func() { _ = pc.Close() })
	t.Setenv("NOTIFY_SOCKET", path)

	if err := notifySystemd(); err != nil {
		t.Fatalf("notifySystemd: %v", err)
	}

	_ = pc.SetReadDeadline(time.Now().Add(5 * time.Second))
	buf := make([]byte, 64)
	n, _, err := pc.ReadFrom(buf)
	if err != nil {
		t.Fatalf("read datagram: %v", err)
	}
	if got := string(buf[:n]); got != "READY=1" {
		t.Errorf("datagram = %q, want READY=1", got)
	}
}
