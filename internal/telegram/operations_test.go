package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
)

// Enforcement calls ride on the action client's HTTP timeout, a stalled
// Telegram endpoint must fail the call instead of blocking the pipeline.
func TestOperationsRequestsAreBounded(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	bot := &api.BotAPI{
		Token:  "test-token",
		Buffer: 100,
		Client: &http.Client{Timeout: 50 * time.Millisecond},
	}
	bot.SetAPIEndpoint(server.URL + "/bot%s/%s")
	ops := NewOperations(bot)

	start := time.Now()
	err := ops.DeleteMessage(context.Background(), 1, 10)
	elapsed := time.Since(start)

	if err == nil {
		t.Fatalf("expected a timeout error from the stalled endpoint")
	}
	if elapsed > 5*time.Second {
		t.Fatalf("call was not bounded by the client timeout, took %s", elapsed)
	}
}
