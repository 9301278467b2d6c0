package telegram

import (
	"net/http"
	"time"

	"github.com/m3rciful/telecopter/core/telegram/netutil"
)

// BuildHTTPClient returns the retrying client used for Bot API calls.
// Long polling holds requests open, so the timeouts must exceed the poll timeout.
func BuildHTTPClient(longPollSeconds int) *http.Client {
	opts := netutil.ClientOptions{}
	if longPollSeconds > 0 {
		poll := time.Duration(longPollSeconds) * time.Second
		opts.Timeout = poll + 20*time.Second
		opts.ResponseTimeout = poll + 10*time.Second
	}
	return netutil.NewClient(opts)
}
