package client

import (
	"context"
	"fmt"
	"io"
	"time"
)

// DefaultRefreshInterval keeps the access token ahead of its 15 minute lifetime.
const DefaultRefreshInterval = 10 * time.Minute

// StartAutoRefresh renews the session's tokens every interval until ctx is done.
// Failures are reported to w and retried on the next tick.
func StartAutoRefresh(ctx context.Context, api *API, interval time.Duration, w io.Writer) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !api.Session.LoggedIn() {
					continue
				}
				if err := api.Refresh(ctx); err != nil && ctx.Err() == nil {
					fmt.Fprintln(w, "token refresh error:", err)
				}
			}
		}
	}()
}
