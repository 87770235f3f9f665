package accountd

import (
	"context"
	"log"
	"time"
)

// StartSessionSweeper periodically deletes expired sessions until ctx is
// cancelled. It runs in its own goroutine; sweep failures are logged and the
// loop keeps going. A non-positive configured interval disables the sweeper.
func (e *Engine) StartSessionSweeper(ctx context.Context) {
	if e == nil || e.sessions == nil {
		return
	}

	interval := e.config.Session.SweepInterval
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := e.sessions.SweepExpired(ctx, time.Now().UTC())
				if err != nil {
					log.Printf("accountd: session sweep: %v", err)
					continue
				}
				if n > 0 {
					log.Printf("accountd: swept %d expired sessions", n)
				}
			}
		}
	}()
}
