// Package service hosts background processes that run alongside the HTTP
// server.
package service

import (
	"context"
	"log"
	"time"

	"github.com/classgate/access/internal/repository"
)

// StartExpirySweeper periodically purges entitlement rows whose expiry has
// passed. The sweep is an optimization that keeps the table small; it is
// never load-bearing, because the access decision recomputes validity from
// expires_at on every call and a lagging sweep can therefore never leak
// access. The goroutine stops when ctx is cancelled.
func StartExpirySweeper(ctx context.Context, repo *repository.EntitlementRepo, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				opCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
				n, err := repo.PurgeExpired(opCtx)
				cancel()
				if err != nil {
					log.Printf("sweeper: purge failed: %v", err)
					continue
				}
				if n > 0 {
					log.Printf("sweeper: purged %d expired entitlements", n)
				}
			}
		}
	}()
}
