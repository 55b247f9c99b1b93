package main

import (
	"database/sql"
	"os"
	"sync"
	"time"

	"github.com/Kritarthpandey2003/unified-ops-platform/internal/db"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/logging"
)

// holdServerLease claims the data directory for this process and keeps the
// lease alive until the returned release func is called. Other processes
// refuse to write while it is held.
func holdServerLease(database *sql.DB, addr string) (release func(), err error) {
	lease := db.ServerLease{PID: os.Getpid(), Addr: addr}
	if err := db.RenewServerLease(database, lease, time.Now()); err != nil {
		return nil, err
	}

	log := logging.NewLogger("serve")
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(db.LeaseTTL / 3)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := db.RenewServerLease(database, lease, time.Now()); err != nil {
					log.WithError(err).Warn("failed to renew server lease")
				}
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
		if err := db.ReleaseServerLease(database, lease.PID); err != nil {
			log.WithError(err).Warn("failed to release server lease")
		}
	}, nil
}
