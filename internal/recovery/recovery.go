// Package recovery rebuilds the ranked store from the durable ledger.
//
// A recovery run streams the full score table through the store's normal
// version-gated apply path, so running it against a live, concurrently
// projecting store is safe: whichever side saw the newer version of a user
// wins, and the other side's write is discarded.
package recovery

import (
	"context"
	"time"

	"github.com/rzbill/podium/internal/ledger"
	"github.com/rzbill/podium/internal/rankstore"
	logpkg "github.com/rzbill/podium/pkg/log"
)

// DefaultBatchSize is the ledger scan batch size.
const DefaultBatchSize = 1000

// Result summarizes a recovery run.
type Result struct {
	Scanned  int64         `json:"scanned"`
	Applied  int64         `json:"applied"`
	Duration time.Duration `json:"-"`
}

// Run rescans the ledger into the store and marks it ready. Returns the
// number of scanned and applied tuples.
func Run(ctx context.Context, led ledger.Ledger, store *rankstore.Store, logger logpkg.Logger) (Result, error) {
	start := time.Now()
	var res Result
	err := led.ScanScores(ctx, DefaultBatchSize, func(batch []ledger.UserScore) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, us := range batch {
			res.Scanned++
			if r := store.Apply(us.UserID, us.Score, us.Version); r.Applied {
				res.Applied++
			}
		}
		return nil
	})
	if err != nil {
		return res, err
	}
	// an empty ledger is still an authoritative answer
	store.MarkReady()
	res.Duration = time.Since(start)
	logger.Info("recovery complete",
		logpkg.Int64("scanned", res.Scanned),
		logpkg.Int64("applied", res.Applied),
		logpkg.Duration("took", res.Duration),
	)
	return res, nil
}
