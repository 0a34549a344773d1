package ports

import (
	"context"

	"github.com/dejobratic/reportwebhook/internal/reports/domain"
)

// ArtifactLedger binds each order to the code its artifact is built from.
// Reserve stores entry when the order has no binding yet and returns the
// binding in effect afterwards. Concurrent reservations for one order agree
// on a single winner.
type ArtifactLedger interface {
	Reserve(ctx context.Context, entry domain.LedgerEntry) (domain.LedgerEntry, error)
}
