package ports

import (
	"context"

	"github.com/bnema/smartani/internal/domain"
)

// ScholarSearch looks up publications for a keyword query. Implementations
// handle their own rate-limit retries; any returned error means no external
// data is available for this query.
type ScholarSearch interface {
	Search(ctx context.Context, query string) ([]domain.Paper, error)
}
