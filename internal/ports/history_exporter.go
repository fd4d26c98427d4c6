package ports

import (
	"context"

	"github.com/bnema/smartani/internal/domain"
)

type HistoryExporter interface {
	Export(ctx context.Context, sessionKey string, exchanges []domain.Exchange) (string, error)
}
