package contracts

import (
	"context"

	"github.com/meysamhadeli/codecompanion/history_store/models"
)

// IHistoryStore is an append-only log of completed exchanges.
type IHistoryStore interface {
	Append(ctx context.Context, record *models.HistoryRecord) (int64, error)
	List(ctx context.Context, limit int) ([]models.HistoryRecord, error)
	Get(ctx context.Context, id int64) (*models.HistoryRecord, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	Close() error
}
