package repository

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/eaglebank/ledger/shared/errs"
	"github.com/eaglebank/ledger/shared/models"
	sharedredis "github.com/eaglebank/ledger/shared/redis"
)

const (
	replenishmentViewKeyPrefix = "replenishment:view:"
	transferViewKeyPrefix      = "transfer:view:"
)

// RecordReadRepository serves single ledger records. Records never change
// after they are written, so Redis is used as a read-through cache in front
// of the store. They do disappear when their account is deleted, and a
// reader that missed before the delete can still write the old view back
// after Evict ran. A cache hit is therefore confirmed against the store by
// primary key before it is served.
type RecordReadRepository struct {
	store          *LedgerStore
	replenishments *sharedredis.ViewCache[models.ReplenishmentView]
	transfers      *sharedredis.ViewCache[models.TransferView]
}

// NewRecordReadRepository builds the repository. A nil redisClient disables
// caching and every read goes to the store.
func NewRecordReadRepository(store *LedgerStore, redisClient *goredis.Client, ttl time.Duration, logger *zap.Logger) *RecordReadRepository {
	return &RecordReadRepository{
		store:          store,
		replenishments: sharedredis.NewViewCache[models.ReplenishmentView](redisClient, ttl, logger),
		transfers:      sharedredis.NewViewCache[models.TransferView](redisClient, ttl, logger),
	}
}

func (r *RecordReadRepository) GetReplenishment(ctx context.Context, id string) (*models.ReplenishmentView, error) {
	key := replenishmentViewKeyPrefix + id
	if view, ok := r.replenishments.Get(ctx, key); ok {
		found, err := r.store.HasReplenishment(ctx, id)
		if err != nil {
			return nil, err
		}
		if found {
			return view, nil
		}
		r.replenishments.Delete(ctx, key)
		return nil, errs.New(errs.NotFound, "replenishment not found")
	}
	view, err := r.store.GetReplenishmentView(ctx, id)
	if err != nil {
		return nil, err
	}
	r.replenishments.Set(ctx, key, view)
	return view, nil
}

func (r *RecordReadRepository) GetTransfer(ctx context.Context, id string) (*models.TransferView, error) {
	key := transferViewKeyPrefix + id
	if view, ok := r.transfers.Get(ctx, key); ok {
		found, err := r.store.HasTransfer(ctx, id)
		if err != nil {
			return nil, err
		}
		if found {
			return view, nil
		}
		r.transfers.Delete(ctx, key)
		return nil, errs.New(errs.NotFound, "transfer not found")
	}
	view, err := r.store.GetTransferView(ctx, id)
	if err != nil {
		return nil, err
	}
	r.transfers.Set(ctx, key, view)
	return view, nil
}

// CacheReplenishment warms the cache right after a replenishment commits.
func (r *RecordReadRepository) CacheReplenishment(ctx context.Context, view *models.ReplenishmentView) {
	r.replenishments.Set(ctx, replenishmentViewKeyPrefix+view.ID, view)
}

// CacheTransfer warms the cache right after a transfer commits.
func (r *RecordReadRepository) CacheTransfer(ctx context.Context, view *models.TransferView) {
	r.transfers.Set(ctx, transferViewKeyPrefix+view.ID, view)
}

// Evict drops cached records that were deleted along with their account.
func (r *RecordReadRepository) Evict(ctx context.Context, replenishmentIDs, transferIDs []string) {
	for _, id := range replenishmentIDs {
		r.replenishments.Delete(ctx, replenishmentViewKeyPrefix+id)
	}
	for _, id := range transferIDs {
		r.transfers.Delete(ctx, transferViewKeyPrefix+id)
	}
}
