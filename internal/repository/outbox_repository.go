package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/blog-reactions/internal/model"
)

type OutboxRepository interface {
	Create(ctx context.Context, event *model.Outbox) error
	// ClaimPending 领取一批 pending 事件并置为 processing；
	// 领取时间早于 staleBefore 的 processing 事件视为持有者已崩溃，一并重新领取
	ClaimPending(ctx context.Context, limit int, staleBefore time.Time) ([]model.Outbox, error)
	MarkDone(ctx context.Context, id string, fanoutCount int64) error
	// Release 处理失败时退回 pending
	Release(ctx context.Context, id string) error
}

type outboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) OutboxRepository { return &outboxRepository{db: db} }

func (r *outboxRepository) Create(ctx context.Context, event *model.Outbox) error {
	return translate(r.db.WithContext(ctx).Create(event).Error)
}

func (r *outboxRepository) ClaimPending(ctx context.Context, limit int, staleBefore time.Time) ([]model.Outbox, error) {
	var batch []model.Outbox
	now := time.Now()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// PostgreSQL 上为 FOR UPDATE SKIP LOCKED，多个 worker 互不阻塞
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? OR (status = ? AND claimed_at < ?)", model.OutboxPending, model.OutboxProcessing, staleBefore).
			Order("created_at").
			Limit(limit).
			Find(&batch).Error; err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		ids := make([]string, len(batch))
		for i, b := range batch {
			ids[i] = b.ID
		}
		return tx.Model(&model.Outbox{}).Where("id IN ?", ids).
			Updates(map[string]any{"status": model.OutboxProcessing, "claimed_at": now}).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	for i := range batch {
		batch[i].Status = model.OutboxProcessing
		batch[i].ClaimedAt = &now
	}
	return batch, nil
}

func (r *outboxRepository) MarkDone(ctx context.Context, id string, fanoutCount int64) error {
	now := time.Now()
	return translate(r.db.WithContext(ctx).
		Model(&model.Outbox{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": model.OutboxDone, "processed_at": now, "fanout_count": fanoutCount}).Error)
}

func (r *outboxRepository) Release(ctx context.Context, id string) error {
	return translate(r.db.WithContext(ctx).
		Model(&model.Outbox{}).
		Where("id = ? AND status = ?", id, model.OutboxProcessing).
		Updates(map[string]any{"status": model.OutboxPending, "claimed_at": nil}).Error)
}
