package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/colmena/internal/model"
)

// OutboxRepository 通知意图外发盒
type OutboxRepository interface {
	Enqueue(ctx context.Context, ev *model.Outbox) error
	// Claim 领取一批 pending 事件并置为 processing；lease>0 时一并领取
	// claimed_at 早于 now-lease 的 processing 事件（领取者崩溃或 MarkDone 失败）
	Claim(ctx context.Context, limit int, lease time.Duration) ([]*model.Outbox, error)
	MarkDone(ctx context.Context, id string) error
	// Release 投递失败：attempts+1，未超过上限时回到 pending
	Release(ctx context.Context, id string, maxAttempts int) error
	CountByStatus(ctx context.Context, status string) (int64, error)
	WithTx(tx *gorm.DB) OutboxRepository
}

type outboxRepository struct{ db *gorm.DB }

func NewOutboxRepository(db *gorm.DB) OutboxRepository { return &outboxRepository{db: db} }

func (r *outboxRepository) WithTx(tx *gorm.DB) OutboxRepository { return &outboxRepository{db: tx} }

func (r *outboxRepository) Enqueue(ctx context.Context, ev *model.Outbox) error {
	if ev.Status == "" {
		ev.Status = model.OutboxPending
	}
	return r.db.WithContext(ctx).Create(ev).Error
}

func (r *outboxRepository) Claim(ctx context.Context, limit int, lease time.Duration) ([]*model.Outbox, error) {
	var batch []*model.Outbox
	now := time.Now()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("status = ?", model.OutboxPending)
		if lease > 0 {
			q = tx.Where("status = ? OR (status = ? AND claimed_at < ?)",
				model.OutboxPending, model.OutboxProcessing, now.Add(-lease))
		}
		q = q.Order("created_at").Limit(limit)
		// SELECT ... FOR UPDATE SKIP LOCKED，sqlite 无行锁，单写者天然串行
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		if err := q.Find(&batch).Error; err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		ids := make([]string, len(batch))
		for i, b := range batch {
			ids[i] = b.ID
			b.Status = model.OutboxProcessing
			b.ClaimedAt = &now
		}
		return tx.Model(&model.Outbox{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{"status": model.OutboxProcessing, "claimed_at": now}).Error
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

func (r *outboxRepository) MarkDone(ctx context.Context, id string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&model.Outbox{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": model.OutboxDone, "processed_at": now}).Error
}

func (r *outboxRepository) Release(ctx context.Context, id string, maxAttempts int) error {
	return r.db.WithContext(ctx).
		Model(&model.Outbox{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts": gorm.Expr("attempts + 1"),
			"status": gorm.Expr("CASE WHEN attempts + 1 >= ? THEN ? ELSE ? END",
				maxAttempts, model.OutboxFailed, model.OutboxPending),
		}).Error
}

func (r *outboxRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Outbox{}).Where("status = ?", status).Count(&cnt).Error
	return cnt, err
}
