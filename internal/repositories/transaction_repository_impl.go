package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fluxpay/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Append(ctx context.Context, rec *models.TransactionRecord) error {
	rec.Status = models.StatusPending
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to append transaction record: %w", err)
	}
	return nil
}

func (r *transactionRepository) Finalize(ctx context.Context, id uint, status string) error {
	switch status {
	case models.StatusCompleted, models.StatusFailed, models.StatusCancelled:
	default:
		return fmt.Errorf("%w: %q is not a terminal status", ErrInvalidStateTransition, status)
	}

	res := r.db.WithContext(ctx).Model(&models.TransactionRecord{}).
		Where("id = ? AND status = ?", id, models.StatusPending).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to finalize record %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: record %d is not pending", ErrInvalidStateTransition, id)
	}
	return nil
}

func (r *transactionRepository) GetByReference(ctx context.Context, reference string) (*models.TransactionRecord, error) {
	var rec models.TransactionRecord
	err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return &rec, nil
}

func (r *transactionRepository) Query(ctx context.Context, filter TransactionFilter, limit, offset int) ([]models.TransactionRecord, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.TransactionRecord{})
	if filter.IncludeDeleted {
		q = q.Unscoped()
	}
	if filter.UserID != nil {
		q = q.Where("source_user_id = ? OR dest_user_id = ?", *filter.UserID, *filter.UserID)
	}
	if filter.Kind != "" {
		q = q.Where("kind = ?", filter.Kind)
	}
	if filter.Flagged != nil {
		q = q.Where("flagged = ?", *filter.Flagged)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at < ?", *filter.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count records: %w", err)
	}

	var records []models.TransactionRecord
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query records: %w", err)
	}
	return records, total, nil
}

func (r *transactionRepository) CountRecent(ctx context.Context, userID uint, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TransactionRecord{}).
		Where("(source_user_id = ? OR dest_user_id = ?) AND created_at >= ?", userID, userID, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count recent records: %w", err)
	}
	return count, nil
}

func (r *transactionRepository) SumRecent(ctx context.Context, userID uint, kind string, since time.Time) (int64, decimal.Decimal, error) {
	var result struct {
		Count int64
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).Model(&models.TransactionRecord{}).
		Where("(source_user_id = ? OR dest_user_id = ?) AND kind = ? AND created_at >= ?",
			userID, userID, kind, since).
		Select("COUNT(*) as count, COALESCE(SUM(amount), 0) as total").
		Scan(&result).Error
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("failed to sum recent records: %w", err)
	}
	return result.Count, result.Total, nil
}

func (r *transactionRepository) ListWindow(ctx context.Context, start, end time.Time) ([]models.TransactionRecord, error) {
	var records []models.TransactionRecord
	err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", start, end).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list window records: %w", err)
	}
	return records, nil
}
