package transactions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"farmtrade-backend/internal/domain"
	"farmtrade-backend/internal/pkg/money"
	"farmtrade-backend/internal/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Filter narrows ledger queries. Nil fields are not applied.
type Filter struct {
	FarmerID        *uuid.UUID
	BuyerID         *uuid.UUID
	Status          *domain.TransactionStatus
	CropType        *domain.CropType
	CompletedFrom   *time.Time // inclusive
	CompletedBefore *time.Time // exclusive
}

func (f Filter) completionRange() bool {
	return f.CompletedFrom != nil || f.CompletedBefore != nil
}

// Store is the persistence port of the ledger.
type Store interface {
	// WithTx runs fn against a Store bound to one database transaction.
	WithTx(ctx context.Context, fn func(Store) error) error
	Load(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	Create(ctx context.Context, t *domain.Transaction) error
	// SaveIfVersion writes t only if the stored version still equals expected.
	SaveIfVersion(ctx context.Context, t *domain.Transaction, expected int64) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindPage(ctx context.Context, f Filter, req pagination.Request) (pagination.Page[domain.Transaction], error)
	TopCompleted(ctx context.Context, limit int) ([]domain.Transaction, error)
	CompletedAmounts(ctx context.Context, f Filter) ([]money.Amount, error)
	RecordAudit(ctx context.Context, a *domain.TransactionAudit) error
}

// GormStore implements Store over the Transactions and TransactionAudits tables.
type GormStore struct {
	DB *gorm.DB
}

func (s *GormStore) WithTx(ctx context.Context, fn func(Store) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{DB: tx})
	})
}

func (s *GormStore) Load(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	var t domain.Transaction
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: transaction %s", domain.ErrNotFound, id)
		}
		return nil, err
	}
	return &t, nil
}

func (s *GormStore) Create(ctx context.Context, t *domain.Transaction) error {
	return s.DB.WithContext(ctx).Create(t).Error
}

func (s *GormStore) SaveIfVersion(ctx context.Context, t *domain.Transaction, expected int64) error {
	res := s.DB.WithContext(ctx).Model(&domain.Transaction{}).
		Where("id = ? AND version = ?", t.ID, expected).
		Updates(map[string]interface{}{
			"crop_type":             t.CropType,
			"quantity":              t.Quantity,
			"unit":                  t.Unit,
			"price_per_unit":        t.PricePerUnit,
			"total_amount":          t.TotalAmount,
			"quality_grade":         nullable(t.QualityGrade),
			"status":                t.Status,
			"completed_at":          nullable(t.CompletedAt),
			"delivery_address":      nullable(t.DeliveryAddress),
			"delivery_date":         nullable(t.DeliveryDate),
			"payment_method":        nullable(t.PaymentMethod),
			"transaction_reference": nullable(t.TransactionReference),
			"farmer_rating":         nullable(t.FarmerRating),
			"buyer_rating":          nullable(t.BuyerRating),
			"version":               t.Version,
			"updated_at":            t.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: transaction %s changed since version %d", domain.ErrConcurrentModification, t.ID, expected)
	}
	return nil
}

// nullable turns a nil pointer into an untyped nil so it is written as NULL.
func nullable[T any](p *T) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func (s *GormStore) Delete(ctx context.Context, id uuid.UUID) error {
	res := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&domain.Transaction{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: transaction %s", domain.ErrNotFound, id)
	}
	return nil
}

func (s *GormStore) scoped(ctx context.Context, f Filter) *gorm.DB {
	q := s.DB.WithContext(ctx).Model(&domain.Transaction{})
	if f.FarmerID != nil {
		q = q.Where("farmer_id = ?", *f.FarmerID)
	}
	if f.BuyerID != nil {
		q = q.Where("buyer_id = ?", *f.BuyerID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.CropType != nil {
		q = q.Where("crop_type = ?", *f.CropType)
	}
	if f.completionRange() {
		q = q.Where("completed_at IS NOT NULL")
	}
	if f.CompletedFrom != nil {
		q = q.Where("completed_at >= ?", *f.CompletedFrom)
	}
	if f.CompletedBefore != nil {
		q = q.Where("completed_at < ?", *f.CompletedBefore)
	}
	return q
}

func (s *GormStore) FindPage(ctx context.Context, f Filter, req pagination.Request) (pagination.Page[domain.Transaction], error) {
	var total int64
	if err := s.scoped(ctx, f).Count(&total).Error; err != nil {
		return pagination.Page[domain.Transaction]{}, err
	}
	order := "created_at DESC, id ASC"
	if f.completionRange() {
		order = "completed_at DESC, id ASC"
	}
	var rows []domain.Transaction
	if err := s.scoped(ctx, f).Order(order).Offset(req.Offset()).Limit(req.Size).Find(&rows).Error; err != nil {
		return pagination.Page[domain.Transaction]{}, err
	}
	return pagination.NewPage(rows, req, total), nil
}

func (s *GormStore) TopCompleted(ctx context.Context, limit int) ([]domain.Transaction, error) {
	var rows []domain.Transaction
	err := s.DB.WithContext(ctx).
		Where("status = ?", domain.StatusCompleted).
		Order("total_amount DESC, completed_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// CompletedAmounts returns the totals of COMPLETED rows matching f. Summing happens in Go
// so the result stays exact regardless of the driver's numeric mapping.
func (s *GormStore) CompletedAmounts(ctx context.Context, f Filter) ([]money.Amount, error) {
	completed := domain.StatusCompleted
	f.Status = &completed
	var rows []domain.Transaction
	if err := s.scoped(ctx, f).Select("id, total_amount").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]money.Amount, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.TotalAmount)
	}
	return out, nil
}

func (s *GormStore) RecordAudit(ctx context.Context, a *domain.TransactionAudit) error {
	return s.DB.WithContext(ctx).Create(a).Error
}
