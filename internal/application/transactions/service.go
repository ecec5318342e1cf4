package transactions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"farmtrade-backend/internal/application/directory"
	"farmtrade-backend/internal/domain"
	"farmtrade-backend/internal/infrastructure/lock"
	"farmtrade-backend/internal/pkg/money"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service runs the transaction lifecycle. Every change to an existing record goes through mutate.
type Service struct {
	Store     Store
	Directory directory.Resolver
	Locker    lock.Locker
	Now       func() time.Time
}

// NewService wires the GORM store and resolver. A nil locker falls back to an in-process one.
func NewService(db *gorm.DB, locker lock.Locker) *Service {
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	return &Service{
		Store:     &GormStore{DB: db},
		Directory: &directory.GormResolver{DB: db},
		Locker:    locker,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

type CreateInput struct {
	FarmerID             uuid.UUID
	BuyerID              uuid.UUID
	CropType             domain.CropType
	Quantity             money.Amount
	Unit                 string
	PricePerUnit         money.Amount
	QualityGrade         *string
	DeliveryAddress      *string
	DeliveryDate         *time.Time
	PaymentMethod        *string
	TransactionReference *string
}

// UpdateInput patches the descriptive fields of a trade. Nil fields are left untouched.
type UpdateInput struct {
	CropType             *domain.CropType
	Quantity             *money.Amount
	Unit                 *string
	PricePerUnit         *money.Amount
	QualityGrade         *string
	DeliveryAddress      *string
	DeliveryDate         *time.Time
	PaymentMethod        *string
	TransactionReference *string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Transaction, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}
	if _, err := s.resolve(ctx, domain.RoleFarmer, in.FarmerID); err != nil {
		return nil, err
	}
	if _, err := s.resolve(ctx, domain.RoleBuyer, in.BuyerID); err != nil {
		return nil, err
	}

	now := s.now()
	t := &domain.Transaction{
		FarmerID:             in.FarmerID,
		BuyerID:              in.BuyerID,
		CropType:             in.CropType,
		Quantity:             in.Quantity,
		Unit:                 strings.TrimSpace(in.Unit),
		PricePerUnit:         in.PricePerUnit,
		QualityGrade:         trimmed(in.QualityGrade),
		DeliveryAddress:      trimmed(in.DeliveryAddress),
		DeliveryDate:         utc(in.DeliveryDate),
		PaymentMethod:        trimmed(in.PaymentMethod),
		TransactionReference: trimmed(in.TransactionReference),
		Status:               domain.StatusInitiated,
		Version:              1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := t.RecomputeTotal(); err != nil {
		return nil, s.arithmetic(err, t.ID)
	}
	if err := s.Store.Create(ctx, t); err != nil {
		return nil, err
	}
	log.Info().Str("transaction_id", t.ID.String()).Str("farmer_id", t.FarmerID.String()).
		Str("buyer_id", t.BuyerID.String()).Str("total_amount", t.TotalAmount.String()).Msg("Transaction created")
	return t, nil
}

func (s *Service) resolve(ctx context.Context, role domain.ParticipantRole, id uuid.UUID) (directory.Party, error) {
	p, err := s.Directory.Resolve(ctx, role, id)
	if errors.Is(err, directory.ErrPartyNotFound) {
		return p, fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	}
	return p, err
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*domain.Transaction, error) {
	if err := validateUpdate(in); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(t *domain.Transaction) error {
		if t.Status.IsTerminal() {
			return fmt.Errorf("%w: cannot update a %s transaction", domain.ErrInvalidState, t.Status)
		}
		if in.CropType != nil {
			t.CropType = *in.CropType
		}
		if in.Unit != nil {
			t.Unit = strings.TrimSpace(*in.Unit)
		}
		if in.QualityGrade != nil {
			t.QualityGrade = trimmed(in.QualityGrade)
		}
		if in.DeliveryAddress != nil {
			t.DeliveryAddress = trimmed(in.DeliveryAddress)
		}
		if in.DeliveryDate != nil {
			t.DeliveryDate = utc(in.DeliveryDate)
		}
		if in.PaymentMethod != nil {
			t.PaymentMethod = trimmed(in.PaymentMethod)
		}
		if in.TransactionReference != nil {
			t.TransactionReference = trimmed(in.TransactionReference)
		}
		if in.Quantity == nil && in.PricePerUnit == nil {
			return nil
		}
		if in.Quantity != nil {
			t.Quantity = *in.Quantity
		}
		if in.PricePerUnit != nil {
			t.PricePerUnit = *in.PricePerUnit
		}
		if err := t.RecomputeTotal(); err != nil {
			return s.arithmetic(err, t.ID)
		}
		return nil
	})
}

// Transition applies one working edge of the lifecycle. Completion and cancellation
// have their own operations.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, to domain.TransactionStatus) (*domain.Transaction, error) {
	if !to.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, to)
	}
	return s.mutate(ctx, id, func(t *domain.Transaction) error {
		if err := checkEdge(t.Status, to); err != nil {
			return err
		}
		switch to {
		case domain.StatusCompleted:
			return fmt.Errorf("%w: use complete to move %s to %s", domain.ErrInvalidTransition, t.Status, to)
		case domain.StatusCancelled:
			return fmt.Errorf("%w: use cancel to move %s to %s", domain.ErrInvalidTransition, t.Status, to)
		}
		t.SetStatus(to, s.now())
		return nil
	})
}

func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	t, err := s.mutate(ctx, id, func(t *domain.Transaction) error {
		if err := checkEdge(t.Status, domain.StatusCompleted); err != nil {
			return err
		}
		t.SetStatus(domain.StatusCompleted, s.now())
		return nil
	})
	if err == nil {
		log.Info().Str("transaction_id", id.String()).Msg("Transaction completed")
	}
	return t, err
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return s.mutate(ctx, id, func(t *domain.Transaction) error {
		if err := checkEdge(t.Status, domain.StatusCancelled); err != nil {
			return err
		}
		t.SetStatus(domain.StatusCancelled, s.now())
		return nil
	})
}

// checkEdge reports a terminal source as both an invalid state and an invalid transition,
// so callers matching either kind see it.
func checkEdge(from, to domain.TransactionStatus) error {
	if from.IsTerminal() {
		return fmt.Errorf("%w: %w: transaction is %s, cannot move to %s", domain.ErrInvalidState, domain.ErrInvalidTransition, from, to)
	}
	if !domain.CanTransition(from, to) {
		return fmt.Errorf("%w: cannot move from %s to %s", domain.ErrInvalidTransition, from, to)
	}
	return nil
}

// Rate records ratings on a COMPLETED trade. Either rating may be nil; nil leaves it unchanged.
func (s *Service) Rate(ctx context.Context, id uuid.UUID, farmerRating, buyerRating *int) (*domain.Transaction, error) {
	if err := domain.ValidateRatings(farmerRating, buyerRating); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(t *domain.Transaction) error {
		return t.Rate(farmerRating, buyerRating)
	})
}

// Delete physically removes a transaction regardless of status and audits the removal.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actorUserID string) error {
	h, err := s.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer s.release(ctx, h, id)

	err = s.Store.WithTx(ctx, func(st Store) error {
		t, err := st.Load(ctx, id)
		if err != nil {
			return err
		}
		from := string(t.Status)
		audit, err := newAudit(id, domain.AuditHardDelete, actorUserID, &from, nil, map[string]interface{}{
			"farmerId":    t.FarmerID,
			"buyerId":     t.BuyerID,
			"totalAmount": t.TotalAmount.String(),
			"version":     t.Version,
		}, s.now())
		if err != nil {
			return err
		}
		if err := st.Delete(ctx, id); err != nil {
			return err
		}
		return st.RecordAudit(ctx, audit)
	})
	if err != nil {
		return err
	}
	log.Warn().Str("transaction_id", id.String()).Str("actor", actorUserID).Msg("Transaction hard-deleted")
	return nil
}

// AdminOverride moves a transaction to any status except INITIATED, bypassing the edge
// table. It is the only way out of DISPUTED other than cancellation. Leaving COMPLETED
// clears the ratings.
func (s *Service) AdminOverride(ctx context.Context, id uuid.UUID, to domain.TransactionStatus, actorUserID, reason string) (*domain.Transaction, error) {
	reason = strings.TrimSpace(reason)
	switch {
	case !to.IsValid():
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, to)
	case to == domain.StatusInitiated:
		return nil, fmt.Errorf("%w: a transaction cannot be overridden back to %s", domain.ErrValidation, to)
	case reason == "":
		return nil, fmt.Errorf("%w: reason is required", domain.ErrValidation)
	case actorUserID == "":
		return nil, fmt.Errorf("%w: actor is required", domain.ErrValidation)
	}

	var from domain.TransactionStatus
	t, err := s.mutateAudited(ctx, id, func(t *domain.Transaction) (*domain.TransactionAudit, error) {
		from = t.Status
		if from == to {
			return nil, fmt.Errorf("%w: transaction is already %s", domain.ErrInvalidTransition, to)
		}
		t.SetStatus(to, s.now())
		fromStr, toStr := string(from), string(to)
		return newAudit(id, domain.AuditAdminOverride, actorUserID, &fromStr, &toStr, map[string]interface{}{
			"reason": reason,
		}, s.now())
	})
	if err != nil {
		return nil, err
	}
	log.Warn().Str("transaction_id", id.String()).Str("actor", actorUserID).
		Str("from", string(from)).Str("to", string(to)).Str("reason", reason).Msg("Transaction status overridden")
	return t, nil
}

func (s *Service) mutate(ctx context.Context, id uuid.UUID, apply func(t *domain.Transaction) error) (*domain.Transaction, error) {
	return s.mutateAudited(ctx, id, func(t *domain.Transaction) (*domain.TransactionAudit, error) {
		return nil, apply(t)
	})
}

// mutateAudited serializes writers per id with the locker, then loads, applies and saves
// with a version compare-and-set inside one database transaction.
func (s *Service) mutateAudited(ctx context.Context, id uuid.UUID, apply func(t *domain.Transaction) (*domain.TransactionAudit, error)) (*domain.Transaction, error) {
	h, err := s.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, h, id)

	var out *domain.Transaction
	err = s.Store.WithTx(ctx, func(st Store) error {
		t, err := st.Load(ctx, id)
		if err != nil {
			return err
		}
		expected := t.Version
		audit, err := apply(t)
		if err != nil {
			return err
		}
		t.Version = expected + 1
		t.UpdatedAt = s.now()
		if err := st.SaveIfVersion(ctx, t, expected); err != nil {
			if errors.Is(err, domain.ErrConcurrentModification) {
				log.Debug().Str("transaction_id", id.String()).Int64("version", expected).Msg("Lost version race")
			}
			return err
		}
		if audit != nil {
			if err := st.RecordAudit(ctx, audit); err != nil {
				return err
			}
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) acquire(ctx context.Context, id uuid.UUID) (lock.Handle, error) {
	if s.Locker == nil {
		return nil, nil
	}
	h, ok, err := s.Locker.TryLock(ctx, lock.TransactionKey(id.String()))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: transaction %s is being modified by another request", domain.ErrConcurrentModification, id)
	}
	return h, nil
}

func (s *Service) release(ctx context.Context, h lock.Handle, id uuid.UUID) {
	if h == nil {
		return
	}
	if err := h.Unlock(ctx); err != nil {
		log.Warn().Err(err).Str("transaction_id", id.String()).Msg("Failed to release transaction lock")
	}
}

func (s *Service) arithmetic(err error, id uuid.UUID) error {
	log.Error().Err(err).Str("transaction_id", id.String()).Msg("Arithmetic failure computing total amount")
	return err
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

func utc(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := p.UTC()
	return &v
}
