package transactions

import (
	"context"
	"fmt"
	"time"

	"farmtrade-backend/internal/domain"
	"farmtrade-backend/internal/pkg/money"
	"farmtrade-backend/internal/pkg/pagination"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Ranking limits for TopByTotalAmount.
const (
	DefaultTopLimit = 10
	MaxTopLimit     = 100
)

// View is a transaction with the display names of its participants and its total
// in two-digit currency form.
type View struct {
	domain.Transaction
	FarmerName           string `json:"farmerName"`
	BuyerName            string `json:"buyerName"`
	TotalAmountFormatted string `json:"totalAmountFormatted"`
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (View, error) {
	t, err := s.Store.Load(ctx, id)
	if err != nil {
		return View{}, err
	}
	return s.View(ctx, t), nil
}

// View attaches participant names to one transaction.
func (s *Service) View(ctx context.Context, t *domain.Transaction) View {
	views := s.views(ctx, []domain.Transaction{*t})
	return views[0]
}

// ListAll is the administrative listing; f may carry status and crop filters.
func (s *Service) ListAll(ctx context.Context, f Filter, req pagination.Request) (pagination.Page[View], error) {
	return s.page(ctx, f, req)
}

func (s *Service) ListByParticipant(ctx context.Context, role domain.ParticipantRole, partyID uuid.UUID, status *domain.TransactionStatus, req pagination.Request) (pagination.Page[View], error) {
	f := Filter{Status: status}
	switch role {
	case domain.RoleFarmer:
		f.FarmerID = &partyID
	case domain.RoleBuyer:
		f.BuyerID = &partyID
	default:
		return pagination.Page[View]{}, fmt.Errorf("%w: unknown participant role %q", domain.ErrValidation, role)
	}
	return s.page(ctx, f, req)
}

func (s *Service) ListByCropType(ctx context.Context, crop domain.CropType, req pagination.Request) (pagination.Page[View], error) {
	if !crop.IsValid() {
		return pagination.Page[View]{}, fmt.Errorf("%w: unknown crop type %q", domain.ErrValidation, crop)
	}
	return s.page(ctx, Filter{CropType: &crop}, req)
}

// ListByCompletionRange returns trades completed on any day from start to end inclusive (UTC).
// Records without completedAt never match.
func (s *Service) ListByCompletionRange(ctx context.Context, start, end time.Time, req pagination.Request) (pagination.Page[View], error) {
	from := startOfDay(start)
	before := startOfDay(end).AddDate(0, 0, 1)
	if !from.Before(before) {
		return pagination.Page[View]{}, fmt.Errorf("%w: startDate must not be after endDate", domain.ErrValidation)
	}
	return s.page(ctx, Filter{CompletedFrom: &from, CompletedBefore: &before}, req)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TopByTotalAmount ranks COMPLETED trades by total, most recent completion first on ties.
func (s *Service) TopByTotalAmount(ctx context.Context, limit int) ([]View, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	if limit > MaxTopLimit {
		limit = MaxTopLimit
	}
	rows, err := s.Store.TopCompleted(ctx, limit)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, rows), nil
}

// SumTotalAmount adds up the totals of a participant's COMPLETED trades. No trades is zero.
func (s *Service) SumTotalAmount(ctx context.Context, partyID uuid.UUID, role domain.ParticipantRole) (money.Amount, error) {
	var f Filter
	switch role {
	case domain.RoleFarmer:
		f.FarmerID = &partyID
	case domain.RoleBuyer:
		f.BuyerID = &partyID
	default:
		return money.Zero, fmt.Errorf("%w: unknown participant role %q", domain.ErrValidation, role)
	}
	amounts, err := s.Store.CompletedAmounts(ctx, f)
	if err != nil {
		return money.Zero, err
	}
	sum := money.Zero
	for _, a := range amounts {
		if sum, err = sum.Add(a); err != nil {
			log.Error().Err(err).Str("party_id", partyID.String()).Msg("Arithmetic failure summing total amount")
			return money.Zero, err
		}
	}
	return sum, nil
}

func (s *Service) page(ctx context.Context, f Filter, req pagination.Request) (pagination.Page[View], error) {
	p, err := s.Store.FindPage(ctx, f, req)
	if err != nil {
		return pagination.Page[View]{}, err
	}
	return pagination.NewPage(s.views(ctx, p.Items), req, p.TotalItems), nil
}

// views resolves names in two batched lookups. A directory failure degrades to empty names.
func (s *Service) views(ctx context.Context, rows []domain.Transaction) []View {
	out := make([]View, len(rows))
	if len(rows) == 0 {
		return out
	}
	farmerIDs := make([]uuid.UUID, 0, len(rows))
	buyerIDs := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		farmerIDs = append(farmerIDs, r.FarmerID)
		buyerIDs = append(buyerIDs, r.BuyerID)
	}
	farmers := s.names(ctx, domain.RoleFarmer, farmerIDs)
	buyers := s.names(ctx, domain.RoleBuyer, buyerIDs)
	for i, r := range rows {
		out[i] = View{
			Transaction:          r,
			FarmerName:           farmers[r.FarmerID],
			BuyerName:            buyers[r.BuyerID],
			TotalAmountFormatted: r.TotalAmount.Currency(),
		}
	}
	return out
}

func (s *Service) names(ctx context.Context, role domain.ParticipantRole, ids []uuid.UUID) map[uuid.UUID]string {
	if s.Directory == nil {
		return map[uuid.UUID]string{}
	}
	names, err := s.Directory.Names(ctx, role, ids)
	if err != nil {
		log.Warn().Err(err).Str("role", string(role)).Msg("Failed to resolve participant names")
		return map[uuid.UUID]string{}
	}
	return names
}
