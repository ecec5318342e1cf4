package transactions

import (
	"context"

	"github.com/google/uuid"
)

// IsParticipant reports whether actor is the farmer or the buyer of the transaction.
// An unknown transaction yields domain.ErrNotFound.
func (s *Service) IsParticipant(ctx context.Context, txID, actor uuid.UUID) (bool, error) {
	t, err := s.Store.Load(ctx, txID)
	if err != nil {
		return false, err
	}
	return t.IsParticipant(actor), nil
}
