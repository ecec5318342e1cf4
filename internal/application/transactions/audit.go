package transactions

import (
	"encoding/json"
	"time"

	"farmtrade-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

func newAudit(txID uuid.UUID, action, actor string, from, to *string, details map[string]interface{}, at time.Time) (*domain.TransactionAudit, error) {
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, err
	}
	return &domain.TransactionAudit{
		TransactionID: txID,
		Action:        action,
		ActorUserID:   actor,
		FromStatus:    from,
		ToStatus:      to,
		Details:       datatypes.JSON(raw),
		CreatedAt:     at,
	}, nil
}
