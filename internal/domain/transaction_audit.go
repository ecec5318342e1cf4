package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Audit actions recorded for operations that bypass the lifecycle.
const (
	AuditAdminOverride = "ADMIN_OVERRIDE"
	AuditHardDelete    = "HARD_DELETE"
)

// TransactionAudit records an administrative action on a transaction.
type TransactionAudit struct {
	AuditID       uuid.UUID      `gorm:"column:audit_id;type:uuid;primaryKey" json:"audit_id"`
	TransactionID uuid.UUID      `gorm:"column:transaction_id;type:uuid;not null;index" json:"transaction_id"`
	Action        string         `gorm:"column:action;type:varchar(30);not null" json:"action"`
	ActorUserID   string         `gorm:"column:actor_user_id;not null" json:"actor_user_id"`
	FromStatus    *string        `gorm:"column:from_status;type:varchar(20)" json:"from_status"`
	ToStatus      *string        `gorm:"column:to_status;type:varchar(20)" json:"to_status"`
	Details       datatypes.JSON `gorm:"column:details;type:jsonb;not null" json:"details"`
	CreatedAt     time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (TransactionAudit) TableName() string {
	return "TransactionAudits"
}

func (a *TransactionAudit) BeforeCreate(tx *gorm.DB) error {
	if a.AuditID == uuid.Nil {
		a.AuditID = uuid.New()
	}
	return nil
}
