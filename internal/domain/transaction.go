package domain

import (
	"fmt"
	"time"

	"farmtrade-backend/internal/pkg/money"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Input limits shared by the service and the HTTP layer.
const (
	MaxInputScale           = 3
	MaxUnitLength           = 20
	MaxQualityGradeLength   = 20
	MaxDeliveryAddressLen   = 500
	MaxPaymentMethodLength  = 50
	MaxTransactionRefLength = 100
	MinRating               = 1
	MaxRating               = 5
)

// ParticipantRole identifies which side of a trade a party is on.
type ParticipantRole string

const (
	RoleFarmer ParticipantRole = "FARMER"
	RoleBuyer  ParticipantRole = "BUYER"
)

// Transaction is a trade of one crop lot between one farmer and one buyer.
type Transaction struct {
	ID                   uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	FarmerID             uuid.UUID         `gorm:"column:farmer_id;type:uuid;not null;index" json:"farmerId"`
	BuyerID              uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null;index" json:"buyerId"`
	CropType             CropType          `gorm:"column:crop_type;type:varchar(20);not null;index" json:"cropType"`
	Quantity             money.Amount      `gorm:"column:quantity;type:numeric(24,6);not null" json:"quantity"`
	Unit                 string            `gorm:"column:unit;type:varchar(20);not null" json:"unit"`
	PricePerUnit         money.Amount      `gorm:"column:price_per_unit;type:numeric(24,6);not null" json:"pricePerUnit"`
	TotalAmount          money.Amount      `gorm:"column:total_amount;type:numeric(24,6);not null;index" json:"totalAmount"`
	QualityGrade         *string           `gorm:"column:quality_grade;type:varchar(20)" json:"qualityGrade"`
	Status               TransactionStatus `gorm:"column:status;type:varchar(20);not null;index" json:"status"`
	CompletedAt          *time.Time        `gorm:"column:completed_at;index" json:"completedAt"`
	DeliveryAddress      *string           `gorm:"column:delivery_address;type:varchar(500)" json:"deliveryAddress"`
	DeliveryDate         *time.Time        `gorm:"column:delivery_date" json:"deliveryDate"`
	PaymentMethod        *string           `gorm:"column:payment_method;type:varchar(50)" json:"paymentMethod"`
	TransactionReference *string           `gorm:"column:transaction_reference;type:varchar(100)" json:"transactionReference"`
	FarmerRating         *int              `gorm:"column:farmer_rating" json:"farmerRating"`
	BuyerRating          *int              `gorm:"column:buyer_rating" json:"buyerRating"`
	Version              int64             `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt            time.Time         `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt            time.Time         `gorm:"column:updated_at" json:"updatedAt"`
}

func (Transaction) TableName() string {
	return "Transactions"
}

// BeforeCreate never inserts a zero UUID primary key.
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// RecomputeTotal derives TotalAmount from Quantity and PricePerUnit.
func (t *Transaction) RecomputeTotal() error {
	total, err := t.Quantity.Mul(t.PricePerUnit)
	if err != nil {
		return err
	}
	t.TotalAmount = total
	return nil
}

// SetStatus moves to status and keeps CompletedAt set exactly while COMPLETED.
// Ratings only exist on a COMPLETED trade, so leaving COMPLETED clears them.
// Edge legality is checked by the caller.
func (t *Transaction) SetStatus(status TransactionStatus, now time.Time) {
	t.Status = status
	if status == StatusCompleted {
		if t.CompletedAt == nil {
			ts := now
			t.CompletedAt = &ts
		}
		return
	}
	t.CompletedAt = nil
	t.FarmerRating = nil
	t.BuyerRating = nil
}

// Rate records the buyer's rating of the farmer and/or the farmer's rating of the buyer.
// Nothing is changed unless every supplied rating is valid and the trade is COMPLETED.
func (t *Transaction) Rate(farmerRating, buyerRating *int) error {
	if err := ValidateRatings(farmerRating, buyerRating); err != nil {
		return err
	}
	if t.Status != StatusCompleted {
		return fmt.Errorf("%w: ratings are only accepted once the transaction is %s (current: %s)", ErrInvalidState, StatusCompleted, t.Status)
	}
	if farmerRating != nil {
		v := *farmerRating
		t.FarmerRating = &v
	}
	if buyerRating != nil {
		v := *buyerRating
		t.BuyerRating = &v
	}
	return nil
}

// ValidateRatings checks a rating pair without looking at any transaction.
func ValidateRatings(farmerRating, buyerRating *int) error {
	if farmerRating == nil && buyerRating == nil {
		return fmt.Errorf("%w: at least one of farmerRating or buyerRating is required", ErrValidation)
	}
	if err := checkRating("farmerRating", farmerRating); err != nil {
		return err
	}
	return checkRating("buyerRating", buyerRating)
}

func checkRating(field string, r *int) error {
	if r == nil {
		return nil
	}
	if *r < MinRating || *r > MaxRating {
		return fmt.Errorf("%w: %s must be between %d and %d", ErrValidation, field, MinRating, MaxRating)
	}
	return nil
}

// IsParticipant reports whether party is the farmer or the buyer of the trade.
func (t *Transaction) IsParticipant(party uuid.UUID) bool {
	return party != uuid.Nil && (t.FarmerID == party || t.BuyerID == party)
}

// PartyID returns the id of the participant holding role.
func (t *Transaction) PartyID(role ParticipantRole) uuid.UUID {
	if role == RoleBuyer {
		return t.BuyerID
	}
	return t.FarmerID
}

// CheckPositiveAmount validates a quantity or unit price supplied by a caller.
func CheckPositiveAmount(field string, a money.Amount) error {
	if !a.IsPositive() {
		return fmt.Errorf("%w: %s must be positive", ErrValidation, field)
	}
	if a.FractionDigits() > MaxInputScale {
		return fmt.Errorf("%w: %s accepts at most %d decimal places", ErrValidation, field, MaxInputScale)
	}
	return nil
}
