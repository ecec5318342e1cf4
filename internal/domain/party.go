package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Farmer is the read model of a farmer profile. The profile service owns the table.
type Farmer struct {
	FarmerID  uuid.UUID `gorm:"column:farmer_id;type:uuid;primaryKey" json:"farmer_id"`
	FullName  string    `gorm:"column:full_name;not null" json:"full_name"`
	FarmName  *string   `gorm:"column:farm_name" json:"farm_name"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Farmer) TableName() string {
	return "Farmers"
}

func (f *Farmer) BeforeCreate(tx *gorm.DB) error {
	if f.FarmerID == uuid.Nil {
		f.FarmerID = uuid.New()
	}
	return nil
}

// Buyer is the read model of a buyer profile.
type Buyer struct {
	BuyerID      uuid.UUID `gorm:"column:buyer_id;type:uuid;primaryKey" json:"buyer_id"`
	FullName     string    `gorm:"column:full_name;not null" json:"full_name"`
	BusinessName *string   `gorm:"column:business_name" json:"business_name"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Buyer) TableName() string {
	return "Buyers"
}

func (b *Buyer) BeforeCreate(tx *gorm.DB) error {
	if b.BuyerID == uuid.Nil {
		b.BuyerID = uuid.New()
	}
	return nil
}

// DisplayName prefers the business name when one is registered.
func (b Buyer) DisplayName() string {
	if b.BusinessName != nil && *b.BusinessName != "" {
		return *b.BusinessName
	}
	return b.FullName
}
