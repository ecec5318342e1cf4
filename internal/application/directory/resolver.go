package directory

import (
	"context"
	"errors"
	"fmt"

	"farmtrade-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrPartyNotFound is returned when no farmer or buyer profile has the given id.
var ErrPartyNotFound = errors.New("Party not found")

// Party is the directory view of a farmer or buyer.
type Party struct {
	ID          uuid.UUID
	Role        domain.ParticipantRole
	DisplayName string
}

// Resolver looks up farmer and buyer profiles owned by the profile service.
type Resolver interface {
	Resolve(ctx context.Context, role domain.ParticipantRole, id uuid.UUID) (Party, error)
	Names(ctx context.Context, role domain.ParticipantRole, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

// GormResolver reads the Farmers and Buyers tables.
type GormResolver struct {
	DB *gorm.DB
}

func (r *GormResolver) Resolve(ctx context.Context, role domain.ParticipantRole, id uuid.UUID) (Party, error) {
	db := r.DB.WithContext(ctx)
	switch role {
	case domain.RoleFarmer:
		var f domain.Farmer
		if err := db.Where("farmer_id = ?", id).First(&f).Error; err != nil {
			return Party{}, notFound(err, role, id)
		}
		return Party{ID: f.FarmerID, Role: role, DisplayName: f.FullName}, nil
	case domain.RoleBuyer:
		var b domain.Buyer
		if err := db.Where("buyer_id = ?", id).First(&b).Error; err != nil {
			return Party{}, notFound(err, role, id)
		}
		return Party{ID: b.BuyerID, Role: role, DisplayName: b.DisplayName()}, nil
	}
	return Party{}, fmt.Errorf("unknown participant role %q", role)
}

// Names batches display-name lookups for list responses. Unknown ids are absent from the map.
func (r *GormResolver) Names(ctx context.Context, role domain.ParticipantRole, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	db := r.DB.WithContext(ctx)
	switch role {
	case domain.RoleFarmer:
		var farmers []domain.Farmer
		if err := db.Where("farmer_id IN ?", ids).Select("farmer_id, full_name").Find(&farmers).Error; err != nil {
			return nil, err
		}
		for _, f := range farmers {
			out[f.FarmerID] = f.FullName
		}
	case domain.RoleBuyer:
		var buyers []domain.Buyer
		if err := db.Where("buyer_id IN ?", ids).Select("buyer_id, full_name, business_name").Find(&buyers).Error; err != nil {
			return nil, err
		}
		for _, b := range buyers {
			out[b.BuyerID] = b.DisplayName()
		}
	default:
		return nil, fmt.Errorf("unknown participant role %q", role)
	}
	return out, nil
}

func notFound(err error, role domain.ParticipantRole, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %s", ErrPartyNotFound, role, id)
	}
	return err
}
