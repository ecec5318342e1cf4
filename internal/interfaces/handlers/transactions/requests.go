package transactions

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	txsvc "farmtrade-backend/internal/application/transactions"
	"farmtrade-backend/internal/domain"
	"farmtrade-backend/internal/pkg/money"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type createRequest struct {
	FarmerID             string        `json:"farmerId" validate:"required,uuid"`
	BuyerID              string        `json:"buyerId" validate:"required,uuid,nefield=FarmerID"`
	CropType             string        `json:"cropType" validate:"required"`
	Quantity             *money.Amount `json:"quantity" validate:"required"`
	Unit                 string        `json:"unit" validate:"required,max=20"`
	PricePerUnit         *money.Amount `json:"pricePerUnit" validate:"required"`
	QualityGrade         *string       `json:"qualityGrade" validate:"omitempty,max=20"`
	DeliveryAddress      *string       `json:"deliveryAddress" validate:"omitempty,max=500"`
	DeliveryDate         *time.Time    `json:"deliveryDate"`
	PaymentMethod        *string       `json:"paymentMethod" validate:"omitempty,max=50"`
	TransactionReference *string       `json:"transactionReference" validate:"omitempty,max=100"`
}

func (r createRequest) toInput() (txsvc.CreateInput, error) {
	crop, ok := domain.ParseCropType(r.CropType)
	if !ok {
		return txsvc.CreateInput{}, fmt.Errorf("%w: unknown crop type %q", domain.ErrValidation, r.CropType)
	}
	return txsvc.CreateInput{
		FarmerID:             uuid.MustParse(r.FarmerID),
		BuyerID:              uuid.MustParse(r.BuyerID),
		CropType:             crop,
		Quantity:             *r.Quantity,
		Unit:                 r.Unit,
		PricePerUnit:         *r.PricePerUnit,
		QualityGrade:         r.QualityGrade,
		DeliveryAddress:      r.DeliveryAddress,
		DeliveryDate:         r.DeliveryDate,
		PaymentMethod:        r.PaymentMethod,
		TransactionReference: r.TransactionReference,
	}, nil
}

type updateRequest struct {
	CropType             *string       `json:"cropType"`
	Quantity             *money.Amount `json:"quantity"`
	Unit                 *string       `json:"unit" validate:"omitempty,max=20"`
	PricePerUnit         *money.Amount `json:"pricePerUnit"`
	QualityGrade         *string       `json:"qualityGrade" validate:"omitempty,max=20"`
	DeliveryAddress      *string       `json:"deliveryAddress" validate:"omitempty,max=500"`
	DeliveryDate         *time.Time    `json:"deliveryDate"`
	PaymentMethod        *string       `json:"paymentMethod" validate:"omitempty,max=50"`
	TransactionReference *string       `json:"transactionReference" validate:"omitempty,max=100"`
}

func (r updateRequest) toInput() (txsvc.UpdateInput, error) {
	in := txsvc.UpdateInput{
		Quantity:             r.Quantity,
		Unit:                 r.Unit,
		PricePerUnit:         r.PricePerUnit,
		QualityGrade:         r.QualityGrade,
		DeliveryAddress:      r.DeliveryAddress,
		DeliveryDate:         r.DeliveryDate,
		PaymentMethod:        r.PaymentMethod,
		TransactionReference: r.TransactionReference,
	}
	if r.CropType != nil {
		crop, ok := domain.ParseCropType(*r.CropType)
		if !ok {
			return txsvc.UpdateInput{}, fmt.Errorf("%w: unknown crop type %q", domain.ErrValidation, *r.CropType)
		}
		in.CropType = &crop
	}
	return in, nil
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

type overrideRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason" validate:"required,max=500"`
}

type rateRequest struct {
	FarmerRating *int `json:"farmerRating"`
	BuyerRating  *int `json:"buyerRating"`
}

// parseBody decodes and validates a JSON body into dst.
func parseBody(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrValidation)
	}
	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(parts, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "uuid":
		return field + " must be a UUID"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "nefield":
		return fmt.Sprintf("%s must differ from %s", field, lowerFirst(fe.Param()))
	}
	return field + " is invalid"
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	// Struct field names map to the camelCase JSON names used by clients.
	if strings.HasSuffix(s, "ID") {
		s = strings.TrimSuffix(s, "ID") + "Id"
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s must be a UUID", domain.ErrValidation, name)
	}
	return id, nil
}

func optionalStatus(raw string) (*domain.TransactionStatus, error) {
	if raw == "" {
		return nil, nil
	}
	st, ok := domain.ParseStatus(raw)
	if !ok {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, raw)
	}
	return &st, nil
}

func optionalCrop(raw string) (*domain.CropType, error) {
	if raw == "" {
		return nil, nil
	}
	crop, ok := domain.ParseCropType(raw)
	if !ok {
		return nil, fmt.Errorf("%w: unknown crop type %q", domain.ErrValidation, raw)
	}
	return &crop, nil
}

// ratingQuery reads a rating from the query string; absent means nil.
func ratingQuery(c *fiber.Ctx, name string) (*int, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", domain.ErrValidation, name)
	}
	return &v, nil
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"}

func parseDate(name, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required", domain.ErrValidation, name)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %s must be an ISO date (YYYY-MM-DD)", domain.ErrValidation, name)
}
