package transactions

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"farmtrade-backend/internal/domain"

	"github.com/google/uuid"
)

func validateCreate(in CreateInput) error {
	if in.FarmerID == uuid.Nil {
		return fmt.Errorf("%w: farmerId is required", domain.ErrValidation)
	}
	if in.BuyerID == uuid.Nil {
		return fmt.Errorf("%w: buyerId is required", domain.ErrValidation)
	}
	if in.FarmerID == in.BuyerID {
		return fmt.Errorf("%w: farmer and buyer must be different parties", domain.ErrValidation)
	}
	if !in.CropType.IsValid() {
		return fmt.Errorf("%w: unknown crop type %q", domain.ErrValidation, in.CropType)
	}
	if err := domain.CheckPositiveAmount("quantity", in.Quantity); err != nil {
		return err
	}
	if err := domain.CheckPositiveAmount("pricePerUnit", in.PricePerUnit); err != nil {
		return err
	}
	if err := checkUnit(in.Unit); err != nil {
		return err
	}
	return checkDescriptive(in.QualityGrade, in.DeliveryAddress, in.PaymentMethod, in.TransactionReference)
}

func validateUpdate(in UpdateInput) error {
	if in.CropType != nil && !in.CropType.IsValid() {
		return fmt.Errorf("%w: unknown crop type %q", domain.ErrValidation, *in.CropType)
	}
	if in.Quantity != nil {
		if err := domain.CheckPositiveAmount("quantity", *in.Quantity); err != nil {
			return err
		}
	}
	if in.PricePerUnit != nil {
		if err := domain.CheckPositiveAmount("pricePerUnit", *in.PricePerUnit); err != nil {
			return err
		}
	}
	if in.Unit != nil {
		if err := checkUnit(*in.Unit); err != nil {
			return err
		}
	}
	return checkDescriptive(in.QualityGrade, in.DeliveryAddress, in.PaymentMethod, in.TransactionReference)
}

func checkUnit(unit string) error {
	unit = strings.TrimSpace(unit)
	if unit == "" {
		return fmt.Errorf("%w: unit is required", domain.ErrValidation)
	}
	return checkLength("unit", &unit, domain.MaxUnitLength)
}

func checkDescriptive(grade, address, method, ref *string) error {
	checks := []struct {
		field string
		value *string
		max   int
	}{
		{"qualityGrade", grade, domain.MaxQualityGradeLength},
		{"deliveryAddress", address, domain.MaxDeliveryAddressLen},
		{"paymentMethod", method, domain.MaxPaymentMethodLength},
		{"transactionReference", ref, domain.MaxTransactionRefLength},
	}
	for _, c := range checks {
		if err := checkLength(c.field, c.value, c.max); err != nil {
			return err
		}
	}
	return nil
}

func checkLength(field string, v *string, max int) error {
	if v != nil && utf8.RuneCountInString(strings.TrimSpace(*v)) > max {
		return fmt.Errorf("%w: %s must be at most %d characters", domain.ErrValidation, field, max)
	}
	return nil
}
