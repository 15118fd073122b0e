package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RentChange overrides the rent components of a contract from its effective date on.
//
// Utilities and heating are optional. When they are not set, the values of the
// contract apply.
type RentChange struct {
	DefaultModel
	ContractID    uuid.UUID           `json:"contractId"`
	Contract      Contract            `json:"-"`
	EffectiveDate time.Time           `json:"effectiveDate"`
	BaseRent      decimal.Decimal     `json:"baseRent" gorm:"type:DECIMAL(20,8)"`
	Utilities     decimal.NullDecimal `json:"utilities" gorm:"type:DECIMAL(20,8)"`
	Heating       decimal.NullDecimal `json:"heating" gorm:"type:DECIMAL(20,8)"`
	Note          string              `json:"note"`
}

func (r RentChange) Self() string {
	return "Rent Change"
}

func (r *RentChange) AfterFind(tx *gorm.DB) (err error) {
	err = r.DefaultModel.AfterFind(tx)
	if err != nil {
		return err
	}

	r.EffectiveDate = r.EffectiveDate.In(time.UTC)
	return nil
}

func (r *RentChange) BeforeSave(_ *gorm.DB) error {
	if r.EffectiveDate.IsZero() {
		return ErrRentChangeEffectiveDate
	}
	r.EffectiveDate = utcDate(r.EffectiveDate)

	if r.BaseRent.IsNegative() || (r.Utilities.Valid && r.Utilities.Decimal.IsNegative()) || (r.Heating.Valid && r.Heating.Decimal.IsNegative()) {
		return ErrNegativeAmount
	}

	return nil
}

// Total returns the total rent for the contract with this change applied.
func (r RentChange) Total(contract Contract) decimal.Decimal {
	utilities := contract.Utilities
	if r.Utilities.Valid {
		utilities = r.Utilities.Decimal
	}

	heating := contract.Heating
	if r.Heating.Valid {
		heating = r.Heating.Decimal
	}

	return r.BaseRent.Add(utilities).Add(heating)
}
