package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/immoledger/backend/internal/types"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"gorm.io/gorm"
)

type ItemType string

const (
	Receivable ItemType = "receivable"
	Payable    ItemType = "payable"
)

type ItemStatus string

const (
	StatusPending ItemStatus = "pending"
	StatusPartial ItemStatus = "partial"
	StatusPaid    ItemStatus = "paid"
	StatusOverdue ItemStatus = "overdue"
	StatusSettled ItemStatus = "settled"
)

const (
	CategoryRent    = "rent"
	CategoryDeposit = "deposit"
)

// FinancialItem is an expected receivable or payable.
//
// Amount is the sum of all links to bank transactions and is never set directly.
// Status is derived from amount and expected amount unless the item has been
// settled manually. Overdue is never persisted, see EffectiveStatus.
type FinancialItem struct {
	DefaultModel
	Type                    ItemType        `json:"type"`
	Category                string          `json:"category" gorm:"uniqueIndex:financial_item_natural_key,where:is_automatic_from_contract = true AND deleted_at IS NULL"`
	RelatedToContractID     *uuid.UUID      `json:"relatedToContractId" gorm:"uniqueIndex:financial_item_natural_key,where:is_automatic_from_contract = true AND deleted_at IS NULL"`
	Contract                *Contract       `json:"-" gorm:"foreignKey:RelatedToContractID"`
	RelatedToTenantID       *uuid.UUID      `json:"relatedToTenantId"`
	RelatedToUnitID         *uuid.UUID      `json:"relatedToUnitId"`
	PaymentMonth            types.Month     `json:"paymentMonth" gorm:"uniqueIndex:financial_item_natural_key,where:is_automatic_from_contract = true AND deleted_at IS NULL"`
	DueDate                 time.Time       `json:"dueDate"`
	ExpectedAmount          decimal.Decimal `json:"expectedAmount" gorm:"type:DECIMAL(20,8)"`
	Amount                  decimal.Decimal `json:"amount" gorm:"type:DECIMAL(20,8)"`
	Status                  ItemStatus      `json:"status"`
	Settled                 bool            `json:"settled"`
	IsAutomaticFromContract bool            `json:"isAutomaticFromContract"`
	Currency                string          `json:"currency"`
	Description             string          `json:"description"`
}

func (i FinancialItem) Self() string {
	return "Financial Item"
}

func (i *FinancialItem) AfterFind(tx *gorm.DB) (err error) {
	err = i.DefaultModel.AfterFind(tx)
	if err != nil {
		return err
	}

	i.DueDate = i.DueDate.In(time.UTC)
	return nil
}

// BeforeSave validates the item and derives its status.
func (i *FinancialItem) BeforeSave(_ *gorm.DB) error {
	if i.Type == "" {
		i.Type = Receivable
	}

	if i.Type != Receivable && i.Type != Payable {
		return ErrFinancialItemType
	}

	if i.PaymentMonth.IsZero() {
		return ErrFinancialItemPaymentMonth
	}

	if i.ExpectedAmount.IsNegative() || i.Amount.IsNegative() {
		return ErrNegativeAmount
	}

	if i.DueDate.IsZero() {
		i.DueDate = i.PaymentMonth.Start()
	}
	i.DueDate = utcDate(i.DueDate)

	if i.Currency == "" {
		i.Currency = DefaultCurrency
	}

	i.Status = i.DeriveStatus()
	return nil
}

// DeriveStatus returns the status of the item.
//
// A manually settled item is always settled. Otherwise, the item is paid when
// the amount reaches the expected amount within the tolerance of the currency,
// partial when anything has been linked and pending when nothing has.
func (i FinancialItem) DeriveStatus() ItemStatus {
	if i.Settled {
		return StatusSettled
	}

	return DeriveStatus(i.Amount, i.ExpectedAmount, i.Currency)
}

// DeriveStatus derives the amount based status for an item.
//
// Nothing linked is always pending, even when nothing is expected.
func DeriveStatus(amount, expected decimal.Decimal, currencyCode string) ItemStatus {
	if !amount.IsPositive() {
		return StatusPending
	}

	if amount.GreaterThanOrEqual(expected.Sub(Tolerance(currencyCode))) {
		return StatusPaid
	}

	return StatusPartial
}

// EffectiveStatus returns the status as shown to users at the time passed.
//
// Items that are pending or partially paid after their due date are overdue.
func (i FinancialItem) EffectiveStatus(now time.Time) ItemStatus {
	status := i.DeriveStatus()
	if (status == StatusPending || status == StatusPartial) && utcDate(i.DueDate).Before(utcDate(now)) {
		return StatusOverdue
	}

	return status
}

// Tolerance is the amount by which a payment may fall short of the expected
// amount and still count as paid. It is one minor unit of the currency.
func Tolerance(currencyCode string) decimal.Decimal {
	if currencyCode == "" {
		currencyCode = DefaultCurrency
	}

	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return decimal.New(1, -2)
	}

	scale, increment := currency.Standard.Rounding(unit)
	if increment < 1 {
		increment = 1
	}

	return decimal.New(int64(increment), -int32(scale))
}

// MinorUnitScale returns the number of decimal places of the currency.
func MinorUnitScale(currencyCode string) int32 {
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return 2
	}

	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale)
}

// Links returns all links of bank transactions to this item.
func (i FinancialItem) Links(db *gorm.DB) ([]FinancialItemLink, error) {
	var links []FinancialItemLink
	err := db.Where(&FinancialItemLink{FinancialItemID: i.ID}).Order("created_at ASC").Find(&links).Error
	if err != nil {
		return nil, err
	}

	return links, nil
}
