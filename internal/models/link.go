package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FinancialItemLink states that a part of a bank transaction counts towards a
// financial item. Links are always deleted permanently.
type FinancialItemLink struct {
	DefaultModel
	FinancialItemID uuid.UUID       `json:"financialItemId" gorm:"uniqueIndex:financial_item_link_pair"`
	FinancialItem   FinancialItem   `json:"-"`
	TransactionID   uuid.UUID       `json:"transactionId" gorm:"uniqueIndex:financial_item_link_pair"`
	Transaction     BankTransaction `json:"-"`
	LinkedAmount    decimal.Decimal `json:"linkedAmount" gorm:"type:DECIMAL(20,8)"`
}

func (l FinancialItemLink) Self() string {
	return "Financial Item Link"
}

func (l *FinancialItemLink) BeforeSave(_ *gorm.DB) error {
	if !l.LinkedAmount.IsPositive() {
		return ErrLinkAmountNotPositive
	}

	return nil
}
