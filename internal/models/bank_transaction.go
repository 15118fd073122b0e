package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BankTransaction is a line of a bank statement.
//
// A positive amount is incoming money, a negative amount is outgoing.
type BankTransaction struct {
	DefaultModel
	Amount          decimal.Decimal `json:"amount" gorm:"type:DECIMAL(20,8)"`
	TransactionDate time.Time       `json:"transactionDate"`
	SenderReceiver  string          `json:"senderReceiver"`
	Description     string          `json:"description"`
	Reference       string          `json:"reference"`
	IBAN            string          `json:"iban"`
	Currency        string          `json:"currency"`
	IsCategorized   bool            `json:"isCategorized"`
	Category        string          `json:"category"`
	UnitID          *uuid.UUID      `json:"unitId"`
	ContractID      *uuid.UUID      `json:"contractId"`
	Contract        *Contract       `json:"-"`
	ImportHash      *string         `json:"importHash" gorm:"uniqueIndex:bank_transaction_import_hash"`
}

func (t BankTransaction) Self() string {
	return "Bank Transaction"
}

func (t *BankTransaction) AfterFind(tx *gorm.DB) (err error) {
	err = t.DefaultModel.AfterFind(tx)
	if err != nil {
		return err
	}

	t.TransactionDate = t.TransactionDate.In(time.UTC)
	return nil
}

// BeforeSave sets the timezone for the date to UTC.
func (t *BankTransaction) BeforeSave(_ *gorm.DB) error {
	if t.TransactionDate.IsZero() {
		t.TransactionDate = time.Now().In(time.UTC)
	}
	t.TransactionDate = utcDate(t.TransactionDate)

	if t.Currency == "" {
		t.Currency = DefaultCurrency
	}

	if t.ImportHash != nil && *t.ImportHash == "" {
		t.ImportHash = nil
	}

	return nil
}

// AbsAmount is the amount without its sign. No link may exceed it.
func (t BankTransaction) AbsAmount() decimal.Decimal {
	return t.Amount.Abs()
}

// LinkCount returns the number of financial items the transaction is linked to.
func (t BankTransaction) LinkCount(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&FinancialItemLink{}).Where(&FinancialItemLink{TransactionID: t.ID}).Count(&count).Error
	return count, err
}
