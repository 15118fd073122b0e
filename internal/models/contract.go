package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultCurrency is used for contracts and items that do not specify one.
const DefaultCurrency = "EUR"

// GenerationHorizonMonths is the number of months after now up to which
// items are generated for contracts without an end date.
const GenerationHorizonMonths = 24

// Contract is a lease contract for a rental unit.
type Contract struct {
	DefaultModel
	TenantID            uuid.UUID       `json:"tenantId"`
	UnitID              uuid.UUID       `json:"unitId"`
	StartDate           time.Time       `json:"startDate"`
	EndDate             *time.Time      `json:"endDate"`
	TerminationDate     *time.Time      `json:"terminationDate"`
	ContractDate        *time.Time      `json:"contractDate"`
	BaseRent            decimal.Decimal `json:"baseRent" gorm:"type:DECIMAL(20,8)"`
	Utilities           decimal.Decimal `json:"utilities" gorm:"type:DECIMAL(20,8)"`
	Heating             decimal.Decimal `json:"heating" gorm:"type:DECIMAL(20,8)"`
	Deposit             decimal.Decimal `json:"deposit" gorm:"type:DECIMAL(20,8)"`
	DepositInstallments int             `json:"depositInstallments" gorm:"default:1"`
	RentDueDay          int             `json:"rentDueDay"`
	Currency            string          `json:"currency"`
	Note                string          `json:"note"`
}

func (c Contract) Self() string {
	return "Contract"
}

// AfterFind sets the timezone of all dates to UTC.
func (c *Contract) AfterFind(tx *gorm.DB) (err error) {
	err = c.DefaultModel.AfterFind(tx)
	if err != nil {
		return err
	}

	c.StartDate = c.StartDate.In(time.UTC)
	c.EndDate = utcDatePtr(c.EndDate)
	c.TerminationDate = utcDatePtr(c.TerminationDate)
	c.ContractDate = utcDatePtr(c.ContractDate)
	return nil
}

// BeforeSave normalizes the dates and validates the contract terms.
func (c *Contract) BeforeSave(_ *gorm.DB) error {
	if c.StartDate.IsZero() {
		return ErrContractStartDateMissing
	}

	c.StartDate = utcDate(c.StartDate)
	c.EndDate = utcDatePtr(c.EndDate)
	c.TerminationDate = utcDatePtr(c.TerminationDate)
	c.ContractDate = utcDatePtr(c.ContractDate)

	if c.EndDate != nil && c.EndDate.Before(c.StartDate) {
		return ErrContractEndBeforeStart
	}

	// Contracts created without installments pay the deposit at once
	if c.DepositInstallments == 0 {
		c.DepositInstallments = 1
	}

	if c.DepositInstallments < 1 {
		return ErrContractDepositInstallments
	}

	if c.RentDueDay < 0 || c.RentDueDay > 31 {
		return ErrContractRentDueDay
	}

	for _, amount := range []decimal.Decimal{c.BaseRent, c.Utilities, c.Heating, c.Deposit} {
		if amount.IsNegative() {
			return ErrNegativeAmount
		}
	}

	if c.Currency == "" {
		c.Currency = DefaultCurrency
	}

	return nil
}

// TotalRent is the sum of base rent, utilities and heating.
func (c Contract) TotalRent() decimal.Decimal {
	return c.BaseRent.Add(c.Utilities).Add(c.Heating)
}

// ActiveAt reports if the contract is active on the calendar day of t.
func (c Contract) ActiveAt(t time.Time) bool {
	day := utcDate(t)

	if utcDate(c.StartDate).After(day) {
		return false
	}

	if c.EndDate != nil && utcDate(*c.EndDate).Before(day) {
		return false
	}

	if c.TerminationDate != nil && utcDate(*c.TerminationDate).Before(day) {
		return false
	}

	return true
}

// GenerationEnd returns the last day for which items are generated.
//
// This is the end date of the contract or, for open-ended contracts, the
// rolling horizon after now. A termination date before that caps it.
func (c Contract) GenerationEnd(now time.Time) time.Time {
	end := utcDate(now).AddDate(0, GenerationHorizonMonths, 0)
	if c.EndDate != nil {
		end = utcDate(*c.EndDate)
	}

	if c.TerminationDate != nil && utcDate(*c.TerminationDate).Before(end) {
		end = utcDate(*c.TerminationDate)
	}

	return end
}

// FirstDepositDate is the due date of the first deposit installment.
func (c Contract) FirstDepositDate() time.Time {
	if c.ContractDate != nil {
		return utcDate(*c.ContractDate)
	}

	return utcDate(c.StartDate)
}

// RentChanges returns all rent changes for the contract, ordered by their effective date.
func (c Contract) RentChanges(db *gorm.DB) ([]RentChange, error) {
	var changes []RentChange
	err := db.Where(&RentChange{ContractID: c.ID}).Order("effective_date ASC, created_at ASC").Find(&changes).Error
	if err != nil {
		return nil, err
	}

	return changes, nil
}
