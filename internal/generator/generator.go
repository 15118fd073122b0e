// Package generator derives the expected rent and deposit items of a lease contract.
package generator

import (
	"fmt"
	"sort"
	"time"

	"github.com/immoledger/backend/internal/models"
	"github.com/immoledger/backend/internal/types"
	"github.com/shopspring/decimal"
)

// Options configure a generation run.
type Options struct {
	// FirstMonthAmount replaces the expected amount of the move-in month when positive.
	FirstMonthAmount decimal.Decimal

	// Now is the time used for the generation horizon. Defaults to time.Now().
	Now time.Time
}

func (o Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}

	return o.Now
}

type itemKey struct {
	month    string
	category string
}

// Generate returns the drafts for all rent and deposit items of the contract
// that do not exist yet.
//
// An item exists when there is an item in existing for the same payment month
// and category. Generate does not access the database.
func Generate(contract models.Contract, changes []models.RentChange, existing []models.FinancialItem, opts Options) []models.FinancialItem {
	seen := make(map[itemKey]struct{}, len(existing))
	for _, item := range existing {
		if item.RelatedToContractID != nil && *item.RelatedToContractID != contract.ID {
			continue
		}
		seen[itemKey{item.PaymentMonth.String(), item.Category}] = struct{}{}
	}

	drafts := rentItems(contract, changes, seen, opts)
	return append(drafts, depositItems(contract, seen)...)
}

// rentItems returns one rent item per month from the start of the contract
// until its generation end, skipping months in seen.
func rentItems(contract models.Contract, changes []models.RentChange, seen map[itemKey]struct{}, opts Options) []models.FinancialItem {
	first := types.MonthOf(contract.StartDate)
	last := types.MonthOf(contract.GenerationEnd(opts.now()))

	var drafts []models.FinancialItem
	for month := first; !month.After(last); month = month.AddDate(0, 1) {
		key := itemKey{month.String(), models.CategoryRent}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		expected := ExpectedRent(contract, changes, month)
		if month.Equal(first) && opts.FirstMonthAmount.IsPositive() {
			expected = opts.FirstMonthAmount
		}

		drafts = append(drafts, draft(contract, models.CategoryRent, month, DueDate(contract, month), expected, fmt.Sprintf("Miete %s", month)))
	}

	return drafts
}

// depositItems returns the installments of the deposit that are not in seen.
func depositItems(contract models.Contract, seen map[itemKey]struct{}) []models.FinancialItem {
	if !contract.Deposit.IsPositive() {
		return nil
	}

	installments := contract.DepositInstallments
	if installments < 1 {
		installments = 1
	}

	parts := SplitDeposit(contract.Deposit, installments, contract.Currency)
	first := contract.FirstDepositDate()

	var drafts []models.FinancialItem
	for i, amount := range parts {
		// Deposits smaller than one minor unit per installment leave empty parts
		if !amount.IsPositive() {
			continue
		}

		due := DepositDueDate(contract, first, i)
		month := types.MonthOf(due)

		key := itemKey{month.String(), models.CategoryDeposit}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		description := "Kaution"
		if installments > 1 {
			description = fmt.Sprintf("Kaution Rate %d/%d", i+1, installments)
		}

		drafts = append(drafts, draft(contract, models.CategoryDeposit, month, due, amount, description))
	}

	return drafts
}

func draft(contract models.Contract, category string, month types.Month, due time.Time, expected decimal.Decimal, description string) models.FinancialItem {
	contractID := contract.ID
	tenantID := contract.TenantID
	unitID := contract.UnitID

	return models.FinancialItem{
		Type:                    models.Receivable,
		Category:                category,
		RelatedToContractID:     &contractID,
		RelatedToTenantID:       &tenantID,
		RelatedToUnitID:         &unitID,
		PaymentMonth:            month,
		DueDate:                 due,
		ExpectedAmount:          expected,
		Amount:                  decimal.Zero,
		Status:                  models.StatusPending,
		IsAutomaticFromContract: true,
		Currency:                contract.Currency,
		Description:             description,
	}
}

// ApplicableRentChange returns the rent change that applies to the month.
//
// This is the change with the latest effective date that lies in or before
// the month. Of two changes with the same effective date, the one created
// last applies. The second return value is false when no change applies.
func ApplicableRentChange(changes []models.RentChange, month types.Month) (models.RentChange, bool) {
	sorted := make([]models.RentChange, len(changes))
	copy(sorted, changes)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].EffectiveDate.Equal(sorted[j].EffectiveDate) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].EffectiveDate.After(sorted[j].EffectiveDate)
	})

	for _, change := range sorted {
		effective := types.MonthOf(change.EffectiveDate)
		if effective.Before(month) || effective.Equal(month) {
			return change, true
		}
	}

	return models.RentChange{}, false
}

// ExpectedRent returns the total rent for the month.
func ExpectedRent(contract models.Contract, changes []models.RentChange, month types.Month) decimal.Decimal {
	change, ok := ApplicableRentChange(changes, month)
	if !ok {
		return contract.TotalRent()
	}

	return change.Total(contract)
}

// DueDate returns the due date of the rent for the month.
//
// Without a rent due day, rent is due on the first of the month.
func DueDate(contract models.Contract, month types.Month) time.Time {
	if contract.RentDueDay > 0 {
		return month.Day(contract.RentDueDay)
	}

	return month.Start()
}

// DepositDueDate returns the due date of the installment with the index passed.
//
// The first installment is due on the first deposit date, every further
// installment one month later on the rent due day or, if the contract has
// none, on the same day of the month as the first one.
func DepositDueDate(contract models.Contract, first time.Time, installment int) time.Time {
	if installment == 0 {
		return first
	}

	day := contract.RentDueDay
	if day == 0 {
		day = first.Day()
	}

	return types.MonthOf(first).AddDate(0, installment).Day(day)
}

// SplitDeposit splits the deposit into installments.
//
// Each installment is rounded down to the minor unit of the currency, the last
// one absorbs the residue so that the parts always sum up to the deposit.
func SplitDeposit(deposit decimal.Decimal, installments int, currency string) []decimal.Decimal {
	if installments < 1 {
		installments = 1
	}

	if currency == "" {
		currency = models.DefaultCurrency
	}

	part := deposit.Div(decimal.NewFromInt(int64(installments))).RoundFloor(models.MinorUnitScale(currency))

	parts := make([]decimal.Decimal, installments)
	for i := range parts[:installments-1] {
		parts[i] = part
	}
	parts[installments-1] = deposit.Sub(part.Mul(decimal.NewFromInt(int64(installments - 1))))

	return parts
}

// ProratedFirstMonth returns the rent for the move-in month, proportional to
// the days from the start date to the end of that month.
func ProratedFirstMonth(contract models.Contract, changes []models.RentChange) decimal.Decimal {
	month := types.MonthOf(contract.StartDate)
	total := ExpectedRent(contract, changes, month)

	days := month.Days()
	remaining := days - contract.StartDate.Day() + 1
	if remaining >= days {
		return total
	}

	currency := contract.Currency
	if currency == "" {
		currency = models.DefaultCurrency
	}

	return total.Mul(decimal.NewFromInt(int64(remaining))).Div(decimal.NewFromInt(int64(days))).Round(models.MinorUnitScale(currency))
}
