package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/immoledger/backend/internal/models"
	"github.com/immoledger/backend/internal/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChunkSize is the number of items created with one statement.
const ChunkSize = 20

// Throttle limits the rate of writes to the database.
//
// *rate.Limiter from golang.org/x/time/rate implements it.
type Throttle interface {
	Wait(ctx context.Context) error
}

var itemsGenerated = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "financial_items_generated_total",
		Help: "How many financial items have been generated from contracts.",
	},
)

// Collectors returns the Prometheus metrics of the generator.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{itemsGenerated}
}

// GenerateForContract creates all missing items for the contract.
//
// Existing items are loaded from the database first, a failure to load them
// aborts the generation. Items that were created concurrently are skipped by the
// database. The number of items actually created is returned.
func GenerateForContract(ctx context.Context, db *gorm.DB, throttle Throttle, contract models.Contract, changes []models.RentChange, opts Options) (int, error) {
	var existing []models.FinancialItem
	err := db.WithContext(ctx).Where(&models.FinancialItem{RelatedToContractID: &contract.ID}).Find(&existing).Error
	if err != nil {
		return 0, fmt.Errorf("could not load existing items for contract %s: %w", contract.ID, err)
	}

	drafts := Generate(contract, changes, existing, opts)
	return CreateItems(ctx, db, throttle, drafts)
}

// CreateItems inserts the drafts in chunks, waiting for the throttle between chunks.
//
// Drafts that conflict with an existing automatic item for the same contract,
// month and category are skipped and not counted.
func CreateItems(ctx context.Context, db *gorm.DB, throttle Throttle, drafts []models.FinancialItem) (int, error) {
	var created int64

	for start := 0; start < len(drafts); start += ChunkSize {
		if start > 0 && throttle != nil {
			if err := throttle.Wait(ctx); err != nil {
				return int(created), err
			}
		}

		end := min(start+ChunkSize, len(drafts))
		chunk := drafts[start:end]

		result := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&chunk)
		if result.Error != nil {
			return int(created), fmt.Errorf("could not create financial items: %w", result.Error)
		}
		created += result.RowsAffected
		itemsGenerated.Add(float64(result.RowsAffected))
	}

	log.Debug().Int("drafts", len(drafts)).Int64("created", created).Msg("Generator")
	return int(created), nil
}

// UpdateResult holds the number of items changed by UpdateFutureItems.
type UpdateResult struct {
	Updated int `json:"updated" example:"12"` // Number of items with new expected amount or due date
	Deleted int `json:"deleted" example:"3"`  // Number of items deleted because they are after the end of the contract
}

// UpdateFutureItems updates the pending automatic items of the contract from
// the current month on to the current contract terms and rent changes.
//
// Items keep their IDs. Rent items get a new expected amount and due date.
// The move-in month keeps its expected amount unless opts.FirstMonthAmount is
// positive. Deposit installments are recomputed from the current deposit terms,
// pending installments for months that no longer have one are deleted.
// Items for months after the generation end of the contract are deleted.
// Items that have been paid partially, paid or settled are never touched.
func UpdateFutureItems(ctx context.Context, db *gorm.DB, contract models.Contract, changes []models.RentChange, opts Options) (UpdateResult, error) {
	now := opts.now()
	current := types.MonthOf(now)
	last := types.MonthOf(contract.GenerationEnd(now))
	first := types.MonthOf(contract.StartDate)
	deposits := depositSchedule(contract)

	var result UpdateResult
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var items []models.FinancialItem
		err := tx.
			Where(&models.FinancialItem{
				RelatedToContractID:     &contract.ID,
				IsAutomaticFromContract: true,
				Status:                  models.StatusPending,
			}).
			Where("payment_month >= ?", current).
			Order("payment_month ASC").
			Find(&items).Error
		if err != nil {
			return err
		}

		for _, item := range items {
			if item.Settled || !item.Amount.IsZero() {
				continue
			}

			if item.PaymentMonth.After(last) {
				err = tx.Unscoped().Delete(&item).Error
				if err != nil {
					return err
				}
				result.Deleted++
				continue
			}

			var expected decimal.Decimal
			var due time.Time

			switch item.Category {
			case models.CategoryRent:
				expected = ExpectedRent(contract, changes, item.PaymentMonth)
				if item.PaymentMonth.Equal(first) {
					expected = item.ExpectedAmount
					if opts.FirstMonthAmount.IsPositive() {
						expected = opts.FirstMonthAmount
					}
				}
				due = DueDate(contract, item.PaymentMonth)
			case models.CategoryDeposit:
				inst, ok := deposits[item.PaymentMonth.String()]
				if !ok {
					err = tx.Unscoped().Delete(&item).Error
					if err != nil {
						return err
					}
					result.Deleted++
					continue
				}
				expected = inst.amount
				due = inst.due
			default:
				continue
			}

			if expected.Equal(item.ExpectedAmount) && due.Equal(item.DueDate) {
				continue
			}

			item.ExpectedAmount = expected
			item.DueDate = due
			err = tx.Save(&item).Error
			if err != nil {
				return err
			}
			result.Updated++
		}

		return nil
	})
	if err != nil {
		return UpdateResult{}, fmt.Errorf("could not update future items for contract %s: %w", contract.ID, err)
	}

	log.Info().Str("contract", contract.ID.String()).Int("updated", result.Updated).Int("deleted", result.Deleted).Msg("Generator")
	return result, nil
}

type installment struct {
	amount decimal.Decimal
	due    time.Time
}

// depositSchedule returns the deposit installments of the contract by payment month.
func depositSchedule(contract models.Contract) map[string]installment {
	schedule := make(map[string]installment)
	if !contract.Deposit.IsPositive() {
		return schedule
	}

	first := contract.FirstDepositDate()
	for i, amount := range SplitDeposit(contract.Deposit, max(contract.DepositInstallments, 1), contract.Currency) {
		if !amount.IsPositive() {
			continue
		}

		due := DepositDueDate(contract, first, i)
		schedule[types.MonthOf(due).String()] = installment{amount, due}
	}

	return schedule
}

// MoveInAmount returns the expected amount stored for the move-in month of the
// contract when it differs from the full rent for that month.
//
// It returns zero when there is no automatic rent item for the move-in month or
// the item expects the full rent.
func MoveInAmount(ctx context.Context, db *gorm.DB, contract models.Contract, changes []models.RentChange) (decimal.Decimal, error) {
	first := types.MonthOf(contract.StartDate)

	var items []models.FinancialItem
	err := db.WithContext(ctx).
		Where(&models.FinancialItem{
			RelatedToContractID:     &contract.ID,
			IsAutomaticFromContract: true,
			Category:                models.CategoryRent,
			PaymentMonth:            first,
		}).
		Limit(1).
		Find(&items).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("could not load move-in item for contract %s: %w", contract.ID, err)
	}

	if len(items) == 0 || items[0].ExpectedAmount.Equal(ExpectedRent(contract, changes, first)) {
		return decimal.Zero, nil
	}

	return items[0].ExpectedAmount, nil
}
