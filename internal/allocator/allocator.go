// Package allocator links bank transactions to financial items and keeps the
// derived amounts and states consistent with these links.
package allocator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/immoledger/backend/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrLinkExceedsTransaction = errors.New("the linked amount exceeds the amount of the bank transaction")
	ErrAllocationAmount       = errors.New("the allocated amount must be greater than zero")
)

// Allocation assigns a part of a bank transaction to a financial item.
type Allocation struct {
	TransactionID uuid.UUID       `json:"transactionId" example:"1e777d24-3f5b-4c43-8000-04f65f895578"` // ID of the bank transaction
	Amount        decimal.Decimal `json:"amount" example:"600" swaggertype:"string"`                      // Amount of the transaction that counts towards the item
}

// ReplaceAllocations sets the links of the financial item to exactly the
// allocations passed.
//
// Allocations without transaction or with an amount that is not positive are
// ignored, allocations for the same transaction are summed up. Only links
// that differ from the current state are written. The amount and status of
// the item and the categorization of all affected transactions are updated
// in the same database transaction.
func ReplaceAllocations(ctx context.Context, db *gorm.DB, itemID uuid.UUID, allocations []Allocation) (models.FinancialItem, error) {
	var item models.FinancialItem

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&item, itemID).Error
		if err != nil {
			return err
		}

		order, wanted := normalize(allocations)

		for _, id := range order {
			var transaction models.BankTransaction
			err = tx.First(&transaction, id).Error
			if err != nil {
				return err
			}

			if wanted[id].GreaterThan(transaction.AbsAmount()) {
				return fmt.Errorf("%w: %s is more than %s for transaction %s", ErrLinkExceedsTransaction, wanted[id], transaction.AbsAmount(), id)
			}
		}

		current, err := item.Links(tx)
		if err != nil {
			return err
		}

		touched := make([]uuid.UUID, 0, len(current)+len(order))
		existing := make(map[uuid.UUID]models.FinancialItemLink, len(current))
		for _, link := range current {
			existing[link.TransactionID] = link
			touched = append(touched, link.TransactionID)
		}

		// Links that are not wanted anymore
		for _, link := range current {
			if _, ok := wanted[link.TransactionID]; ok {
				continue
			}

			err = tx.Unscoped().Delete(&link).Error
			if err != nil {
				return err
			}
		}

		for _, id := range order {
			link, ok := existing[id]
			if !ok {
				link = models.FinancialItemLink{
					FinancialItemID: item.ID,
					TransactionID:   id,
					LinkedAmount:    wanted[id],
				}

				err = tx.Create(&link).Error
				if err != nil {
					return err
				}

				touched = append(touched, id)
				continue
			}

			if link.LinkedAmount.Equal(wanted[id]) {
				continue
			}

			link.LinkedAmount = wanted[id]
			err = tx.Save(&link).Error
			if err != nil {
				return err
			}
		}

		item, err = RecomputeItem(tx, item.ID)
		if err != nil {
			return err
		}

		for _, id := range unique(touched) {
			err = RecomputeTransaction(tx, id)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return models.FinancialItem{}, err
	}

	log.Debug().Str("item", item.ID.String()).Str("amount", item.Amount.String()).Str("status", string(item.Status)).Msg("Allocator")
	return item, nil
}

// normalize drops invalid allocations and sums up allocations for the same
// transaction. The order of first occurrence is kept.
func normalize(allocations []Allocation) ([]uuid.UUID, map[uuid.UUID]decimal.Decimal) {
	var order []uuid.UUID
	wanted := make(map[uuid.UUID]decimal.Decimal)

	for _, a := range allocations {
		if a.TransactionID == uuid.Nil || !a.Amount.IsPositive() {
			continue
		}

		if _, ok := wanted[a.TransactionID]; !ok {
			order = append(order, a.TransactionID)
			wanted[a.TransactionID] = decimal.Zero
		}

		wanted[a.TransactionID] = wanted[a.TransactionID].Add(a.Amount)
	}

	return order, wanted
}

func unique(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))

	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	return out
}

// RecomputeItem sets the amount of the item to the sum of its links and
// derives its status. A settled item stays settled.
func RecomputeItem(db *gorm.DB, itemID uuid.UUID) (models.FinancialItem, error) {
	var item models.FinancialItem
	err := db.First(&item, itemID).Error
	if err != nil {
		return models.FinancialItem{}, err
	}

	links, err := item.Links(db)
	if err != nil {
		return models.FinancialItem{}, err
	}

	sum := decimal.Zero
	for _, link := range links {
		sum = sum.Add(link.LinkedAmount)
	}

	item.Amount = sum
	err = db.Save(&item).Error
	if err != nil {
		return models.FinancialItem{}, err
	}

	return item, nil
}

// RecomputeTransaction sets the categorization flag of the transaction. It is
// categorized as long as at least one link references it.
func RecomputeTransaction(db *gorm.DB, transactionID uuid.UUID) error {
	var transaction models.BankTransaction
	err := db.First(&transaction, transactionID).Error
	if err != nil {
		return err
	}

	count, err := transaction.LinkCount(db)
	if err != nil {
		return err
	}

	return db.Model(&transaction).Update("is_categorized", count > 0).Error
}

// Settle marks the item as settled, independent of the linked amount.
func Settle(ctx context.Context, db *gorm.DB, itemID uuid.UUID) (models.FinancialItem, error) {
	return setSettled(ctx, db, itemID, true)
}

// Unsettle removes the manual settlement. The status is derived from the
// linked amount again.
func Unsettle(ctx context.Context, db *gorm.DB, itemID uuid.UUID) (models.FinancialItem, error) {
	return setSettled(ctx, db, itemID, false)
}

func setSettled(ctx context.Context, db *gorm.DB, itemID uuid.UUID, settled bool) (models.FinancialItem, error) {
	var item models.FinancialItem
	err := db.WithContext(ctx).First(&item, itemID).Error
	if err != nil {
		return models.FinancialItem{}, err
	}

	item.Settled = settled
	err = db.WithContext(ctx).Save(&item).Error
	if err != nil {
		return models.FinancialItem{}, err
	}

	return item, nil
}
