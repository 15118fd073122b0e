package allocator

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/immoledger/backend/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BulkAllocation links a part of a bank transaction to a financial item.
type BulkAllocation struct {
	FinancialItemID uuid.UUID       `json:"financialItemId" example:"f2b8d0a6-4c57-4d8e-9b59-2e6c4c1ad9c4"` // ID of the financial item
	TransactionID   uuid.UUID       `json:"transactionId" example:"1e777d24-3f5b-4c43-8000-04f65f895578"`   // ID of the bank transaction
	Amount          decimal.Decimal `json:"amount" example:"600" swaggertype:"string"`                      // Amount of the transaction that counts towards the item
}

// BulkRequest categorizes a set of bank transactions and optionally links
// them to financial items.
type BulkRequest struct {
	TransactionIDs []uuid.UUID      `json:"transactionIds"`                 // IDs of the transactions to categorize
	Category       string           `json:"category" example:"rent_income"` // Category to set
	ContractID     *uuid.UUID       `json:"contractId"`                     // Contract to assign
	UnitID         *uuid.UUID       `json:"unitId"`                         // Unit to assign
	Allocations    []BulkAllocation `json:"allocations"`                    // Links to create or update
}

// BulkDetail describes a failed part of a bulk operation.
type BulkDetail struct {
	TransactionID   *uuid.UUID `json:"transactionId,omitempty"`
	FinancialItemID *uuid.UUID `json:"financialItemId,omitempty"`
	Error           string     `json:"error" example:"there is no bank transaction matching your query"`
}

// BulkResult counts successful and failed units of work of a bulk operation.
type BulkResult struct {
	Success int          `json:"success" example:"12"`
	Errors  int          `json:"errors" example:"1"`
	Details []BulkDetail `json:"details"`
}

func (r *BulkResult) fail(transactionID, itemID *uuid.UUID, err error) {
	r.Errors++
	r.Details = append(r.Details, BulkDetail{
		TransactionID:   transactionID,
		FinancialItemID: itemID,
		Error:           err.Error(),
	})
}

// BulkCategorize sets category, contract and unit on all transactions of the
// request and creates or updates the links of its allocations.
//
// Every transaction and every allocation is processed on its own. A failure
// is recorded in the result and does not stop the other ones.
func BulkCategorize(ctx context.Context, db *gorm.DB, req BulkRequest) BulkResult {
	result := BulkResult{Details: make([]BulkDetail, 0)}

	for _, id := range req.TransactionIDs {
		err := categorize(ctx, db, id, req)
		if err != nil {
			result.fail(&id, nil, err)
			continue
		}
		result.Success++
	}

	for _, allocation := range req.Allocations {
		err := allocate(ctx, db, allocation)
		if err != nil {
			result.fail(&allocation.TransactionID, &allocation.FinancialItemID, err)
			continue
		}
		result.Success++
	}

	log.Info().Int("success", result.Success).Int("errors", result.Errors).Msg("Bulk categorization")
	return result
}

func categorize(ctx context.Context, db *gorm.DB, id uuid.UUID, req BulkRequest) error {
	var transaction models.BankTransaction
	err := db.WithContext(ctx).First(&transaction, id).Error
	if err != nil {
		return err
	}

	updates := map[string]any{}
	if req.Category != "" {
		updates["category"] = req.Category
	}

	if req.ContractID != nil {
		updates["contract_id"] = req.ContractID
	}

	if req.UnitID != nil {
		updates["unit_id"] = req.UnitID
	}

	if len(updates) == 0 {
		return nil
	}

	return db.WithContext(ctx).Model(&transaction).Updates(updates).Error
}

// allocate creates or updates the single link between the item and the
// transaction of the allocation.
func allocate(ctx context.Context, db *gorm.DB, allocation BulkAllocation) error {
	if !allocation.Amount.IsPositive() {
		return ErrAllocationAmount
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.FinancialItem
		err := tx.First(&item, allocation.FinancialItemID).Error
		if err != nil {
			return err
		}

		var transaction models.BankTransaction
		err = tx.First(&transaction, allocation.TransactionID).Error
		if err != nil {
			return err
		}

		if allocation.Amount.GreaterThan(transaction.AbsAmount()) {
			return fmt.Errorf("%w: %s is more than %s", ErrLinkExceedsTransaction, allocation.Amount, transaction.AbsAmount())
		}

		var link models.FinancialItemLink
		err = tx.
			Where(&models.FinancialItemLink{FinancialItemID: item.ID, TransactionID: transaction.ID}).
			Attrs(models.FinancialItemLink{LinkedAmount: allocation.Amount}).
			FirstOrCreate(&link).Error
		if err != nil {
			return err
		}

		if !link.LinkedAmount.Equal(allocation.Amount) {
			link.LinkedAmount = allocation.Amount
			err = tx.Save(&link).Error
			if err != nil {
				return err
			}
		}

		_, err = RecomputeItem(tx, item.ID)
		if err != nil {
			return err
		}

		return RecomputeTransaction(tx, transaction.ID)
	})
}

// BulkUncategorize removes all links of the transactions and their category.
//
// The amounts of all financial items that were linked are recomputed from
// their remaining links.
func BulkUncategorize(ctx context.Context, db *gorm.DB, transactionIDs []uuid.UUID) BulkResult {
	result := BulkResult{Details: make([]BulkDetail, 0)}

	for _, id := range transactionIDs {
		err := Uncategorize(ctx, db, id)
		if err != nil {
			result.fail(&id, nil, err)
			continue
		}
		result.Success++
	}

	log.Info().Int("success", result.Success).Int("errors", result.Errors).Msg("Bulk uncategorization")
	return result
}

// Uncategorize removes all links and the category of the transaction.
func Uncategorize(ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var transaction models.BankTransaction
		err := tx.First(&transaction, id).Error
		if err != nil {
			return err
		}

		var links []models.FinancialItemLink
		err = tx.Where(&models.FinancialItemLink{TransactionID: id}).Find(&links).Error
		if err != nil {
			return err
		}

		err = tx.Unscoped().Where(&models.FinancialItemLink{TransactionID: id}).Delete(&models.FinancialItemLink{}).Error
		if err != nil {
			return err
		}

		items := make([]uuid.UUID, 0, len(links))
		for _, link := range links {
			items = append(items, link.FinancialItemID)
		}

		for _, itemID := range unique(items) {
			_, err = RecomputeItem(tx, itemID)
			if err != nil {
				return err
			}
		}

		return tx.Model(&transaction).Updates(map[string]any{
			"is_categorized": false,
			"category":       "",
		}).Error
	})
}
