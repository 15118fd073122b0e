package allocator

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/immoledger/backend/internal/models"
	"github.com/immoledger/backend/internal/suggest"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// AutoApplyConfidence is the minimum confidence for a suggestion to be
// applied without confirmation.
const AutoApplyConfidence = 80

// AutoResult holds the suggestions that were applied and the ones that need
// to be confirmed.
type AutoResult struct {
	Applied []suggest.Suggestion `json:"applied"` // Suggestions that have been applied
	Pending []suggest.Suggestion `json:"pending"` // Suggestions that need to be confirmed
	Errors  []BulkDetail         `json:"errors"`  // Suggestions that could not be applied
}

// AutoCategorize asks the suggester for categories and applies all
// suggestions with a confidence of at least AutoApplyConfidence.
//
// Without IDs, all transactions without category are processed.
func AutoCategorize(ctx context.Context, db *gorm.DB, suggester suggest.Suggester, transactionIDs []uuid.UUID) (AutoResult, error) {
	result := AutoResult{
		Applied: make([]suggest.Suggestion, 0),
		Pending: make([]suggest.Suggestion, 0),
		Errors:  make([]BulkDetail, 0),
	}

	q := db.WithContext(ctx).Order("transaction_date ASC")
	if len(transactionIDs) > 0 {
		q = q.Where("id IN ?", transactionIDs)
	} else {
		q = q.Where(&models.BankTransaction{IsCategorized: false}, "IsCategorized").Where("category = ''")
	}

	var transactions []models.BankTransaction
	err := q.Find(&transactions).Error
	if err != nil {
		return AutoResult{}, err
	}

	if len(transactions) == 0 {
		return result, nil
	}

	categories, err := suggest.Categories(db.WithContext(ctx))
	if err != nil {
		return AutoResult{}, err
	}

	suggestions, err := suggester.Suggest(ctx, transactions, categories)
	if err != nil {
		return AutoResult{}, fmt.Errorf("could not get suggestions: %w", err)
	}

	for _, s := range suggestions {
		if s.Confidence < AutoApplyConfidence {
			result.Pending = append(result.Pending, s)
			continue
		}

		err := categorize(ctx, db, s.TransactionID, BulkRequest{
			Category:   s.Category,
			ContractID: s.ContractID,
			UnitID:     s.UnitID,
		})
		if err != nil {
			log.Warn().Str("transaction", s.TransactionID.String()).Err(err).Msg("Suggestion could not be applied")
			result.Errors = append(result.Errors, BulkDetail{TransactionID: &s.TransactionID, Error: err.Error()})
			continue
		}

		result.Applied = append(result.Applied, s)
	}

	log.Info().Int("applied", len(result.Applied)).Int("pending", len(result.Pending)).Msg("Auto categorization")
	return result, nil
}
