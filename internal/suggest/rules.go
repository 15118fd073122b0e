package suggest

import (
	"context"
	"fmt"

	"github.com/immoledger/backend/internal/models"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

// Rules suggests categories from the categorization rules in the database.
//
// The first matching rule in order of priority wins.
type Rules struct {
	DB *gorm.DB
}

func (r Rules) Suggest(ctx context.Context, transactions []models.BankTransaction, categories []string) ([]Suggestion, error) {
	var rules []models.CategorizationRule
	err := r.DB.WithContext(ctx).Order("priority ASC").Order("created_at ASC").Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("could not load categorization rules: %w", err)
	}

	suggestions := make([]Suggestion, 0)
	for _, transaction := range transactions {
		for _, rule := range rules {
			if len(categories) > 0 && !slices.Contains(categories, rule.Category) {
				continue
			}

			if !rule.Matches(transaction) {
				continue
			}

			suggestions = append(suggestions, Suggestion{
				TransactionID: transaction.ID,
				Category:      rule.Category,
				Confidence:    100,
				Reason:        fmt.Sprintf("matches categorization rule '%s'", rule.Match),
				ContractID:    rule.ContractID,
				UnitID:        rule.UnitID,
			})
			break
		}
	}

	return suggestions, nil
}
