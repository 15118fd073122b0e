// Package suggest proposes categories for bank transactions.
package suggest

import (
	"context"

	"github.com/google/uuid"
	"github.com/immoledger/backend/internal/models"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

// Suggestion is a proposed category for a bank transaction.
type Suggestion struct {
	TransactionID uuid.UUID  `json:"transactionId" example:"1e777d24-3f5b-4c43-8000-04f65f895578"` // ID of the bank transaction
	Category      string     `json:"category" example:"rent_income"`                               // Proposed category
	Confidence    int        `json:"confidence" example:"92"`                                      // Confidence between 0 and 100
	Reason        string     `json:"reason" example:"Sender is the tenant of the contract"`        // Why the category was proposed
	ContractID    *uuid.UUID `json:"contractId,omitempty"`                                         // Contract to assign, if known
	UnitID        *uuid.UUID `json:"unitId,omitempty"`                                             // Unit to assign, if known
}

// Suggester proposes categories for transactions.
type Suggester interface {
	Suggest(ctx context.Context, transactions []models.BankTransaction, categories []string) ([]Suggestion, error)
}

// DefaultCategories are always offered for categorization.
var DefaultCategories = []string{
	"rent_income",
	"deposit",
	"utilities",
	"heating",
	"maintenance",
	"insurance",
	"property_tax",
	"loan",
	"management_fee",
	"other_income",
	"other_expense",
}

// Categories returns the default categories together with all categories
// used by categorization rules and bank transactions.
func Categories(db *gorm.DB) ([]string, error) {
	categories := slices.Clone(DefaultCategories)

	var used []string
	err := db.Model(&models.CategorizationRule{}).Distinct().Pluck("category", &used).Error
	if err != nil {
		return nil, err
	}
	categories = append(categories, used...)

	used = nil
	err = db.Model(&models.BankTransaction{}).Where("category <> ''").Distinct().Pluck("category", &used).Error
	if err != nil {
		return nil, err
	}
	categories = append(categories, used...)

	slices.Sort(categories)
	return slices.Compact(categories), nil
}
