package models

import (
	"github.com/google/uuid"
	"github.com/ryanuber/go-glob"
	"gorm.io/gorm"
)

// CategorizationRule assigns a category to bank transactions whose sender or
// receiver, description or reference matches the glob in Match.
type CategorizationRule struct {
	DefaultModel
	Priority   uint       `json:"priority"`
	Match      string     `json:"match"`
	Category   string     `json:"category"`
	ContractID *uuid.UUID `json:"contractId"`
	UnitID     *uuid.UUID `json:"unitId"`
}

func (r CategorizationRule) Self() string {
	return "Categorization Rule"
}

func (r *CategorizationRule) BeforeSave(_ *gorm.DB) error {
	if r.Category == "" {
		return ErrCategorizationRuleNoCategory
	}

	return nil
}

// Matches reports if the rule applies to the transaction.
func (r CategorizationRule) Matches(t BankTransaction) bool {
	if r.Match == "" {
		return false
	}

	for _, s := range []string{t.SenderReceiver, t.Description, t.Reference} {
		if s != "" && glob.Glob(r.Match, s) {
			return true
		}
	}

	return false
}
