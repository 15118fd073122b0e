// Package importer stores parsed bank statements.
package importer

import (
	"context"
	"io"

	"github.com/immoledger/backend/internal/importer/parser/bankcsv"
	"github.com/immoledger/backend/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Result is the outcome of an import.
type Result struct {
	Imported     int                      `json:"imported" example:"12"`  // Number of transactions that have been created
	Duplicates   int                      `json:"duplicates" example:"3"` // Number of transactions skipped since their import hash already exists
	Transactions []models.BankTransaction `json:"-"`                      // The created transactions
}

// Import creates the bank transactions.
//
// Transactions whose import hash is already stored, or that occur more than
// once in the input, are skipped and counted as duplicates. Either all
// transactions are created or none.
func Import(ctx context.Context, db *gorm.DB, transactions []models.BankTransaction) (Result, error) {
	result := Result{Transactions: make([]models.BankTransaction, 0, len(transactions))}
	seen := make(map[string]bool)

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, transaction := range transactions {
			if transaction.ImportHash != nil && *transaction.ImportHash != "" {
				if seen[*transaction.ImportHash] {
					result.Duplicates++
					continue
				}
				seen[*transaction.ImportHash] = true

				var count int64
				err := tx.Unscoped().
					Model(&models.BankTransaction{}).
					Where(&models.BankTransaction{ImportHash: transaction.ImportHash}).
					Count(&count).Error
				if err != nil {
					return err
				}

				if count > 0 {
					result.Duplicates++
					continue
				}
			}

			// A concurrent import can store the same hash between the check and the insert
			q := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&transaction)
			if q.Error != nil {
				return q.Error
			}

			if q.RowsAffected == 0 {
				result.Duplicates++
				continue
			}

			result.Transactions = append(result.Transactions, transaction)
		}

		return nil
	})
	if err != nil {
		return Result{}, err
	}

	result.Imported = len(result.Transactions)
	log.Info().Int("imported", result.Imported).Int("duplicates", result.Duplicates).Msg("Bank statement import")

	return result, nil
}

// ImportCSV parses a CSV bank statement and imports its transactions.
func ImportCSV(ctx context.Context, db *gorm.DB, f io.Reader) (Result, error) {
	transactions, err := bankcsv.Parse(f)
	if err != nil {
		return Result{}, err
	}

	return Import(ctx, db, transactions)
}
