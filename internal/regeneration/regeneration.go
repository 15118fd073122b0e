// Package regeneration brings the pending items of contracts in line with
// their current terms.
package regeneration

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/immoledger/backend/internal/generator"
	"github.com/immoledger/backend/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var itemsDeleted = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "financial_items_regeneration_deleted_total",
		Help: "How many pending financial items have been deleted by regeneration.",
	},
)

var contractsRegenerated = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "contracts_regenerated_total",
		Help: "How many contracts have been regenerated, partitioned by result.",
	},
	[]string{"result"},
)

// Collectors returns the Prometheus metrics of the regeneration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{itemsDeleted, contractsRegenerated}
}

// RegenerateContract deletes the pending automatic items of the contract and
// generates them again from the contract and its rent changes.
//
// Items that have links, have been paid or have been settled are never
// deleted. The number of created items is returned.
func RegenerateContract(ctx context.Context, db *gorm.DB, throttle generator.Throttle, contractID uuid.UUID, now time.Time) (int, error) {
	var contract models.Contract
	err := db.WithContext(ctx).First(&contract, contractID).Error
	if err != nil {
		return 0, err
	}

	return regenerate(ctx, db, throttle, contract, now)
}

func regenerate(ctx context.Context, db *gorm.DB, throttle generator.Throttle, contract models.Contract, now time.Time) (int, error) {
	changes, err := contract.RentChanges(db.WithContext(ctx))
	if err != nil {
		return 0, err
	}

	// The move-in amount is only stored on the item, keep it across the deletion
	moveIn, err := generator.MoveInAmount(ctx, db, contract, changes)
	if err != nil {
		contractsRegenerated.WithLabelValues("failed").Inc()
		return 0, err
	}

	deleted, err := DeletePendingItems(ctx, db, contract.ID)
	if err != nil {
		contractsRegenerated.WithLabelValues("failed").Inc()
		return 0, err
	}

	created, err := generator.GenerateForContract(ctx, db, throttle, contract, changes, generator.Options{Now: now, FirstMonthAmount: moveIn})
	if err != nil {
		contractsRegenerated.WithLabelValues("failed").Inc()
		return created, err
	}

	contractsRegenerated.WithLabelValues("success").Inc()
	log.Debug().Str("contract", contract.ID.String()).Int64("deleted", deleted).Int("created", created).Msg("Regeneration")
	return created, nil
}

// DeletePendingItems permanently deletes all automatic items of the contract
// that are pending, not settled and not linked to any bank transaction.
func DeletePendingItems(ctx context.Context, db *gorm.DB, contractID uuid.UUID) (int64, error) {
	result := db.WithContext(ctx).
		Unscoped().
		Where(&models.FinancialItem{
			RelatedToContractID:     &contractID,
			IsAutomaticFromContract: true,
			Status:                  models.StatusPending,
		}).
		Where(&models.FinancialItem{Settled: false}, "Settled").
		Where("NOT EXISTS (SELECT 1 FROM financial_item_links WHERE financial_item_links.financial_item_id = financial_items.id)").
		Delete(&models.FinancialItem{})
	if result.Error != nil {
		return 0, fmt.Errorf("could not delete pending items of contract %s: %w", contractID, result.Error)
	}

	itemsDeleted.Add(float64(result.RowsAffected))
	return result.RowsAffected, nil
}

// RegenerateAll regenerates all contracts that are active at now.
//
// The throttle is waited for between contracts. When a contract fails, the
// number of items created so far is returned together with the error. The
// operation can be retried safely.
func RegenerateAll(ctx context.Context, db *gorm.DB, throttle generator.Throttle, now time.Time) (int, error) {
	var contracts []models.Contract
	err := db.WithContext(ctx).Order("start_date ASC").Find(&contracts).Error
	if err != nil {
		return 0, err
	}

	var total, regenerated, skipped int
	for _, contract := range contracts {
		if !contract.ActiveAt(now) {
			skipped++
			continue
		}

		if regenerated > 0 && throttle != nil {
			err = throttle.Wait(ctx)
			if err != nil {
				return total, err
			}
		}

		created, err := regenerate(ctx, db, throttle, contract, now)
		total += created
		if err != nil {
			log.Error().Str("contract", contract.ID.String()).Err(err).Msg("Regeneration failed")
			return total, fmt.Errorf("regeneration of contract %s failed: %w", contract.ID, err)
		}
		regenerated++
	}

	log.Info().Int("contracts", regenerated).Int("skipped", skipped).Int("created", total).Msg("Regeneration")
	return total, nil
}
