package regeneration_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/immoledger/backend/internal/allocator"
	"github.com/immoledger/backend/internal/generator"
	"github.com/immoledger/backend/internal/models"
	"github.com/immoledger/backend/internal/regeneration"
	"github.com/immoledger/backend/internal/types"
)

func (suite *TestSuiteStandard) TestRegenerateContract() {
	contract := suite.createTestContract(datePtr(2024, 1, 15), datePtr(2024, 12, 31))

	created, err := regeneration.RegenerateContract(context.Background(), models.DB, suite.throttle(), contract.ID, now)
	suite.Require().Nil(err)
	suite.Assert().Equal(12, created)

	// A rent change is picked up for all pending items
	change := models.RentChange{ContractID: contract.ID, EffectiveDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), BaseRent: dec("1200")}
	suite.Require().Nil(models.DB.Create(&change).Error)

	created, err = regeneration.RegenerateContract(context.Background(), models.DB, suite.throttle(), contract.ID, now)
	suite.Require().Nil(err)
	suite.Assert().Equal(12, created)

	items := suite.items(contract)
	suite.Require().Len(items, 12)
	suite.Assert().True(dec("1150").Equal(items[4].ExpectedAmount))
	suite.Assert().True(dec("1350").Equal(items[5].ExpectedAmount))
}

func (suite *TestSuiteStandard) TestRegenerateContractNonDestructive() {
	contract := suite.createTestContract(datePtr(2024, 1, 15), datePtr(2024, 12, 31))

	_, err := regeneration.RegenerateContract(context.Background(), models.DB, suite.throttle(), contract.ID, now)
	suite.Require().Nil(err)
	items := suite.items(contract)

	first := models.BankTransaction{Amount: dec("1150")}
	second := models.BankTransaction{Amount: dec("500")}
	suite.Require().Nil(models.DB.Create(&first).Error)
	suite.Require().Nil(models.DB.Create(&second).Error)

	paid, err := allocator.ReplaceAllocations(context.Background(), models.DB, items[0].ID, []allocator.Allocation{{TransactionID: first.ID, Amount: dec("1150")}})
	suite.Require().Nil(err)
	suite.Require().Equal(models.StatusPaid, paid.Status)

	partial, err := allocator.ReplaceAllocations(context.Background(), models.DB, items[1].ID, []allocator.Allocation{{TransactionID: second.ID, Amount: dec("500")}})
	suite.Require().Nil(err)
	suite.Require().Equal(models.StatusPartial, partial.Status)

	settled, err := allocator.Settle(context.Background(), models.DB, items[2].ID)
	suite.Require().Nil(err)

	created, err := regeneration.RegenerateContract(context.Background(), models.DB, suite.throttle(), contract.ID, now)
	suite.Require().Nil(err)
	suite.Assert().Equal(9, created)

	after := suite.items(contract)
	suite.Require().Len(after, 12)

	for _, kept := range []models.FinancialItem{paid, partial, settled} {
		var item models.FinancialItem
		suite.Require().Nil(models.DB.First(&item, kept.ID).Error, "item for %s must not be deleted", kept.PaymentMonth)
		suite.Assert().Equal(kept.Status, item.Status)
	}
}

func (suite *TestSuiteStandard) TestRegenerateContractKeepsManualItems() {
	contract := suite.createTestContract(datePtr(2024, 1, 15), datePtr(2024, 3, 31))

	manual := models.FinancialItem{
		Category:            "other",
		RelatedToContractID: &contract.ID,
		PaymentMonth:        types.NewMonth(2024, 2),
		ExpectedAmount:      dec("80"),
		Description:         "Schlüsseldienst",
	}
	suite.Require().Nil(models.DB.Create(&manual).Error)

	created, err := regeneration.RegenerateContract(context.Background(), models.DB, suite.throttle(), contract.ID, now)
	suite.Require().Nil(err)
	suite.Assert().Equal(3, created)

	suite.Assert().Nil(models.DB.First(&models.FinancialItem{}, manual.ID).Error)
}

func (suite *TestSuiteStandard) TestRegenerateContractKeepsMoveInAmount() {
	contract := suite.createTestContract(datePtr(2024, 3, 16), datePtr(2024, 12, 31))

	_, err := generator.GenerateForContract(context.Background(), models.DB, suite.throttle(), contract, nil, generator.Options{Now: now, FirstMonthAmount: dec("593.55")})
	suite.Require().Nil(err)

	created, err := regeneration.RegenerateContract(context.Background(), models.DB, suite.throttle(), contract.ID, now)
	suite.Require().Nil(err)
	suite.Assert().Equal(10, created)

	items := suite.items(contract)
	suite.Require().Len(items, 10)
	suite.Assert().True(dec("593.55").Equal(items[0].ExpectedAmount), "got %s", items[0].ExpectedAmount)
	suite.Assert().True(dec("1150").Equal(items[1].ExpectedAmount))
}

func (suite *TestSuiteStandard) TestRegenerateContractNotFound() {
	_, err := regeneration.RegenerateContract(context.Background(), models.DB, suite.throttle(), uuid.New(), now)
	suite.Assert().ErrorIs(err, models.ErrResourceNotFound)
}

func (suite *TestSuiteStandard) TestRegenerateAll() {
	active := suite.createTestContract(datePtr(2024, 1, 15), datePtr(2024, 12, 31))
	ended := suite.createTestContract(datePtr(2022, 1, 1), datePtr(2023, 12, 31))
	future := suite.createTestContract(datePtr(2024, 6, 1), datePtr(2024, 12, 31))

	created, err := regeneration.RegenerateAll(context.Background(), models.DB, suite.throttle(), now)
	suite.Require().Nil(err)
	suite.Assert().Equal(12, created)

	suite.Assert().Len(suite.items(active), 12)
	suite.Assert().Len(suite.items(ended), 0, "inactive contracts are skipped")
	suite.Assert().Len(suite.items(future), 0, "contracts that have not started are skipped")

	// Repeating it is idempotent
	created, err = regeneration.RegenerateAll(context.Background(), models.DB, suite.throttle(), now)
	suite.Require().Nil(err)
	suite.Assert().Equal(12, created)
	suite.Assert().Len(suite.items(active), 12)
}

func (suite *TestSuiteStandard) TestRegenerateAllDatabaseError() {
	suite.createTestContract(datePtr(2024, 1, 15), nil)
	suite.CloseDB()

	created, err := regeneration.RegenerateAll(context.Background(), models.DB, suite.throttle(), now)
	suite.Assert().ErrorIs(err, models.ErrGeneral)
	suite.Assert().Equal(0, created)
}

func (suite *TestSuiteStandard) TestDeletePendingItems() {
	contract := suite.createTestContract(datePtr(2024, 1, 15), datePtr(2024, 3, 31))

	_, err := regeneration.RegenerateContract(context.Background(), models.DB, suite.throttle(), contract.ID, now)
	suite.Require().Nil(err)

	deleted, err := regeneration.DeletePendingItems(context.Background(), models.DB, contract.ID)
	suite.Require().Nil(err)
	suite.Assert().Equal(int64(3), deleted)
	suite.Assert().Len(suite.items(contract), 0)
}
