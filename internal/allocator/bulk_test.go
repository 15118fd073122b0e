package allocator_test

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/immoledger/backend/internal/allocator"
	"github.com/immoledger/backend/internal/models"
	"github.com/immoledger/backend/internal/suggest"
)

func (suite *TestSuiteStandard) TestBulkCategorize() {
	contract := models.Contract{StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	suite.Require().Nil(models.DB.Create(&contract).Error)

	item := suite.createTestItem("1150")
	first := suite.createTestTransaction("600")
	second := suite.createTestTransaction("550")
	missing := uuid.New()

	result := allocator.BulkCategorize(context.Background(), models.DB, allocator.BulkRequest{
		TransactionIDs: []uuid.UUID{first.ID, second.ID, missing},
		Category:       "rent_income",
		ContractID:     &contract.ID,
		Allocations: []allocator.BulkAllocation{
			{FinancialItemID: item.ID, TransactionID: first.ID, Amount: dec("600")},
			{FinancialItemID: item.ID, TransactionID: second.ID, Amount: dec("550")},
			{FinancialItemID: item.ID, TransactionID: second.ID, Amount: dec("0")},
		},
	})

	suite.Assert().Equal(4, result.Success)
	suite.Assert().Equal(2, result.Errors)
	suite.Require().Len(result.Details, 2)
	suite.Assert().Equal(missing, *result.Details[0].TransactionID)
	suite.Assert().Equal(allocator.ErrAllocationAmount.Error(), result.Details[1].Error)

	updated := suite.assertConsistent(item.ID)
	suite.Assert().True(dec("1150").Equal(updated.Amount))
	suite.Assert().Equal(models.StatusPaid, updated.Status)

	for _, transaction := range []models.BankTransaction{first, second} {
		reloaded := suite.reload(transaction)
		suite.Assert().True(reloaded.IsCategorized)
		suite.Assert().Equal("rent_income", reloaded.Category)
		suite.Assert().Equal(contract.ID, *reloaded.ContractID)
	}
}

func (suite *TestSuiteStandard) TestBulkCategorizeUpdatesLink() {
	item := suite.createTestItem("1150")
	transaction := suite.createTestTransaction("1150")

	allocation := allocator.BulkAllocation{FinancialItemID: item.ID, TransactionID: transaction.ID, Amount: dec("1000")}
	result := allocator.BulkCategorize(context.Background(), models.DB, allocator.BulkRequest{Allocations: []allocator.BulkAllocation{allocation}})
	suite.Require().Equal(1, result.Success)

	allocation.Amount = dec("1150")
	result = allocator.BulkCategorize(context.Background(), models.DB, allocator.BulkRequest{Allocations: []allocator.BulkAllocation{allocation}})
	suite.Require().Equal(1, result.Success)

	links, err := item.Links(models.DB)
	suite.Require().Nil(err)
	suite.Require().Len(links, 1)
	suite.Assert().True(dec("1150").Equal(links[0].LinkedAmount))
	suite.Assert().Equal(models.StatusPaid, suite.assertConsistent(item.ID).Status)

	// Exceeding the transaction fails for this allocation only
	allocation.Amount = dec("2000")
	result = allocator.BulkCategorize(context.Background(), models.DB, allocator.BulkRequest{Allocations: []allocator.BulkAllocation{allocation}})
	suite.Assert().Equal(0, result.Success)
	suite.Assert().Equal(1, result.Errors)
	suite.Assert().True(dec("1150").Equal(suite.assertConsistent(item.ID).Amount))
}

func (suite *TestSuiteStandard) TestBulkUncategorize() {
	rent := suite.createTestItem("1150")
	deposit := suite.createTestItem("500")
	first := suite.createTestTransaction("600")
	second := suite.createTestTransaction("550")
	third := suite.createTestTransaction("500")

	_, err := allocator.ReplaceAllocations(context.Background(), models.DB, rent.ID, []allocator.Allocation{
		{TransactionID: first.ID, Amount: dec("600")},
		{TransactionID: second.ID, Amount: dec("550")},
	})
	suite.Require().Nil(err)

	_, err = allocator.ReplaceAllocations(context.Background(), models.DB, deposit.ID, []allocator.Allocation{
		{TransactionID: second.ID, Amount: dec("100")},
		{TransactionID: third.ID, Amount: dec("400")},
	})
	suite.Require().Nil(err)

	suite.Require().Nil(models.DB.Model(&first).Update("category", "rent_income").Error)

	result := allocator.BulkUncategorize(context.Background(), models.DB, []uuid.UUID{first.ID, second.ID, uuid.New()})
	suite.Assert().Equal(2, result.Success)
	suite.Assert().Equal(1, result.Errors)

	// Items are recomputed from their remaining links
	updatedRent := suite.assertConsistent(rent.ID)
	suite.Assert().True(updatedRent.Amount.IsZero())
	suite.Assert().Equal(models.StatusPending, updatedRent.Status)

	updatedDeposit := suite.assertConsistent(deposit.ID)
	suite.Assert().True(dec("400").Equal(updatedDeposit.Amount))
	suite.Assert().Equal(models.StatusPartial, updatedDeposit.Status)

	suite.Assert().False(suite.reload(first).IsCategorized)
	suite.Assert().Equal("", suite.reload(first).Category)
	suite.Assert().False(suite.reload(second).IsCategorized)
	suite.Assert().True(suite.reload(third).IsCategorized)
}

type fakeSuggester struct {
	suggestions func([]models.BankTransaction) []suggest.Suggestion
	err         error
}

func (f fakeSuggester) Suggest(_ context.Context, transactions []models.BankTransaction, _ []string) ([]suggest.Suggestion, error) {
	if f.err != nil {
		return nil, f.err
	}

	return f.suggestions(transactions), nil
}

func (suite *TestSuiteStandard) TestAutoCategorize() {
	rent := suite.createTestTransaction("1150")
	unclear := suite.createTestTransaction("-42")

	suggester := fakeSuggester{suggestions: func(transactions []models.BankTransaction) []suggest.Suggestion {
		suite.Require().Len(transactions, 2)
		return []suggest.Suggestion{
			{TransactionID: rent.ID, Category: "rent_income", Confidence: 80},
			{TransactionID: unclear.ID, Category: "maintenance", Confidence: 79},
		}
	}}

	result, err := allocator.AutoCategorize(context.Background(), models.DB, suggester, nil)
	suite.Require().Nil(err)
	suite.Require().Len(result.Applied, 1)
	suite.Require().Len(result.Pending, 1)
	suite.Assert().Equal(rent.ID, result.Applied[0].TransactionID)
	suite.Assert().Equal(unclear.ID, result.Pending[0].TransactionID)

	suite.Assert().Equal("rent_income", suite.reload(rent).Category)
	suite.Assert().Equal("", suite.reload(unclear).Category)

	// Categorized transactions are not sent again
	suggester.suggestions = func(transactions []models.BankTransaction) []suggest.Suggestion {
		suite.Require().Len(transactions, 1)
		suite.Assert().Equal(unclear.ID, transactions[0].ID)
		return nil
	}
	_, err = allocator.AutoCategorize(context.Background(), models.DB, suggester, nil)
	suite.Require().Nil(err)
}

func (suite *TestSuiteStandard) TestAutoCategorizeSelected() {
	selected := suite.createTestTransaction("1150")
	suite.createTestTransaction("-42")

	suggester := fakeSuggester{suggestions: func(transactions []models.BankTransaction) []suggest.Suggestion {
		suite.Require().Len(transactions, 1)
		return []suggest.Suggestion{{TransactionID: selected.ID, Category: "rent_income", Confidence: 100}}
	}}

	result, err := allocator.AutoCategorize(context.Background(), models.DB, suggester, []uuid.UUID{selected.ID})
	suite.Require().Nil(err)
	suite.Assert().Len(result.Applied, 1)
}

func (suite *TestSuiteStandard) TestAutoCategorizeSuggesterError() {
	suite.createTestTransaction("1150")

	_, err := allocator.AutoCategorize(context.Background(), models.DB, fakeSuggester{err: errors.New("quota exceeded")}, nil)
	suite.Assert().ErrorContains(err, "quota exceeded")
}
