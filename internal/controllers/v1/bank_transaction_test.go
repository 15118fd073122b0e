package v1_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	v1 "github.com/immoledger/backend/internal/controllers/v1"
	"github.com/immoledger/backend/internal/allocator"
	"github.com/immoledger/backend/internal/models"
	"github.com/immoledger/backend/internal/suggest"
	"github.com/immoledger/backend/test"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedSuggester proposes the same category with the same confidence for
// every transaction.
type fixedSuggester struct {
	category   string
	confidence int
	err        error
}

func (s fixedSuggester) Suggest(_ context.Context, transactions []models.BankTransaction, _ []string) ([]suggest.Suggestion, error) {
	if s.err != nil {
		return nil, s.err
	}

	suggestions := make([]suggest.Suggestion, 0, len(transactions))
	for _, t := range transactions {
		suggestions = append(suggestions, suggest.Suggestion{
			TransactionID: t.ID,
			Category:      s.category,
			Confidence:    s.confidence,
			Reason:        "test",
		})
	}

	return suggestions, nil
}

func (suite *TestSuiteStandard) TestBankTransactionsDBClosed() {
	suite.CloseDB()

	createTestBankTransaction(suite.T(), v1.BankTransactionEditable{}, http.StatusInternalServerError)

	r := test.Request(suite.T(), http.MethodGet, "http://example.com/v1/bank-transactions", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusInternalServerError)
}

func (suite *TestSuiteStandard) TestBankTransactionsCreate() {
	contract := createTestContract(suite.T(), v1.ContractEditable{})

	transaction := createTestBankTransaction(suite.T(), v1.BankTransactionEditable{
		Amount:          decimal.RequireFromString("-80.50"),
		TransactionDate: time.Date(2024, 5, 3, 17, 22, 0, 0, time.UTC),
		SenderReceiver:  "Stadtwerke München",
		ContractID:      &contract.Data.ID,
	})

	assert.Equal(suite.T(), time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), transaction.Data.TransactionDate)
	assert.Equal(suite.T(), "EUR", transaction.Data.Currency)
	assert.False(suite.T(), transaction.Data.IsCategorized)
	assert.Nil(suite.T(), transaction.Data.ImportHash, "Manually created transaction has an import hash")
	assert.Equal(suite.T(), contract.Data.Links.Self, transaction.Data.Links.Contract)
}

func (suite *TestSuiteStandard) TestBankTransactionsCreateFails() {
	tests := []struct {
		name     string
		body     any
		contains string
	}{
		{"Broken body", `[{ "senderReceiver": true }]`, "json: cannot unmarshal bool"},
		{"Empty body", "", "the request body must not be empty"},
		{"Non-existing contract", []v1.BankTransactionEditable{{Amount: decimal.NewFromInt(5), ContractID: ptr(uuid.New())}}, models.ErrInvalidReference.Error()},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(t, http.MethodPost, "http://example.com/v1/bank-transactions", tt.body)
			test.AssertHTTPStatus(t, &r, http.StatusBadRequest)
			assert.Contains(t, r.Body.String(), tt.contains)
		})
	}
}

func (suite *TestSuiteStandard) TestBankTransactionsGetFilter() {
	contract := createTestContract(suite.T(), v1.ContractEditable{})

	createTestBankTransaction(suite.T(), v1.BankTransactionEditable{
		Amount:          decimal.NewFromInt(1150),
		TransactionDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		SenderReceiver:  "Erika Mustermann",
		Description:     "Miete Mai 2024 Whg 3",
		Category:        "rent_income",
		ContractID:      &contract.Data.ID,
		UnitID:          &contract.Data.UnitID,
	})

	createTestBankTransaction(suite.T(), v1.BankTransactionEditable{
		Amount:          decimal.RequireFromString("-80.50"),
		TransactionDate: time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC),
		SenderReceiver:  "Stadtwerke München",
		Reference:       "ABSCHLAG-2024-05",
		Category:        "utilities",
	})

	createTestBankTransaction(suite.T(), v1.BankTransactionEditable{
		Amount:          decimal.NewFromInt(500),
		TransactionDate: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		SenderReceiver:  "Max Mustermann",
		Description:     "Kaution Rate 1/3",
	})

	tests := []struct {
		name  string
		query string
		len   int
	}{
		{"All", "", 3},
		{"Category", "category=utilities", 1},
		{"Empty category", "category=", 1},
		{"Contract", fmt.Sprintf("contract=%s", contract.Data.ID), 1},
		{"Unit", fmt.Sprintf("unit=%s", contract.Data.UnitID), 1},
		{"Not categorized", "categorized=false", 3},
		{"Categorized", "categorized=true", 0},
		{"From date", "fromDate=2024-05-03", 2},
		{"Until date", "untilDate=2024-05-03", 2},
		{"Date range", "fromDate=2024-05-02&untilDate=2024-06-14", 1},
		{"Amount more or equal", "amountMoreOrEqual=500", 2},
		{"Amount less or equal", "amountLessOrEqual=0", 1},
		{"Amount range", "amountMoreOrEqual=-100&amountLessOrEqual=500", 2},
		{"Search sender", "search=Mustermann", 2},
		{"Search description", "search=Whg%203", 1},
		{"Search reference", "search=ABSCHLAG", 1},
		{"Limit", "limit=1", 1},
		{"Offset", "offset=2", 1},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(t, http.MethodGet, fmt.Sprintf("http://example.com/v1/bank-transactions?%s", tt.query), "")
			test.AssertHTTPStatus(t, &r, http.StatusOK)

			var response v1.BankTransactionListResponse
			test.DecodeResponse(t, &r, &response)
			assert.Len(t, response.Data, tt.len)
		})
	}

	// Newest first
	r := test.Request(suite.T(), http.MethodGet, "http://example.com/v1/bank-transactions", "")
	var response v1.BankTransactionListResponse
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Require().Len(response.Data, 3)
	suite.Assert().Equal("Max Mustermann", response.Data[0].SenderReceiver)
}

func (suite *TestSuiteStandard) TestBankTransactionsGetInvalidFilter() {
	for _, query := range []string{"fromDate=2024-13-01", "amountMoreOrEqual=many", "categorized=perhaps", "unit=notaUUID"} {
		suite.T().Run(query, func(t *testing.T) {
			r := test.Request(t, http.MethodGet, fmt.Sprintf("http://example.com/v1/bank-transactions?%s", query), "")
			test.AssertHTTPStatus(t, &r, http.StatusBadRequest)
		})
	}
}

func (suite *TestSuiteStandard) TestBankTransactionsGetSingle() {
	transaction := createTestBankTransaction(suite.T(), v1.BankTransactionEditable{})

	tests := []struct {
		name   string
		id     string
		status int
		method string
	}{
		{"GET Existing", transaction.Data.ID.String(), http.StatusOK, http.MethodGet},
		{"GET No Bank Transaction with this ID", uuid.New().String(), http.StatusNotFound, http.MethodGet},
		{"GET Invalid ID", "notaUUID", http.StatusBadRequest, http.MethodGet},
		{"PATCH No Bank Transaction with this ID", uuid.New().String(), http.StatusNotFound, http.MethodPatch},
		{"DELETE No Bank Transaction with this ID", uuid.New().String(), http.StatusNotFound, http.MethodDelete},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(t, tt.method, fmt.Sprintf("http://example.com/v1/bank-transactions/%s", tt.id), "")
			test.AssertHTTPStatus(t, &r, tt.status)
		})
	}
}

func (suite *TestSuiteStandard) TestBankTransactionsUpdate() {
	transaction := createTestBankTransaction(suite.T(), v1.BankTransactionEditable{Description: "Miete"})

	r := test.Request(suite.T(), http.MethodPatch, transaction.Data.Links.Self, map[string]any{
		"description": "Miete Mai",
		"category":    "rent_income",
	})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var updated v1.BankTransactionResponse
	test.DecodeResponse(suite.T(), &r, &updated)
	assert.Equal(suite.T(), "Miete Mai", updated.Data.Description)
	assert.Equal(suite.T(), "rent_income", updated.Data.Category)
	assert.True(suite.T(), updated.Data.Amount.Equal(transaction.Data.Amount))
}

func (suite *TestSuiteStandard) TestBankTransactionsUpdateBelowAllocation() {
	item := createTestFinancialItem(suite.T(), v1.FinancialItemEditable{})
	transaction := createTestBankTransaction(suite.T(), v1.BankTransactionEditable{})

	r := test.Request(suite.T(), http.MethodPut, item.Data.Links.Allocations, []allocator.Allocation{
		{TransactionID: transaction.Data.ID, Amount: decimal.NewFromInt(1000)},
	})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	// The sign does not matter
	r = test.Request(suite.T(), http.MethodPatch, transaction.Data.Links.Self, map[string]any{"amount": "-1000"})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	r = test.Request(suite.T(), http.MethodPatch, transaction.Data.Links.Self, map[string]any{"amount": "999.99"})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)
	assert.Contains(suite.T(), r.Body.String(), allocator.ErrLinkExceedsTransaction.Error())
}

func (suite *TestSuiteStandard) TestBankTransactionsDelete() {
	item := createTestFinancialItem(suite.T(), v1.FinancialItemEditable{})
	transaction := createTestBankTransaction(suite.T(), v1.BankTransactionEditable{})

	r := test.Request(suite.T(), http.MethodPut, item.Data.Links.Allocations, []allocator.Allocation{
		{TransactionID: transaction.Data.ID, Amount: decimal.NewFromInt(1080)},
	})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	r = test.Request(suite.T(), http.MethodDelete, transaction.Data.Links.Self, "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNoContent)

	r = test.Request(suite.T(), http.MethodGet, transaction.Data.Links.Self, "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNotFound)

	// The item is not paid anymore
	r = test.Request(suite.T(), http.MethodGet, item.Data.Links.Self, "")
	var response v1.FinancialItemResponse
	test.DecodeResponse(suite.T(), &r, &response)
	assert.True(suite.T(), response.Data.Amount.IsZero(), response.Data.Amount.String())
	assert.Equal(suite.T(), models.StatusPending, response.Data.Status)
}

func (suite *TestSuiteStandard) TestBankTransactionsCategorize() {
	contract := createTestContract(suite.T(), v1.ContractEditable{})
	item := createTestFinancialItem(suite.T(), v1.FinancialItemEditable{})
	first := createTestBankTransaction(suite.T(), v1.BankTransactionEditable{Amount: decimal.NewFromInt(600)})
	second := createTestBankTransaction(suite.T(), v1.BankTransactionEditable{Amount: decimal.NewFromInt(480)})
	missing := uuid.New()

	r := test.Request(suite.T(), http.MethodPost, "http://example.com/v1/bank-transactions/categorize", allocator.BulkRequest{
		TransactionIDs: []uuid.UUID{first.Data.ID, second.Data.ID, missing},
		Category:       "rent_income",
		ContractID:     &contract.Data.ID,
		Allocations: []allocator.BulkAllocation{
			{FinancialItemID: item.Data.ID, TransactionID: first.Data.ID, Amount: decimal.NewFromInt(600)},
			{FinancialItemID: item.Data.ID, TransactionID: second.Data.ID, Amount: decimal.NewFromInt(480)},
			{FinancialItemID: item.Data.ID, TransactionID: second.Data.ID, Amount: decimal.NewFromInt(481)},
		},
	})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.BulkResponse
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Assert().Equal(4, response.Data.Success)
	suite.Assert().Equal(2, response.Data.Errors)
	require.Len(suite.T(), response.Data.Details, 2)
	suite.Assert().Equal(missing, *response.Data.Details[0].TransactionID)
	suite.Assert().Contains(response.Data.Details[1].Error, allocator.ErrLinkExceedsTransaction.Error())

	var transaction models.BankTransaction
	require.Nil(suite.T(), models.DB.First(&transaction, first.Data.ID).Error)
	assert.Equal(suite.T(), "rent_income", transaction.Category)
	assert.Equal(suite.T(), contract.Data.ID, *transaction.ContractID)
	assert.True(suite.T(), transaction.IsCategorized)

	r = test.Request(suite.T(), http.MethodGet, item.Data.Links.Self, "")
	var itemResponse v1.FinancialItemResponse
	test.DecodeResponse(suite.T(), &r, &itemResponse)
	assert.Equal(suite.T(), models.StatusPaid, itemResponse.Data.Status)

	// Uncategorize the first one again
	r = test.Request(suite.T(), http.MethodPost, "http://example.com/v1/bank-transactions/uncategorize", v1.TransactionIDsRequest{
		TransactionIDs: []uuid.UUID{first.Data.ID},
	})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Assert().Equal(1, response.Data.Success)
	suite.Assert().Equal(0, response.Data.Errors)

	require.Nil(suite.T(), models.DB.First(&transaction, first.Data.ID).Error)
	assert.Equal(suite.T(), "", transaction.Category)
	assert.False(suite.T(), transaction.IsCategorized)

	r = test.Request(suite.T(), http.MethodGet, item.Data.Links.Self, "")
	test.DecodeResponse(suite.T(), &r, &itemResponse)
	assert.Equal(suite.T(), models.StatusPartial, itemResponse.Data.Status)
	assert.True(suite.T(), itemResponse.Data.Amount.Equal(decimal.NewFromInt(480)), itemResponse.Data.Amount.String())
}

func (suite *TestSuiteStandard) TestBankTransactionsCategorizeInvalidBody() {
	for _, url := range []string{"http://example.com/v1/bank-transactions/categorize", "http://example.com/v1/bank-transactions/uncategorize"} {
		r := test.Request(suite.T(), http.MethodPost, url, `{ "transactionIds": "all" }`)
		test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)
	}
}

func (suite *TestSuiteStandard) TestBankTransactionsSuggestions() {
	first := createTestBankTransaction(suite.T(), v1.BankTransactionEditable{SenderReceiver: "Erika Mustermann"})
	createTestBankTransaction(suite.T(), v1.BankTransactionEditable{SenderReceiver: "Stadtwerke"})

	co := controllerAt(now)
	co.Suggester = fixedSuggester{category: "rent_income", confidence: 95}

	// Only the transaction passed
	r := test.RequestWithController(suite.T(), co, http.MethodPost, "http://example.com/v1/bank-transactions/suggestions", v1.TransactionIDsRequest{
		TransactionIDs: []uuid.UUID{first.Data.ID},
	})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.SuggestionResponse
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Assert().Len(response.Data.Applied, 1)
	suite.Assert().Len(response.Data.Pending, 0)

	// Without body, all transactions without category are processed
	co.Suggester = fixedSuggester{category: "utilities", confidence: 50}
	r = test.RequestWithController(suite.T(), co, http.MethodPost, "http://example.com/v1/bank-transactions/suggestions", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Assert().Len(response.Data.Applied, 0)
	suite.Require().Len(response.Data.Pending, 1, "Suggestions with low confidence must be confirmed")
	suite.Assert().Equal("utilities", response.Data.Pending[0].Category)

	var transaction models.BankTransaction
	require.Nil(suite.T(), models.DB.First(&transaction, first.Data.ID).Error)
	assert.Equal(suite.T(), "rent_income", transaction.Category)
}

func (suite *TestSuiteStandard) TestBankTransactionsSuggestionsRules() {
	transaction := createTestBankTransaction(suite.T(), v1.BankTransactionEditable{Description: "Miete Mai 2024 Whg 3"})
	createTestCategorizationRule(suite.T(), v1.CategorizationRuleEditable{Match: "*Whg 3*", Category: "rent_income"})

	r := test.Request(suite.T(), http.MethodPost, "http://example.com/v1/bank-transactions/suggestions", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.SuggestionResponse
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Require().Len(response.Data.Applied, 1)
	suite.Assert().Equal(transaction.Data.ID, response.Data.Applied[0].TransactionID)
}

func (suite *TestSuiteStandard) TestBankTransactionsSuggestionsFail() {
	createTestBankTransaction(suite.T(), v1.BankTransactionEditable{})

	co := controllerAt(now)
	co.Suggester = fixedSuggester{err: errors.New("the model is not available")}

	r := test.RequestWithController(suite.T(), co, http.MethodPost, "http://example.com/v1/bank-transactions/suggestions", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusInternalServerError)
	assert.Contains(suite.T(), r.Body.String(), "the model is not available")

	r = test.RequestWithController(suite.T(), co, http.MethodPost, "http://example.com/v1/bank-transactions/suggestions", `{ "transactionIds": 5 }`)
	test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestBankTransactionsImport() {
	body, headers := test.LoadTestFile(suite.T(), "importer/bankcsv/statement.csv")

	r := test.Request(suite.T(), http.MethodPost, "http://example.com/v1/bank-transactions/import", body, headers)
	test.AssertHTTPStatus(suite.T(), &r, http.StatusCreated)

	var response v1.ImportResponse
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Assert().Equal(3, response.Data.Imported)
	suite.Assert().Equal(0, response.Data.Duplicates)

	// Importing the same statement again does not create duplicates
	body, headers = test.LoadTestFile(suite.T(), "importer/bankcsv/statement.csv")
	r = test.Request(suite.T(), http.MethodPost, "http://example.com/v1/bank-transactions/import", body, headers)
	test.AssertHTTPStatus(suite.T(), &r, http.StatusCreated)
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Assert().Equal(0, response.Data.Imported)
	suite.Assert().Equal(3, response.Data.Duplicates)

	var count int64
	suite.Assert().Nil(models.DB.Model(&models.BankTransaction{}).Count(&count).Error)
	suite.Assert().Equal(int64(3), count)
}

func (suite *TestSuiteStandard) TestBankTransactionsImportFails() {
	tests := []struct {
		name     string
		file     string
		upload   string
		contains string
	}{
		{"Wrong suffix", "importer/bankcsv/statement.csv", "statement.pdf", "this endpoint only supports files of the following types: .csv"},
		{"Parse error", "importer/bankcsv/error-amount.csv", "error-amount.csv", "could not be parsed to a decimal"},
		{"Missing column", "importer/bankcsv/error-missing-column.csv", "error-missing-column.csv", "the CSV file is missing a required column"},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			body, headers := test.UploadFile(t, tt.file, tt.upload)

			r := test.Request(t, http.MethodPost, "http://example.com/v1/bank-transactions/import", body, headers)
			test.AssertHTTPStatus(t, &r, http.StatusBadRequest)
			assert.Contains(t, r.Body.String(), tt.contains)
		})
	}
}

func (suite *TestSuiteStandard) TestBankTransactionsImportNoFile() {
	r := test.Request(suite.T(), http.MethodPost, "http://example.com/v1/bank-transactions/import", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)
	assert.Contains(suite.T(), r.Body.String(), "you must send a file to this endpoint")
}
