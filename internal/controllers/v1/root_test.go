package v1_test

import (
	"net/http"
	"time"

	v1 "github.com/immoledger/backend/internal/controllers/v1"
	"github.com/immoledger/backend/internal/models"
	"github.com/immoledger/backend/test"
	"github.com/stretchr/testify/assert"
)

func (suite *TestSuiteStandard) TestRoot() {
	r := test.Request(suite.T(), http.MethodGet, "http://example.com/v1", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.Response
	test.DecodeResponse(suite.T(), &r, &response)

	assert.Equal(suite.T(), v1.Links{
		Contracts:           "http://example.com/v1/contracts",
		RentChanges:         "http://example.com/v1/rent-changes",
		FinancialItems:      "http://example.com/v1/financial-items",
		BankTransactions:    "http://example.com/v1/bank-transactions",
		CategorizationRules: "http://example.com/v1/categorization-rules",
		Regenerate:          "http://example.com/v1/regenerate",
	}, response.Links)
}

func (suite *TestSuiteStandard) TestRootOptions() {
	r := test.Request(suite.T(), http.MethodOptions, "http://example.com/v1", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNoContent)
	assert.Equal(suite.T(), "OPTIONS, GET, DELETE", r.Header().Get("allow"))
}

func (suite *TestSuiteStandard) TestCleanup() {
	contract := createTestContract(suite.T(), v1.ContractEditable{})
	createTestRentChange(suite.T(), v1.RentChangeEditable{ContractID: contract.Data.ID})
	generateItems(suite.T(), contract.Data.ID, nil)
	createTestBankTransaction(suite.T(), v1.BankTransactionEditable{})
	createTestCategorizationRule(suite.T(), v1.CategorizationRuleEditable{Match: "*Miete*"})

	r := test.Request(suite.T(), http.MethodDelete, "http://example.com/v1?confirm=yes-please-delete-everything", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNoContent)

	for _, model := range []any{
		&models.Contract{},
		&models.RentChange{},
		&models.FinancialItem{},
		&models.FinancialItemLink{},
		&models.BankTransaction{},
		&models.CategorizationRule{},
	} {
		var count int64
		suite.Assert().Nil(models.DB.Unscoped().Model(model).Count(&count).Error)
		suite.Assert().Equal(int64(0), count, "Resources of type %T have not been deleted", model)
	}
}

func (suite *TestSuiteStandard) TestCleanupFails() {
	tests := []struct {
		name string
		path string
	}{
		{"Invalid path", "http://example.com/v1?confirm=invalid-confirmation"},
		{"Confirmation missing", "http://example.com/v1"},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			r := test.Request(suite.T(), http.MethodDelete, tt.path, "")
			test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)
		})
	}
}

func (suite *TestSuiteStandard) TestCleanupDBClosed() {
	suite.CloseDB()

	r := test.Request(suite.T(), http.MethodDelete, "http://example.com/v1?confirm=yes-please-delete-everything", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusInternalServerError)
}

func (suite *TestSuiteStandard) TestRegenerateAll() {
	// Active at now
	active := createTestContract(suite.T(), v1.ContractEditable{})
	generateItems(suite.T(), active.Data.ID, nil)

	// Ended before now
	createTestContract(suite.T(), v1.ContractEditable{
		StartDate: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   ptr(time.Date(2022, 12, 31, 0, 0, 0, 0, time.UTC)),
	})

	r := test.RequestWithController(suite.T(), controllerAt(now), http.MethodPost, "http://example.com/v1/regenerate", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.RegenerateResponse
	test.DecodeResponse(suite.T(), &r, &response)

	// All six pending items of the active contract are generated again
	suite.Assert().Equal(6, response.Data.Created)

	var count int64
	suite.Assert().Nil(models.DB.Model(&models.FinancialItem{}).Count(&count).Error)
	suite.Assert().Equal(int64(6), count)
}

func (suite *TestSuiteStandard) TestRegenerateAllDBClosed() {
	suite.CloseDB()

	r := test.Request(suite.T(), http.MethodPost, "http://example.com/v1/regenerate", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusInternalServerError)
}
