package v1_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	v1 "github.com/immoledger/backend/internal/controllers/v1"
	"github.com/immoledger/backend/internal/types"
	"github.com/immoledger/backend/test"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// now is the fixed time used by controllers in tests that depend on the date.
var now = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

// controllerAt returns a controller that uses the time passed as now.
func controllerAt(t time.Time) v1.Controller {
	return v1.Controller{
		Throttle: rate.NewLimiter(rate.Inf, 0),
		Now:      func() time.Time { return t },
	}
}

func ptr[T any](v T) *T {
	return &v
}

func createTestContract(t *testing.T, c v1.ContractEditable, expectedStatus ...int) v1.ContractResponse {
	if c.TenantID == uuid.Nil {
		c.TenantID = uuid.New()
	}

	if c.UnitID == uuid.Nil {
		c.UnitID = uuid.New()
	}

	if c.StartDate.IsZero() {
		c.StartDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		c.EndDate = ptr(time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC))
	}

	if c.BaseRent.IsZero() {
		c.BaseRent = decimal.NewFromInt(850)
		c.Utilities = decimal.NewFromInt(150)
		c.Heating = decimal.NewFromInt(80)
	}

	// Default to 201 Created as expected status
	if len(expectedStatus) == 0 {
		expectedStatus = append(expectedStatus, http.StatusCreated)
	}

	body := []v1.ContractEditable{c}

	r := test.Request(t, http.MethodPost, "http://example.com/v1/contracts", body)
	test.AssertHTTPStatus(t, &r, expectedStatus...)

	var contract v1.ContractCreateResponse
	test.DecodeResponse(t, &r, &contract)

	if r.Code == http.StatusCreated {
		return contract.Data[0]
	}

	return v1.ContractResponse{}
}

func createTestRentChange(t *testing.T, c v1.RentChangeEditable, expectedStatus ...int) v1.RentChangeResponse {
	if c.ContractID == uuid.Nil {
		c.ContractID = createTestContract(t, v1.ContractEditable{}).Data.ID
	}

	if c.EffectiveDate.IsZero() {
		c.EffectiveDate = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	}

	if c.BaseRent.IsZero() {
		c.BaseRent = decimal.NewFromInt(900)
	}

	// Default to 201 Created as expected status
	if len(expectedStatus) == 0 {
		expectedStatus = append(expectedStatus, http.StatusCreated)
	}

	body := []v1.RentChangeEditable{c}

	r := test.Request(t, http.MethodPost, "http://example.com/v1/rent-changes", body)
	test.AssertHTTPStatus(t, &r, expectedStatus...)

	var rentChange v1.RentChangeCreateResponse
	test.DecodeResponse(t, &r, &rentChange)

	if r.Code == http.StatusCreated {
		return rentChange.Data[0]
	}

	return v1.RentChangeResponse{}
}

func createTestFinancialItem(t *testing.T, c v1.FinancialItemEditable, expectedStatus ...int) v1.FinancialItemResponse {
	if c.PaymentMonth.IsZero() {
		c.PaymentMonth = types.NewMonth(2024, time.May)
	}

	if c.Category == "" {
		c.Category = "maintenance"
	}

	if c.ExpectedAmount.IsZero() {
		c.ExpectedAmount = decimal.NewFromInt(1080)
	}

	// Default to 201 Created as expected status
	if len(expectedStatus) == 0 {
		expectedStatus = append(expectedStatus, http.StatusCreated)
	}

	body := []v1.FinancialItemEditable{c}

	r := test.Request(t, http.MethodPost, "http://example.com/v1/financial-items", body)
	test.AssertHTTPStatus(t, &r, expectedStatus...)

	var item v1.FinancialItemCreateResponse
	test.DecodeResponse(t, &r, &item)

	if r.Code == http.StatusCreated {
		return item.Data[0]
	}

	return v1.FinancialItemResponse{}
}

func createTestBankTransaction(t *testing.T, c v1.BankTransactionEditable, expectedStatus ...int) v1.BankTransactionResponse {
	if c.Amount.IsZero() {
		c.Amount = decimal.NewFromInt(1080)
	}

	if c.TransactionDate.IsZero() {
		c.TransactionDate = time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	}

	// Default to 201 Created as expected status
	if len(expectedStatus) == 0 {
		expectedStatus = append(expectedStatus, http.StatusCreated)
	}

	body := []v1.BankTransactionEditable{c}

	r := test.Request(t, http.MethodPost, "http://example.com/v1/bank-transactions", body)
	test.AssertHTTPStatus(t, &r, expectedStatus...)

	var transaction v1.BankTransactionCreateResponse
	test.DecodeResponse(t, &r, &transaction)

	if r.Code == http.StatusCreated {
		return transaction.Data[0]
	}

	return v1.BankTransactionResponse{}
}

func createTestCategorizationRule(t *testing.T, c v1.CategorizationRuleEditable, expectedStatus ...int) v1.CategorizationRuleResponse {
	if c.Category == "" {
		c.Category = "rent_income"
	}

	// Default to 201 Created as expected status
	if len(expectedStatus) == 0 {
		expectedStatus = append(expectedStatus, http.StatusCreated)
	}

	body := []v1.CategorizationRuleEditable{c}

	r := test.Request(t, http.MethodPost, "http://example.com/v1/categorization-rules", body)
	test.AssertHTTPStatus(t, &r, expectedStatus...)

	var rule v1.CategorizationRuleCreateResponse
	test.DecodeResponse(t, &r, &rule)

	if r.Code == http.StatusCreated {
		return rule.Data[0]
	}

	return v1.CategorizationRuleResponse{}
}

// generateItems generates the financial items of the contract and returns
// the number of created items.
func generateItems(t *testing.T, id uuid.UUID, body any) int {
	if body == nil {
		body = ""
	}

	r := test.RequestWithController(t, controllerAt(now), http.MethodPost, "http://example.com/v1/contracts/"+id.String()+"/generate", body)
	test.AssertHTTPStatus(t, &r, http.StatusOK)

	var response v1.GenerateResponse
	test.DecodeResponse(t, &r, &response)

	return response.Data.Created
}
