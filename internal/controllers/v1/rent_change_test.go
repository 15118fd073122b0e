package v1_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	v1 "github.com/immoledger/backend/internal/controllers/v1"
	"github.com/immoledger/backend/internal/models"
	"github.com/immoledger/backend/test"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func (suite *TestSuiteStandard) TestRentChangesDBClosed() {
	contract := createTestContract(suite.T(), v1.ContractEditable{})
	suite.CloseDB()

	createTestRentChange(suite.T(), v1.RentChangeEditable{ContractID: contract.Data.ID}, http.StatusInternalServerError)

	r := test.Request(suite.T(), http.MethodGet, "http://example.com/v1/rent-changes", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusInternalServerError)
}

func (suite *TestSuiteStandard) TestRentChangesCreate() {
	rentChange := createTestRentChange(suite.T(), v1.RentChangeEditable{
		EffectiveDate: time.Date(2024, 7, 1, 14, 0, 0, 0, time.UTC),
		BaseRent:      decimal.NewFromInt(900),
		Utilities:     decimal.NewNullDecimal(decimal.NewFromInt(160)),
		Note:          "Indexmiete 2024",
	})

	assert.Equal(suite.T(), time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), rentChange.Data.EffectiveDate)
	assert.True(suite.T(), rentChange.Data.Utilities.Valid)
	assert.False(suite.T(), rentChange.Data.Heating.Valid, "Heating has been set without being sent")
	assert.Equal(suite.T(), fmt.Sprintf("http://example.com/v1/contracts/%s", rentChange.Data.ContractID), rentChange.Data.Links.Contract)
}

func (suite *TestSuiteStandard) TestRentChangesCreateFails() {
	contract := createTestContract(suite.T(), v1.ContractEditable{})

	tests := []struct {
		name     string
		body     any
		status   int
		contains string
	}{
		{"Broken body", `[{ "note": 2 }]`, http.StatusBadRequest, "json: cannot unmarshal number"},
		{"No effective date", []v1.RentChangeEditable{{ContractID: contract.Data.ID, BaseRent: decimal.NewFromInt(900)}}, http.StatusBadRequest, models.ErrRentChangeEffectiveDate.Error()},
		{
			"Non-existing contract",
			[]v1.RentChangeEditable{{ContractID: uuid.New(), EffectiveDate: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)}},
			http.StatusBadRequest,
			models.ErrInvalidReference.Error(),
		},
		{
			"Negative heating",
			[]v1.RentChangeEditable{{
				ContractID:    contract.Data.ID,
				EffectiveDate: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
				Heating:       decimal.NewNullDecimal(decimal.NewFromInt(-1)),
			}},
			http.StatusBadRequest,
			models.ErrNegativeAmount.Error(),
		},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(t, http.MethodPost, "http://example.com/v1/rent-changes", tt.body)
			test.AssertHTTPStatus(t, &r, tt.status)
			assert.Contains(t, r.Body.String(), tt.contains)
		})
	}
}

func (suite *TestSuiteStandard) TestRentChangesGetFilter() {
	contract := createTestContract(suite.T(), v1.ContractEditable{})

	createTestRentChange(suite.T(), v1.RentChangeEditable{
		ContractID:    contract.Data.ID,
		EffectiveDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Note:          "Staffel 2",
	})

	createTestRentChange(suite.T(), v1.RentChangeEditable{
		ContractID:    contract.Data.ID,
		EffectiveDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Note:          "Staffel 1",
	})

	// Another contract
	createTestRentChange(suite.T(), v1.RentChangeEditable{})

	tests := []struct {
		name  string
		query string
		len   int
		total int64
	}{
		{"All", "", 3, 3},
		{"Contract", fmt.Sprintf("contract=%s", contract.Data.ID), 2, 2},
		{"Unknown contract", fmt.Sprintf("contract=%s", uuid.New()), 0, 0},
		{"Note", "note=Staffel", 2, 2},
		{"Empty note", "note=", 1, 1},
		{"Limit", "limit=1", 1, 3},
		{"Offset", "offset=1", 2, 3},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(t, http.MethodGet, fmt.Sprintf("http://example.com/v1/rent-changes?%s", tt.query), "")
			test.AssertHTTPStatus(t, &r, http.StatusOK)

			var response v1.RentChangeListResponse
			test.DecodeResponse(t, &r, &response)
			assert.Len(t, response.Data, tt.len)
			assert.Equal(t, tt.total, response.Pagination.Total)
		})
	}

	// Ordered by effective date
	r := test.Request(suite.T(), http.MethodGet, fmt.Sprintf("http://example.com/v1/rent-changes?contract=%s", contract.Data.ID), "")
	var response v1.RentChangeListResponse
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Require().Len(response.Data, 2)
	suite.Assert().Equal("Staffel 1", response.Data[0].Note)
	suite.Assert().Equal("Staffel 2", response.Data[1].Note)
}

func (suite *TestSuiteStandard) TestRentChangesGetSingle() {
	rentChange := createTestRentChange(suite.T(), v1.RentChangeEditable{})

	tests := []struct {
		name   string
		id     string
		status int
		method string
	}{
		{"GET Existing", rentChange.Data.ID.String(), http.StatusOK, http.MethodGet},
		{"GET No Rent Change with this ID", uuid.New().String(), http.StatusNotFound, http.MethodGet},
		{"GET Invalid ID", "notaUUID", http.StatusBadRequest, http.MethodGet},
		{"PATCH No Rent Change with this ID", uuid.New().String(), http.StatusNotFound, http.MethodPatch},
		{"DELETE Invalid ID", "-56", http.StatusBadRequest, http.MethodDelete},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(t, tt.method, fmt.Sprintf("http://example.com/v1/rent-changes/%s", tt.id), "")
			test.AssertHTTPStatus(t, &r, tt.status)
		})
	}
}

func (suite *TestSuiteStandard) TestRentChangesUpdate() {
	rentChange := createTestRentChange(suite.T(), v1.RentChangeEditable{
		Heating: decimal.NewNullDecimal(decimal.NewFromInt(95)),
	})

	r := test.Request(suite.T(), http.MethodPatch, rentChange.Data.Links.Self, map[string]any{
		"baseRent": "920",
		"heating":  nil,
	})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var updated v1.RentChangeResponse
	test.DecodeResponse(suite.T(), &r, &updated)

	assert.True(suite.T(), updated.Data.BaseRent.Equal(decimal.NewFromInt(920)))
	assert.False(suite.T(), updated.Data.Heating.Valid, "Heating has not been reset")
	assert.Equal(suite.T(), rentChange.Data.EffectiveDate, updated.Data.EffectiveDate)
	assert.Equal(suite.T(), rentChange.Data.ContractID, updated.Data.ContractID)

	r = test.Request(suite.T(), http.MethodPatch, rentChange.Data.Links.Self, map[string]any{"contractId": uuid.New()})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestRentChangesDelete() {
	rentChange := createTestRentChange(suite.T(), v1.RentChangeEditable{})

	r := test.Request(suite.T(), http.MethodDelete, rentChange.Data.Links.Self, "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNoContent)

	r = test.Request(suite.T(), http.MethodGet, rentChange.Data.Links.Self, "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNotFound)
}
