package v1

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/immoledger/backend/internal/generator"
	"github.com/immoledger/backend/internal/models"
	ez_uuid "github.com/immoledger/backend/internal/uuid"
	"github.com/shopspring/decimal"
)

// ContractEditable represents all user configurable parameters
type ContractEditable struct {
	TenantID            uuid.UUID       `json:"tenantId" example:"2a4d3e5c-0b44-4c2f-9f41-1a3c0d3d7d5e"`           // ID of the tenant
	UnitID              uuid.UUID       `json:"unitId" example:"8c7c2a8f-3b77-4e5c-a0f5-3f6a9d2e1b4c"`             // ID of the rental unit
	StartDate           time.Time       `json:"startDate" example:"2024-01-15T00:00:00Z"`                          // Start of the lease
	EndDate             *time.Time      `json:"endDate" example:"2025-12-31T00:00:00Z"`                            // End of a fixed-term lease
	TerminationDate     *time.Time      `json:"terminationDate" example:"2025-06-30T00:00:00Z"`                    // Date the lease has been terminated for
	ContractDate        *time.Time      `json:"contractDate" example:"2023-12-01T00:00:00Z"`                       // Date the contract was signed
	BaseRent            decimal.Decimal `json:"baseRent" example:"850" swaggertype:"string"`                       // Base rent (Kaltmiete)
	Utilities           decimal.Decimal `json:"utilities" example:"150" swaggertype:"string"`                      // Advance payment for utilities
	Heating             decimal.Decimal `json:"heating" example:"80" swaggertype:"string"`                         // Advance payment for heating
	Deposit             decimal.Decimal `json:"deposit" example:"2550" swaggertype:"string"`                       // Security deposit (Kaution)
	DepositInstallments int             `json:"depositInstallments" example:"3" default:"1"`                       // Number of installments for the deposit
	RentDueDay          int             `json:"rentDueDay" example:"3"`                                            // Day of the month the rent is due. 0 means the first
	Currency            string          `json:"currency" example:"EUR" default:"EUR"`                              // ISO 4217 currency code
	Note                string          `json:"note" example:"Whg 3, 2. OG links" default:""`                      // A note about the contract
}

func (editable ContractEditable) model() models.Contract {
	return models.Contract{
		TenantID:            editable.TenantID,
		UnitID:              editable.UnitID,
		StartDate:           editable.StartDate,
		EndDate:             editable.EndDate,
		TerminationDate:     editable.TerminationDate,
		ContractDate:        editable.ContractDate,
		BaseRent:            editable.BaseRent,
		Utilities:           editable.Utilities,
		Heating:             editable.Heating,
		Deposit:             editable.Deposit,
		DepositInstallments: editable.DepositInstallments,
		RentDueDay:          editable.RentDueDay,
		Currency:            editable.Currency,
		Note:                editable.Note,
	}
}

type ContractLinks struct {
	Self              string `json:"self" example:"https://example.com/api/v1/contracts/3b1ea324-d438-4419-882a-2fc91d71772f"`                                 // The contract itself
	RentChanges       string `json:"rentChanges" example:"https://example.com/api/v1/rent-changes?contract=3b1ea324-d438-4419-882a-2fc91d71772f"`              // Rent changes of the contract
	FinancialItems    string `json:"financialItems" example:"https://example.com/api/v1/financial-items?contract=3b1ea324-d438-4419-882a-2fc91d71772f"`        // Financial items of the contract
	Generate          string `json:"generate" example:"https://example.com/api/v1/contracts/3b1ea324-d438-4419-882a-2fc91d71772f/generate"`                   // Generates missing financial items
	Regenerate        string `json:"regenerate" example:"https://example.com/api/v1/contracts/3b1ea324-d438-4419-882a-2fc91d71772f/regenerate"`               // Regenerates pending financial items
	UpdateFutureItems string `json:"updateFutureItems" example:"https://example.com/api/v1/contracts/3b1ea324-d438-4419-882a-2fc91d71772f/update-future-items"` // Updates pending future financial items in place
}

type Contract struct {
	models.DefaultModel
	ContractEditable
	Links ContractLinks `json:"links"`

	// These fields are computed
	TotalRent decimal.Decimal `json:"totalRent" example:"1080" swaggertype:"string"` // Base rent, utilities and heating
	Active    bool            `json:"active" example:"true"`                         // Is the contract active today?
}

func newContract(c *gin.Context, model models.Contract, now time.Time) Contract {
	url := c.GetString(string(models.DBContextURL))

	return Contract{
		DefaultModel: model.DefaultModel,
		ContractEditable: ContractEditable{
			TenantID:            model.TenantID,
			UnitID:              model.UnitID,
			StartDate:           model.StartDate,
			EndDate:             model.EndDate,
			TerminationDate:     model.TerminationDate,
			ContractDate:        model.ContractDate,
			BaseRent:            model.BaseRent,
			Utilities:           model.Utilities,
			Heating:             model.Heating,
			Deposit:             model.Deposit,
			DepositInstallments: model.DepositInstallments,
			RentDueDay:          model.RentDueDay,
			Currency:            model.Currency,
			Note:                model.Note,
		},
		Links: ContractLinks{
			Self:              fmt.Sprintf("%s/v1/contracts/%s", url, model.ID),
			RentChanges:       fmt.Sprintf("%s/v1/rent-changes?contract=%s", url, model.ID),
			FinancialItems:    fmt.Sprintf("%s/v1/financial-items?contract=%s", url, model.ID),
			Generate:          fmt.Sprintf("%s/v1/contracts/%s/generate", url, model.ID),
			Regenerate:        fmt.Sprintf("%s/v1/contracts/%s/regenerate", url, model.ID),
			UpdateFutureItems: fmt.Sprintf("%s/v1/contracts/%s/update-future-items", url, model.ID),
		},
		TotalRent: model.TotalRent(),
		Active:    model.ActiveAt(now),
	}
}

type ContractListResponse struct {
	Data       []Contract  `json:"data"`                                                          // List of Contracts
	Error      *string     `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination `json:"pagination"`                                                    // Pagination information
}

type ContractCreateResponse struct {
	Data  []ContractResponse `json:"data"`                                                          // List of the created Contracts or their respective error
	Error *string            `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

func (c *ContractCreateResponse) appendError(err error, currentStatus int) int {
	s := err.Error()
	c.Data = append(c.Data, ContractResponse{Error: &s})

	// The final status code is the highest HTTP status code number
	newStatus := status(err)
	if newStatus > currentStatus {
		return newStatus
	}

	return currentStatus
}

type ContractResponse struct {
	Data  *Contract `json:"data"`                                                          // Data for the Contract
	Error *string   `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type ContractQueryFilter struct {
	TenantID ez_uuid.UUID `form:"tenant" filterField:"false"` // By ID of the tenant
	UnitID   ez_uuid.UUID `form:"unit" filterField:"false"`   // By ID of the unit
	Currency string       `form:"currency"`                   // By currency
	Active   bool         `form:"active" filterField:"false"` // Is the contract active today?
	Note     string       `form:"note" filterField:"false"`   // By note
	Offset   uint         `form:"offset" filterField:"false"` // The offset of the first Contract returned. Defaults to 0.
	Limit    int          `form:"limit" filterField:"false"`  // Maximum number of Contracts to return. Defaults to 50.
}

func (f ContractQueryFilter) model() models.Contract {
	return models.Contract{
		TenantID: f.TenantID.UUID,
		UnitID:   f.UnitID.UUID,
		Currency: f.Currency,
	}
}

// GenerateRequest configures the generation of financial items for a contract.
type GenerateRequest struct {
	PartialRentAmount decimal.NullDecimal `json:"partialRentAmount" example:"630.65" swaggertype:"string"` // Expected amount for the move-in month. Replaces the full rent when set
	Prorate           bool                `json:"prorate" example:"true"`                                  // Compute the amount for the move-in month from the days the unit is rented. Ignored when partialRentAmount is set
}

func (r GenerateRequest) options(contract models.Contract, changes []models.RentChange, now time.Time) generator.Options {
	opts := generator.Options{Now: now}

	if r.PartialRentAmount.Valid {
		opts.FirstMonthAmount = r.PartialRentAmount.Decimal
	} else if r.Prorate {
		opts.FirstMonthAmount = generator.ProratedFirstMonth(contract, changes)
	}

	return opts
}

type GenerateResponse struct {
	Data  *GenerateResult `json:"data"`                                                          // Result of the generation
	Error *string         `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type GenerateResult struct {
	Created int `json:"created" example:"26"` // Number of financial items that have been created
}

type UpdateFutureItemsResponse struct {
	Data  *generator.UpdateResult `json:"data"`                                                          // Result of the update
	Error *string                 `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}
