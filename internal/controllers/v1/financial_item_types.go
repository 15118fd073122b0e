package v1

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/immoledger/backend/internal/allocator"
	"github.com/immoledger/backend/internal/models"
	"github.com/immoledger/backend/internal/types"
	ez_uuid "github.com/immoledger/backend/internal/uuid"
	"github.com/shopspring/decimal"
)

// FinancialItemEditable represents all user configurable parameters
type FinancialItemEditable struct {
	Type                models.ItemType `json:"type" example:"receivable" default:"receivable"`                         // Receivable (money is expected) or payable (money is owed)
	Category            string          `json:"category" example:"rent"`                                                // Category of the item
	RelatedToContractID *uuid.UUID      `json:"relatedToContractId" example:"3b1ea324-d438-4419-882a-2fc91d71772f"` // ID of the contract the item belongs to
	RelatedToTenantID   *uuid.UUID      `json:"relatedToTenantId" example:"2a4d3e5c-0b44-4c2f-9f41-1a3c0d3d7d5e"`   // ID of the tenant the item belongs to
	RelatedToUnitID     *uuid.UUID      `json:"relatedToUnitId" example:"8c7c2a8f-3b77-4e5c-a0f5-3f6a9d2e1b4c"`     // ID of the unit the item belongs to
	PaymentMonth        types.Month     `json:"paymentMonth" example:"2024-05" swaggertype:"string"`                    // Month the item is for
	DueDate             time.Time       `json:"dueDate" example:"2024-05-03T00:00:00Z"`                                 // Date the payment is due. Defaults to the first day of the payment month
	ExpectedAmount      decimal.Decimal `json:"expectedAmount" example:"1080" swaggertype:"string"`                     // Amount that is expected to be paid
	Currency            string          `json:"currency" example:"EUR" default:"EUR"`                                   // ISO 4217 currency code
	Description         string          `json:"description" example:"Miete 05/2024" default:""`                         // A description of the item
}

func (editable FinancialItemEditable) model() models.FinancialItem {
	return models.FinancialItem{
		Type:                editable.Type,
		Category:            editable.Category,
		RelatedToContractID: editable.RelatedToContractID,
		RelatedToTenantID:   editable.RelatedToTenantID,
		RelatedToUnitID:     editable.RelatedToUnitID,
		PaymentMonth:        editable.PaymentMonth,
		DueDate:             editable.DueDate,
		ExpectedAmount:      editable.ExpectedAmount,
		Currency:            editable.Currency,
		Description:         editable.Description,
	}
}

type FinancialItemLinks struct {
	Self        string `json:"self" example:"https://example.com/api/v1/financial-items/f2b8d0a6-4c57-4d8e-9b59-2e6c4c1ad9c4"`                    // The financial item itself
	Allocations string `json:"allocations" example:"https://example.com/api/v1/financial-items/f2b8d0a6-4c57-4d8e-9b59-2e6c4c1ad9c4/allocations"` // The links to bank transactions
	Settle      string `json:"settle" example:"https://example.com/api/v1/financial-items/f2b8d0a6-4c57-4d8e-9b59-2e6c4c1ad9c4/settle"`           // Settles or unsettles the item
	Contract    string `json:"contract" example:"https://example.com/api/v1/contracts/3b1ea324-d438-4419-882a-2fc91d71772f"`                      // The contract. Empty when the item does not belong to a contract
}

type FinancialItem struct {
	models.DefaultModel
	FinancialItemEditable
	Links FinancialItemLinks `json:"links"`

	// These fields are computed
	Amount                  decimal.Decimal   `json:"amount" example:"600" swaggertype:"string"`      // Sum of all linked amounts
	Status                  models.ItemStatus `json:"status" example:"partial"`                       // Status derived from amount and expected amount
	EffectiveStatus         models.ItemStatus `json:"effectiveStatus" example:"overdue"`              // Status as of today. Pending and partially paid items are overdue after their due date
	Settled                 bool              `json:"settled" example:"false"`                        // Has the item been settled manually?
	IsAutomaticFromContract bool              `json:"isAutomaticFromContract" example:"true"`         // Has the item been generated from the contract?
	Outstanding             decimal.Decimal   `json:"outstanding" example:"480" swaggertype:"string"` // Amount that still needs to be paid
}

func newFinancialItem(c *gin.Context, model models.FinancialItem, now time.Time) FinancialItem {
	url := c.GetString(string(models.DBContextURL))

	item := FinancialItem{
		DefaultModel: model.DefaultModel,
		FinancialItemEditable: FinancialItemEditable{
			Type:                model.Type,
			Category:            model.Category,
			RelatedToContractID: model.RelatedToContractID,
			RelatedToTenantID:   model.RelatedToTenantID,
			RelatedToUnitID:     model.RelatedToUnitID,
			PaymentMonth:        model.PaymentMonth,
			DueDate:             model.DueDate,
			ExpectedAmount:      model.ExpectedAmount,
			Currency:            model.Currency,
			Description:         model.Description,
		},
		Links: FinancialItemLinks{
			Self:        fmt.Sprintf("%s/v1/financial-items/%s", url, model.ID),
			Allocations: fmt.Sprintf("%s/v1/financial-items/%s/allocations", url, model.ID),
			Settle:      fmt.Sprintf("%s/v1/financial-items/%s/settle", url, model.ID),
		},
		Amount:                  model.Amount,
		Status:                  model.Status,
		EffectiveStatus:         model.EffectiveStatus(now),
		Settled:                 model.Settled,
		IsAutomaticFromContract: model.IsAutomaticFromContract,
		Outstanding:             decimal.Max(model.ExpectedAmount.Sub(model.Amount), decimal.Zero),
	}

	if model.RelatedToContractID != nil {
		item.Links.Contract = fmt.Sprintf("%s/v1/contracts/%s", url, *model.RelatedToContractID)
	}

	return item
}

type FinancialItemListResponse struct {
	Data       []FinancialItem `json:"data"`                                                          // List of Financial Items
	Error      *string         `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination     `json:"pagination"`                                                    // Pagination information
}

type FinancialItemCreateResponse struct {
	Data  []FinancialItemResponse `json:"data"`                                                          // List of the created Financial Items or their respective error
	Error *string                 `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

func (c *FinancialItemCreateResponse) appendError(err error, currentStatus int) int {
	s := err.Error()
	c.Data = append(c.Data, FinancialItemResponse{Error: &s})

	// The final status code is the highest HTTP status code number
	newStatus := status(err)
	if newStatus > currentStatus {
		return newStatus
	}

	return currentStatus
}

type FinancialItemResponse struct {
	Data  *FinancialItem `json:"data"`                                                          // Data for the Financial Item
	Error *string        `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type FinancialItemQueryFilter struct {
	ContractID  ez_uuid.UUID `form:"contract" filterField:"false"`                                      // By ID of the contract
	TenantID    ez_uuid.UUID `form:"tenant" filterField:"false"`                                        // By ID of the tenant
	UnitID      ez_uuid.UUID `form:"unit" filterField:"false"`                                          // By ID of the unit
	Month       time.Time    `form:"month" time_format:"2006-01" time_utc:"1" filterField:"false"`      // By payment month
	FromMonth   time.Time    `form:"fromMonth" time_format:"2006-01" time_utc:"1" filterField:"false"`  // Payment month is the same or later
	UntilMonth  time.Time    `form:"untilMonth" time_format:"2006-01" time_utc:"1" filterField:"false"` // Payment month is the same or earlier
	Category    string       `form:"category"`                                                          // By category
	Status      string       `form:"status" filterField:"false"`                                        // By status as of today
	Type        string       `form:"type" filterField:"false"`                                          // By type
	Automatic   bool         `form:"automatic" filterField:"false"`                                     // Has the item been generated from a contract?
	Description string       `form:"description" filterField:"false"`                                   // By description
	Offset      uint         `form:"offset" filterField:"false"`                                        // The offset of the first Financial Item returned. Defaults to 0.
	Limit       int          `form:"limit" filterField:"false"`                                         // Maximum number of Financial Items to return. Defaults to 50.
}

func (f FinancialItemQueryFilter) model() models.FinancialItem {
	return models.FinancialItem{
		Category: f.Category,
	}
}

type AllocationLinks struct {
	Transaction string `json:"transaction" example:"https://example.com/api/v1/bank-transactions/1e777d24-3f5b-4c43-8000-04f65f895578"` // The bank transaction
}

// Allocation is a part of a bank transaction that counts towards a financial item.
type Allocation struct {
	allocator.Allocation
	Links AllocationLinks `json:"links"`
}

type AllocationListResponse struct {
	Data  []Allocation `json:"data"`                                                          // List of the allocations of the Financial Item
	Error *string      `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

func newAllocations(c *gin.Context, links []models.FinancialItemLink) []Allocation {
	url := c.GetString(string(models.DBContextURL))

	allocations := make([]Allocation, 0, len(links))
	for _, link := range links {
		allocations = append(allocations, Allocation{
			Allocation: allocator.Allocation{
				TransactionID: link.TransactionID,
				Amount:        link.LinkedAmount,
			},
			Links: AllocationLinks{
				Transaction: fmt.Sprintf("%s/v1/bank-transactions/%s", url, link.TransactionID),
			},
		})
	}

	return allocations
}
