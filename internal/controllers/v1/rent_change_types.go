package v1

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/immoledger/backend/internal/models"
	ez_uuid "github.com/immoledger/backend/internal/uuid"
	"github.com/shopspring/decimal"
)

// RentChangeEditable represents all user configurable parameters
type RentChangeEditable struct {
	ContractID    uuid.UUID           `json:"contractId" example:"3b1ea324-d438-4419-882a-2fc91d71772f"` // ID of the contract
	EffectiveDate time.Time           `json:"effectiveDate" example:"2024-07-01T00:00:00Z"`              // Date from which the new rent applies
	BaseRent      decimal.Decimal     `json:"baseRent" example:"900" swaggertype:"string"`               // New base rent
	Utilities     decimal.NullDecimal `json:"utilities" example:"160" swaggertype:"string"`              // New advance payment for utilities. The value of the contract applies when not set
	Heating       decimal.NullDecimal `json:"heating" example:"90" swaggertype:"string"`                 // New advance payment for heating. The value of the contract applies when not set
	Note          string              `json:"note" example:"Indexmiete 2024" default:""`                 // A note about the rent change
}

func (editable RentChangeEditable) model() models.RentChange {
	return models.RentChange{
		ContractID:    editable.ContractID,
		EffectiveDate: editable.EffectiveDate,
		BaseRent:      editable.BaseRent,
		Utilities:     editable.Utilities,
		Heating:       editable.Heating,
		Note:          editable.Note,
	}
}

type RentChangeLinks struct {
	Self     string `json:"self" example:"https://example.com/api/v1/rent-changes/4e0a5f56-3d8e-4b47-9d8c-2b0b7b8f2d4a"` // The rent change itself
	Contract string `json:"contract" example:"https://example.com/api/v1/contracts/3b1ea324-d438-4419-882a-2fc91d71772f"` // The contract
}

type RentChange struct {
	models.DefaultModel
	RentChangeEditable
	Links RentChangeLinks `json:"links"`
}

func newRentChange(c *gin.Context, model models.RentChange) RentChange {
	url := c.GetString(string(models.DBContextURL))

	return RentChange{
		DefaultModel: model.DefaultModel,
		RentChangeEditable: RentChangeEditable{
			ContractID:    model.ContractID,
			EffectiveDate: model.EffectiveDate,
			BaseRent:      model.BaseRent,
			Utilities:     model.Utilities,
			Heating:       model.Heating,
			Note:          model.Note,
		},
		Links: RentChangeLinks{
			Self:     fmt.Sprintf("%s/v1/rent-changes/%s", url, model.ID),
			Contract: fmt.Sprintf("%s/v1/contracts/%s", url, model.ContractID),
		},
	}
}

type RentChangeListResponse struct {
	Data       []RentChange `json:"data"`                                                          // List of Rent Changes
	Error      *string      `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination  `json:"pagination"`                                                    // Pagination information
}

type RentChangeCreateResponse struct {
	Data  []RentChangeResponse `json:"data"`                                                          // List of the created Rent Changes or their respective error
	Error *string              `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

func (c *RentChangeCreateResponse) appendError(err error, currentStatus int) int {
	s := err.Error()
	c.Data = append(c.Data, RentChangeResponse{Error: &s})

	// The final status code is the highest HTTP status code number
	newStatus := status(err)
	if newStatus > currentStatus {
		return newStatus
	}

	return currentStatus
}

type RentChangeResponse struct {
	Data  *RentChange `json:"data"`                                                          // Data for the Rent Change
	Error *string     `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type RentChangeQueryFilter struct {
	ContractID ez_uuid.UUID `form:"contract" filterField:"false"` // By ID of the contract
	Note       string       `form:"note" filterField:"false"`     // By note
	Offset     uint         `form:"offset" filterField:"false"`   // The offset of the first Rent Change returned. Defaults to 0.
	Limit      int          `form:"limit" filterField:"false"`    // Maximum number of Rent Changes to return. Defaults to 50.
}
