package v1

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/immoledger/backend/internal/models"
)

// CategorizationRuleEditable represents all user configurable parameters
type CategorizationRuleEditable struct {
	Priority   uint       `json:"priority" example:"3"`                                      // The priority of the rule. Rules with a lower priority are applied first
	Match      string     `json:"match" example:"*Whg 3*"`                                   // The glob pattern to match sender or receiver, description and reference against
	Category   string     `json:"category" example:"rent_income"`                            // The category to set
	ContractID *uuid.UUID `json:"contractId" example:"3b1ea324-d438-4419-882a-2fc91d71772f"` // The contract to assign
	UnitID     *uuid.UUID `json:"unitId" example:"8c7c2a8f-3b77-4e5c-a0f5-3f6a9d2e1b4c"`     // The unit to assign
}

func (editable CategorizationRuleEditable) model() models.CategorizationRule {
	return models.CategorizationRule{
		Priority:   editable.Priority,
		Match:      editable.Match,
		Category:   editable.Category,
		ContractID: editable.ContractID,
		UnitID:     editable.UnitID,
	}
}

type CategorizationRuleLinks struct {
	Self string `json:"self" example:"https://example.com/api/v1/categorization-rules/95685c82-53c6-455d-b235-f49960b73b21"` // The categorization rule itself
}

type CategorizationRule struct {
	models.DefaultModel
	CategorizationRuleEditable
	Links CategorizationRuleLinks `json:"links"`
}

func newCategorizationRule(c *gin.Context, model models.CategorizationRule) CategorizationRule {
	url := c.GetString(string(models.DBContextURL))

	return CategorizationRule{
		DefaultModel: model.DefaultModel,
		CategorizationRuleEditable: CategorizationRuleEditable{
			Priority:   model.Priority,
			Match:      model.Match,
			Category:   model.Category,
			ContractID: model.ContractID,
			UnitID:     model.UnitID,
		},
		Links: CategorizationRuleLinks{
			Self: fmt.Sprintf("%s/v1/categorization-rules/%s", url, model.ID),
		},
	}
}

type CategorizationRuleListResponse struct {
	Data       []CategorizationRule `json:"data"`                                                          // List of Categorization Rules
	Error      *string              `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination          `json:"pagination"`                                                    // Pagination information
}

type CategorizationRuleCreateResponse struct {
	Data  []CategorizationRuleResponse `json:"data"`                                                          // List of the created Categorization Rules or their respective error
	Error *string                      `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

func (c *CategorizationRuleCreateResponse) appendError(err error, currentStatus int) int {
	s := err.Error()
	c.Data = append(c.Data, CategorizationRuleResponse{Error: &s})

	// The final status code is the highest HTTP status code number
	newStatus := status(err)
	if newStatus > currentStatus {
		return newStatus
	}

	return currentStatus
}

type CategorizationRuleResponse struct {
	Data  *CategorizationRule `json:"data"`                                                          // Data for the Categorization Rule
	Error *string             `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type CategorizationRuleQueryFilter struct {
	Priority uint   `form:"priority"`                   // By priority
	Match    string `form:"match" filterField:"false"`  // By match
	Category string `form:"category"`                   // By category
	Offset   uint   `form:"offset" filterField:"false"` // The offset of the first Categorization Rule returned. Defaults to 0.
	Limit    int    `form:"limit" filterField:"false"`  // Maximum number of Categorization Rules to return. Defaults to 50.
}

func (f CategorizationRuleQueryFilter) model() models.CategorizationRule {
	return models.CategorizationRule{
		Priority: f.Priority,
		Category: f.Category,
	}
}
