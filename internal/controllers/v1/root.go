package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/immoledger/backend/internal/httputil"
	"github.com/immoledger/backend/internal/models"
	"github.com/immoledger/backend/internal/regeneration"
)

func (co Controller) RegisterRootRoutes(r *gin.RouterGroup) {
	r.GET("", co.Get)
	r.DELETE("", co.Cleanup)
	r.OPTIONS("", co.Options)

	r.OPTIONS("/regenerate", co.OptionsRegenerate)
	r.POST("/regenerate", co.RegenerateAll)
}

type Response struct {
	Links Links `json:"links"` // Links for the v1 API
}

type Links struct {
	Contracts           string `json:"contracts" example:"https://example.com/api/v1/contracts"`                      // URL of Contract collection endpoint
	RentChanges         string `json:"rentChanges" example:"https://example.com/api/v1/rent-changes"`                 // URL of Rent Change collection endpoint
	FinancialItems      string `json:"financialItems" example:"https://example.com/api/v1/financial-items"`           // URL of Financial Item collection endpoint
	BankTransactions    string `json:"bankTransactions" example:"https://example.com/api/v1/bank-transactions"`       // URL of Bank Transaction collection endpoint
	CategorizationRules string `json:"categorizationRules" example:"https://example.com/api/v1/categorization-rules"` // URL of Categorization Rule collection endpoint
	Regenerate          string `json:"regenerate" example:"https://example.com/api/v1/regenerate"`                    // URL of the endpoint regenerating the items of all active contracts
}

// Get returns the link list for v1
//
//	@Summary		v1 API
//	@Description	Returns general information about the v1 API
//	@Tags			v1
//	@Success		200	{object}	Response
//	@Router			/v1 [get]
func (co Controller) Get(c *gin.Context) {
	url := c.GetString(string(models.DBContextURL))

	c.JSON(http.StatusOK, Response{
		Links: Links{
			Contracts:           url + "/v1/contracts",
			RentChanges:         url + "/v1/rent-changes",
			FinancialItems:      url + "/v1/financial-items",
			BankTransactions:    url + "/v1/bank-transactions",
			CategorizationRules: url + "/v1/categorization-rules",
			Regenerate:          url + "/v1/regenerate",
		},
	})
}

// Options returns the allowed HTTP methods
//
//	@Summary		Allowed HTTP verbs
//	@Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
//	@Tags			v1
//	@Success		204
//	@Router			/v1 [options]
func (co Controller) Options(c *gin.Context) {
	httputil.OptionsGetDelete(c)
}

// @Summary		Delete everything
// @Description	Permanently deletes all resources
// @Tags			v1
// @Success		204
// @Failure		400		{object}	httpError
// @Failure		500		{object}	httpError
// @Param			confirm	query		string	false	"Confirmation to delete all resources. Must have the value 'yes-please-delete-everything'"
// @Router			/v1 [delete]
func (co Controller) Cleanup(c *gin.Context) {
	var params struct {
		Confirm string `form:"confirm"`
	}

	err := c.Bind(&params)
	if err != nil || params.Confirm != "yes-please-delete-everything" {
		c.JSON(http.StatusBadRequest, httpError{
			Error: errCleanupConfirmation.Error(),
		})
		return
	}

	// Foreign keys are checked during cleanup,
	// add new models *before* any of the models
	// they reference
	resources := []any{
		models.FinancialItemLink{},
		models.FinancialItem{},
		models.BankTransaction{},
		models.CategorizationRule{},
		models.RentChange{},
		models.Contract{},
	}

	// Use a transaction so that we can roll back if errors happen
	tx := models.DB.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, httpError{
			Error: tx.Error.Error(),
		})
		return
	}

	for _, model := range resources {
		err := tx.Unscoped().Where("true").Delete(&model).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, httpError{
				Error: err.Error(),
			})
			tx.Rollback()
			return
		}
	}

	tx.Commit()
	c.JSON(http.StatusNoContent, nil)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			v1
// @Success		204
// @Router			/v1/regenerate [options]
func (co Controller) OptionsRegenerate(c *gin.Context) {
	httputil.OptionsPost(c)
}

type RegenerateResponse struct {
	Data  *RegenerateResult `json:"data"`                                                                // Result of the regeneration
	Error *string           `json:"error" example:"an error occurred on the server during your request"` // The error, if any occurred
}

type RegenerateResult struct {
	Created int `json:"created" example:"240"` // Number of financial items that have been created
}

// @Summary		Regenerate all contracts
// @Description	Deletes the pending automatic financial items of all active contracts and generates them again. Items that are paid, partially paid, settled or linked to a bank transaction are kept.
// @Tags			v1
// @Produce		json
// @Success		200	{object}	RegenerateResponse
// @Failure		500	{object}	RegenerateResponse
// @Router			/v1/regenerate [post]
func (co Controller) RegenerateAll(c *gin.Context) {
	created, err := regeneration.RegenerateAll(c.Request.Context(), models.DB, co.throttle(), co.now())
	if err != nil {
		s := err.Error()
		c.JSON(status(err), RegenerateResponse{
			Data:  &RegenerateResult{Created: created},
			Error: &s,
		})
		return
	}

	c.JSON(http.StatusOK, RegenerateResponse{Data: &RegenerateResult{Created: created}})
}
