package v1

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/immoledger/backend/internal/generator"
	"github.com/immoledger/backend/internal/httputil"
	"github.com/immoledger/backend/internal/models"
	"github.com/immoledger/backend/internal/regeneration"
	"golang.org/x/exp/slices"
)

// RegisterContractRoutes registers the routes for contracts with
// the RouterGroup that is passed.
func (co Controller) RegisterContractRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", co.OptionsContractList)
		r.GET("", co.GetContracts)
		r.POST("", co.CreateContracts)
	}

	// Contract with ID
	{
		r.OPTIONS("/:id", co.OptionsContractDetail)
		r.GET("/:id", co.GetContract)
		r.PATCH("/:id", co.UpdateContract)
		r.DELETE("/:id", co.DeleteContract)

		r.OPTIONS("/:id/generate", co.OptionsContractAction)
		r.POST("/:id/generate", co.GenerateContractItems)
		r.OPTIONS("/:id/regenerate", co.OptionsContractAction)
		r.POST("/:id/regenerate", co.RegenerateContractItems)
		r.OPTIONS("/:id/update-future-items", co.OptionsContractAction)
		r.POST("/:id/update-future-items", co.UpdateFutureContractItems)
	}
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Contracts
// @Success		204
// @Router			/v1/contracts [options]
func (co Controller) OptionsContractList(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Contracts
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/contracts/{id} [options]
func (co Controller) OptionsContractDetail(c *gin.Context) {
	_, ok := getContract(c)
	if !ok {
		return
	}

	httputil.OptionsGetPatchDelete(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Contracts
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/contracts/{id}/generate [options]
// @Router			/v1/contracts/{id}/regenerate [options]
// @Router			/v1/contracts/{id}/update-future-items [options]
func (co Controller) OptionsContractAction(c *gin.Context) {
	_, ok := getContract(c)
	if !ok {
		return
	}

	httputil.OptionsPost(c)
}

// getContract binds the ID from the URI and loads the contract. When this
// fails, the error response is written and false is returned.
func getContract(c *gin.Context) (models.Contract, bool) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return models.Contract{}, false
	}

	var contract models.Contract
	err = models.DB.First(&contract, uri.ID).Error
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return models.Contract{}, false
	}

	return contract, true
}

// @Summary		Create contracts
// @Description	Creates new contracts. Financial items are not generated automatically, use the generate endpoint of the contract.
// @Tags			Contracts
// @Produce		json
// @Success		201			{object}	ContractCreateResponse
// @Failure		400			{object}	ContractCreateResponse
// @Failure		500			{object}	ContractCreateResponse
// @Param			contracts	body		[]ContractEditable	true	"Contracts"
// @Router			/v1/contracts [post]
func (co Controller) CreateContracts(c *gin.Context) {
	var editables []ContractEditable

	// Bind data and return error if not possible
	err := httputil.BindData(c, &editables)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ContractCreateResponse{
			Error: &e,
		})
		return
	}

	// The final http status. Will be modified when errors occur
	status := http.StatusCreated
	r := ContractCreateResponse{}

	for _, editable := range editables {
		contract := editable.model()

		err = models.DB.Create(&contract).Error
		if err != nil {
			status = r.appendError(err, status)
			continue
		}

		data := newContract(c, contract, co.now())
		r.Data = append(r.Data, ContractResponse{Data: &data})
	}

	c.JSON(status, r)
}

// @Summary		Get contracts
// @Description	Returns a list of contracts
// @Tags			Contracts
// @Produce		json
// @Success		200	{object}	ContractListResponse
// @Failure		400	{object}	ContractListResponse
// @Failure		500	{object}	ContractListResponse
// @Router			/v1/contracts [get]
// @Param			tenant		query	string	false	"Filter by tenant ID"
// @Param			unit		query	string	false	"Filter by unit ID"
// @Param			currency	query	string	false	"Filter by currency"
// @Param			active		query	bool	false	"Is the contract active today?"
// @Param			note		query	string	false	"Search for this text in the note"
// @Param			offset		query	uint	false	"The offset of the first Contract returned. Defaults to 0."
// @Param			limit		query	int		false	"Maximum number of Contracts to return. Defaults to 50."
func (co Controller) GetContracts(c *gin.Context) {
	var filter ContractQueryFilter
	err := c.ShouldBind(&filter)
	if err != nil {
		s := httputil.ErrInvalidQueryString.Error()
		c.JSON(http.StatusBadRequest, ContractListResponse{
			Error: &s,
		})
		return
	}

	// Get the fields that we are filtering for
	queryFields, setFields := httputil.GetURLFields(c.Request.URL, filter)
	filterModel := filter.model()

	q := models.DB.
		Order("start_date ASC").
		Where(&filterModel, queryFields...)

	// uuid.Nil is the zero value and would be ignored by gorm
	if slices.Contains(setFields, "TenantID") {
		q = q.Where("tenant_id = ?", filter.TenantID.UUID)
	}

	if slices.Contains(setFields, "UnitID") {
		q = q.Where("unit_id = ?", filter.UnitID.UUID)
	}

	if filter.Note != "" {
		q = q.Where("note LIKE ?", fmt.Sprintf("%%%s%%", filter.Note))
	} else if slices.Contains(setFields, "Note") {
		q = q.Where("note = ''")
	}

	var contracts []models.Contract
	err = q.Find(&contracts).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), ContractListResponse{
			Error: &s,
		})
		return
	}

	// Activity depends on three dates and is filtered here
	now := co.now()
	if slices.Contains(setFields, "Active") {
		contracts = slices.DeleteFunc(contracts, func(contract models.Contract) bool {
			return contract.ActiveAt(now) != filter.Active
		})
	}

	total := int64(len(contracts))
	limit := listLimit(setFields, filter.Limit)

	start := min(int(filter.Offset), len(contracts))
	contracts = contracts[start:]
	if limit >= 0 && limit < len(contracts) {
		contracts = contracts[:limit]
	}

	data := make([]Contract, 0, len(contracts))
	for _, contract := range contracts {
		data = append(data, newContract(c, contract, now))
	}

	c.JSON(http.StatusOK, ContractListResponse{
		Data: data,
		Pagination: &Pagination{
			Count:  len(data),
			Total:  total,
			Offset: filter.Offset,
			Limit:  limit,
		},
	})
}

// @Summary		Get contract
// @Description	Returns a specific contract
// @Tags			Contracts
// @Produce		json
// @Success		200	{object}	ContractResponse
// @Failure		400	{object}	ContractResponse
// @Failure		404	{object}	ContractResponse
// @Failure		500	{object}	ContractResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/contracts/{id} [get]
func (co Controller) GetContract(c *gin.Context) {
	contract, ok := getContract(c)
	if !ok {
		return
	}

	data := newContract(c, contract, co.now())
	c.JSON(http.StatusOK, ContractResponse{Data: &data})
}

// @Summary		Update contract
// @Description	Update an existing contract. Only values to be updated need to be specified. Existing financial items are not changed, use the update-future-items or regenerate endpoints for that.
// @Tags			Contracts
// @Accept			json
// @Produce		json
// @Success		200			{object}	ContractResponse
// @Failure		400			{object}	ContractResponse
// @Failure		404			{object}	ContractResponse
// @Failure		500			{object}	ContractResponse
// @Param			id			path		URIID				true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			contract	body		ContractEditable	true	"Contract"
// @Router			/v1/contracts/{id} [patch]
func (co Controller) UpdateContract(c *gin.Context) {
	contract, ok := getContract(c)
	if !ok {
		return
	}

	updateFields, err := httputil.GetBodyFields(c, ContractEditable{})
	if err != nil {
		s := err.Error()
		c.JSON(status(err), ContractResponse{
			Error: &s,
		})
		return
	}

	var data ContractEditable
	err = httputil.BindData(c, &data)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), ContractResponse{
			Error: &s,
		})
		return
	}

	// The merged contract is saved as a whole so that it is validated as a whole
	applyFields(&contract, data.model(), updateFields)
	err = models.DB.Save(&contract).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), ContractResponse{
			Error: &s,
		})
		return
	}

	r := newContract(c, contract, co.now())
	c.JSON(http.StatusOK, ContractResponse{Data: &r})
}

// @Summary		Delete contract
// @Description	Deletes a contract. Contracts that still have financial items or rent changes can not be deleted.
// @Tags			Contracts
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/contracts/{id} [delete]
func (co Controller) DeleteContract(c *gin.Context) {
	contract, ok := getContract(c)
	if !ok {
		return
	}

	var count int64
	err := models.DB.Model(&models.FinancialItem{}).Where(&models.FinancialItem{RelatedToContractID: &contract.ID}).Count(&count).Error
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	if count > 0 {
		c.JSON(http.StatusBadRequest, httpError{
			Error: errContractHasItems.Error(),
		})
		return
	}

	err = models.DB.Where(&models.RentChange{ContractID: contract.ID}).Delete(&models.RentChange{}).Error
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	err = models.DB.Delete(&contract).Error
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	c.JSON(http.StatusNoContent, nil)
}

// @Summary		Generate financial items
// @Description	Generates all missing rent and deposit items of the contract. Items that already exist for a month and category are never duplicated, calling this repeatedly is safe.
// @Tags			Contracts
// @Accept			json
// @Produce		json
// @Success		200		{object}	GenerateResponse
// @Failure		400		{object}	GenerateResponse
// @Failure		404		{object}	GenerateResponse
// @Failure		500		{object}	GenerateResponse
// @Param			id		path		URIID			true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			request	body		GenerateRequest	false	"Options for the generation"
// @Router			/v1/contracts/{id}/generate [post]
func (co Controller) GenerateContractItems(c *gin.Context) {
	contract, ok := getContract(c)
	if !ok {
		return
	}

	// The body is optional
	var request GenerateRequest
	err := httputil.BindData(c, &request)
	if err != nil && !errors.Is(err, httputil.ErrRequestBodyEmpty) {
		s := err.Error()
		c.JSON(status(err), GenerateResponse{
			Error: &s,
		})
		return
	}

	changes, err := contract.RentChanges(models.DB)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), GenerateResponse{
			Error: &s,
		})
		return
	}

	created, err := generator.GenerateForContract(c.Request.Context(), models.DB, co.throttle(), contract, changes, request.options(contract, changes, co.now()))
	if err != nil {
		s := err.Error()
		c.JSON(status(err), GenerateResponse{
			Data:  &GenerateResult{Created: created},
			Error: &s,
		})
		return
	}

	c.JSON(http.StatusOK, GenerateResponse{Data: &GenerateResult{Created: created}})
}

// @Summary		Regenerate financial items
// @Description	Deletes the pending automatic items of the contract and generates them again. Items that are paid, partially paid, settled or linked to a bank transaction are kept.
// @Tags			Contracts
// @Produce		json
// @Success		200	{object}	GenerateResponse
// @Failure		400	{object}	GenerateResponse
// @Failure		404	{object}	GenerateResponse
// @Failure		500	{object}	GenerateResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/contracts/{id}/regenerate [post]
func (co Controller) RegenerateContractItems(c *gin.Context) {
	contract, ok := getContract(c)
	if !ok {
		return
	}

	created, err := regeneration.RegenerateContract(c.Request.Context(), models.DB, co.throttle(), contract.ID, co.now())
	if err != nil {
		s := err.Error()
		c.JSON(status(err), GenerateResponse{
			Data:  &GenerateResult{Created: created},
			Error: &s,
		})
		return
	}

	c.JSON(http.StatusOK, GenerateResponse{Data: &GenerateResult{Created: created}})
}

// @Summary		Update future financial items
// @Description	Updates expected amount and due date of the pending automatic rent and deposit items from the current month on to the current terms of the contract. The items keep their IDs, the move-in month keeps its expected amount. Items after the end of the contract and deposit installments that no longer exist are deleted.
// @Tags			Contracts
// @Produce		json
// @Success		200	{object}	UpdateFutureItemsResponse
// @Failure		400	{object}	UpdateFutureItemsResponse
// @Failure		404	{object}	UpdateFutureItemsResponse
// @Failure		500	{object}	UpdateFutureItemsResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/contracts/{id}/update-future-items [post]
func (co Controller) UpdateFutureContractItems(c *gin.Context) {
	contract, ok := getContract(c)
	if !ok {
		return
	}

	changes, err := contract.RentChanges(models.DB)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), UpdateFutureItemsResponse{
			Error: &s,
		})
		return
	}

	result, err := generator.UpdateFutureItems(c.Request.Context(), models.DB, contract, changes, generator.Options{Now: co.now()})
	if err != nil {
		s := err.Error()
		c.JSON(status(err), UpdateFutureItemsResponse{
			Error: &s,
		})
		return
	}

	c.JSON(http.StatusOK, UpdateFutureItemsResponse{Data: &result})
}
