package v1

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/immoledger/backend/internal/httputil"
	"github.com/immoledger/backend/internal/models"
	"golang.org/x/exp/slices"
)

// RegisterRentChangeRoutes registers the routes for rent changes with
// the RouterGroup that is passed.
func (co Controller) RegisterRentChangeRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", co.OptionsRentChangeList)
		r.GET("", co.GetRentChanges)
		r.POST("", co.CreateRentChanges)
	}

	// Rent change with ID
	{
		r.OPTIONS("/:id", co.OptionsRentChangeDetail)
		r.GET("/:id", co.GetRentChange)
		r.PATCH("/:id", co.UpdateRentChange)
		r.DELETE("/:id", co.DeleteRentChange)
	}
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Rent Changes
// @Success		204
// @Router			/v1/rent-changes [options]
func (co Controller) OptionsRentChangeList(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Rent Changes
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/rent-changes/{id} [options]
func (co Controller) OptionsRentChangeDetail(c *gin.Context) {
	_, ok := getRentChange(c)
	if !ok {
		return
	}

	httputil.OptionsGetPatchDelete(c)
}

func getRentChange(c *gin.Context) (models.RentChange, bool) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return models.RentChange{}, false
	}

	var rentChange models.RentChange
	err = models.DB.First(&rentChange, uri.ID).Error
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return models.RentChange{}, false
	}

	return rentChange, true
}

// @Summary		Create rent changes
// @Description	Creates new rent changes. Existing financial items are not changed, use the update-future-items or regenerate endpoints of the contract for that.
// @Tags			Rent Changes
// @Produce		json
// @Success		201				{object}	RentChangeCreateResponse
// @Failure		400				{object}	RentChangeCreateResponse
// @Failure		404				{object}	RentChangeCreateResponse
// @Failure		500				{object}	RentChangeCreateResponse
// @Param			rentChanges	body		[]RentChangeEditable	true	"Rent Changes"
// @Router			/v1/rent-changes [post]
func (co Controller) CreateRentChanges(c *gin.Context) {
	var editables []RentChangeEditable

	// Bind data and return error if not possible
	err := httputil.BindData(c, &editables)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), RentChangeCreateResponse{
			Error: &e,
		})
		return
	}

	// The final http status. Will be modified when errors occur
	status := http.StatusCreated
	r := RentChangeCreateResponse{}

	for _, editable := range editables {
		rentChange := editable.model()

		err = models.DB.Create(&rentChange).Error
		if err != nil {
			status = r.appendError(err, status)
			continue
		}

		data := newRentChange(c, rentChange)
		r.Data = append(r.Data, RentChangeResponse{Data: &data})
	}

	c.JSON(status, r)
}

// @Summary		Get rent changes
// @Description	Returns a list of rent changes, ordered by their effective date
// @Tags			Rent Changes
// @Produce		json
// @Success		200	{object}	RentChangeListResponse
// @Failure		400	{object}	RentChangeListResponse
// @Failure		500	{object}	RentChangeListResponse
// @Router			/v1/rent-changes [get]
// @Param			contract	query	string	false	"Filter by contract ID"
// @Param			note		query	string	false	"Search for this text in the note"
// @Param			offset		query	uint	false	"The offset of the first Rent Change returned. Defaults to 0."
// @Param			limit		query	int		false	"Maximum number of Rent Changes to return. Defaults to 50."
func (co Controller) GetRentChanges(c *gin.Context) {
	var filter RentChangeQueryFilter
	err := c.ShouldBind(&filter)
	if err != nil {
		s := httputil.ErrInvalidQueryString.Error()
		c.JSON(http.StatusBadRequest, RentChangeListResponse{
			Error: &s,
		})
		return
	}

	_, setFields := httputil.GetURLFields(c.Request.URL, filter)

	q := models.DB.Order("effective_date ASC")

	if slices.Contains(setFields, "ContractID") {
		q = q.Where("contract_id = ?", filter.ContractID.UUID)
	}

	if filter.Note != "" {
		q = q.Where("note LIKE ?", fmt.Sprintf("%%%s%%", filter.Note))
	} else if slices.Contains(setFields, "Note") {
		q = q.Where("note = ''")
	}

	limit := listLimit(setFields, filter.Limit)

	var rentChanges []models.RentChange
	err = q.Offset(int(filter.Offset)).Limit(limit).Find(&rentChanges).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), RentChangeListResponse{
			Error: &s,
		})
		return
	}

	var count int64
	err = q.Model(&models.RentChange{}).Limit(-1).Offset(-1).Count(&count).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), RentChangeListResponse{
			Error: &s,
		})
		return
	}

	data := make([]RentChange, 0, len(rentChanges))
	for _, rentChange := range rentChanges {
		data = append(data, newRentChange(c, rentChange))
	}

	c.JSON(http.StatusOK, RentChangeListResponse{
		Data: data,
		Pagination: &Pagination{
			Count:  len(data),
			Total:  count,
			Offset: filter.Offset,
			Limit:  limit,
		},
	})
}

// @Summary		Get rent change
// @Description	Returns a specific rent change
// @Tags			Rent Changes
// @Produce		json
// @Success		200	{object}	RentChangeResponse
// @Failure		400	{object}	RentChangeResponse
// @Failure		404	{object}	RentChangeResponse
// @Failure		500	{object}	RentChangeResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/rent-changes/{id} [get]
func (co Controller) GetRentChange(c *gin.Context) {
	rentChange, ok := getRentChange(c)
	if !ok {
		return
	}

	data := newRentChange(c, rentChange)
	c.JSON(http.StatusOK, RentChangeResponse{Data: &data})
}

// @Summary		Update rent change
// @Description	Update an existing rent change. Only values to be updated need to be specified.
// @Tags			Rent Changes
// @Accept			json
// @Produce		json
// @Success		200			{object}	RentChangeResponse
// @Failure		400			{object}	RentChangeResponse
// @Failure		404			{object}	RentChangeResponse
// @Failure		500			{object}	RentChangeResponse
// @Param			id			path		URIID				true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			rentChange	body		RentChangeEditable	true	"Rent Change"
// @Router			/v1/rent-changes/{id} [patch]
func (co Controller) UpdateRentChange(c *gin.Context) {
	rentChange, ok := getRentChange(c)
	if !ok {
		return
	}

	updateFields, err := httputil.GetBodyFields(c, RentChangeEditable{})
	if err != nil {
		s := err.Error()
		c.JSON(status(err), RentChangeResponse{
			Error: &s,
		})
		return
	}

	var data RentChangeEditable
	err = httputil.BindData(c, &data)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), RentChangeResponse{
			Error: &s,
		})
		return
	}

	applyFields(&rentChange, data.model(), updateFields)
	err = models.DB.Omit("Contract").Save(&rentChange).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), RentChangeResponse{
			Error: &s,
		})
		return
	}

	r := newRentChange(c, rentChange)
	c.JSON(http.StatusOK, RentChangeResponse{Data: &r})
}

// @Summary		Delete rent change
// @Description	Deletes a rent change
// @Tags			Rent Changes
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/rent-changes/{id} [delete]
func (co Controller) DeleteRentChange(c *gin.Context) {
	rentChange, ok := getRentChange(c)
	if !ok {
		return
	}

	err := models.DB.Delete(&rentChange).Error
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	c.JSON(http.StatusNoContent, nil)
}
