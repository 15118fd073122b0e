package v1

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/immoledger/backend/internal/allocator"
	"github.com/immoledger/backend/internal/httputil"
	"github.com/immoledger/backend/internal/models"
	"github.com/immoledger/backend/internal/types"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

// RegisterFinancialItemRoutes registers the routes for financial items with
// the RouterGroup that is passed.
func (co Controller) RegisterFinancialItemRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", co.OptionsFinancialItemList)
		r.GET("", co.GetFinancialItems)
		r.POST("", co.CreateFinancialItems)
	}

	// Financial item with ID
	{
		r.OPTIONS("/:id", co.OptionsFinancialItemDetail)
		r.GET("/:id", co.GetFinancialItem)
		r.PATCH("/:id", co.UpdateFinancialItem)
		r.DELETE("/:id", co.DeleteFinancialItem)

		r.OPTIONS("/:id/allocations", co.OptionsFinancialItemAllocations)
		r.GET("/:id/allocations", co.GetFinancialItemAllocations)
		r.PUT("/:id/allocations", co.ReplaceFinancialItemAllocations)

		r.OPTIONS("/:id/settle", co.OptionsFinancialItemSettle)
		r.POST("/:id/settle", co.SettleFinancialItem)
		r.DELETE("/:id/settle", co.UnsettleFinancialItem)
	}
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Financial Items
// @Success		204
// @Router			/v1/financial-items [options]
func (co Controller) OptionsFinancialItemList(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Financial Items
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/financial-items/{id} [options]
func (co Controller) OptionsFinancialItemDetail(c *gin.Context) {
	_, ok := getFinancialItem(c)
	if !ok {
		return
	}

	httputil.OptionsGetPatchDelete(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Financial Items
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/financial-items/{id}/allocations [options]
func (co Controller) OptionsFinancialItemAllocations(c *gin.Context) {
	_, ok := getFinancialItem(c)
	if !ok {
		return
	}

	httputil.OptionsGetPut(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Financial Items
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/financial-items/{id}/settle [options]
func (co Controller) OptionsFinancialItemSettle(c *gin.Context) {
	_, ok := getFinancialItem(c)
	if !ok {
		return
	}

	httputil.OptionsPostDelete(c)
}

func getFinancialItem(c *gin.Context) (models.FinancialItem, bool) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return models.FinancialItem{}, false
	}

	var item models.FinancialItem
	err = models.DB.First(&item, uri.ID).Error
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return models.FinancialItem{}, false
	}

	return item, true
}

// @Summary		Create financial items
// @Description	Creates new financial items. Items created here are never treated as generated from a contract.
// @Tags			Financial Items
// @Produce		json
// @Success		201				{object}	FinancialItemCreateResponse
// @Failure		400				{object}	FinancialItemCreateResponse
// @Failure		404				{object}	FinancialItemCreateResponse
// @Failure		500				{object}	FinancialItemCreateResponse
// @Param			financialItems	body		[]FinancialItemEditable	true	"Financial Items"
// @Router			/v1/financial-items [post]
func (co Controller) CreateFinancialItems(c *gin.Context) {
	var editables []FinancialItemEditable

	// Bind data and return error if not possible
	err := httputil.BindData(c, &editables)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), FinancialItemCreateResponse{
			Error: &e,
		})
		return
	}

	// The final http status. Will be modified when errors occur
	status := http.StatusCreated
	r := FinancialItemCreateResponse{}
	now := co.now()

	for _, editable := range editables {
		item := editable.model()

		err = models.DB.Create(&item).Error
		if err != nil {
			status = r.appendError(err, status)
			continue
		}

		data := newFinancialItem(c, item, now)
		r.Data = append(r.Data, FinancialItemResponse{Data: &data})
	}

	c.JSON(status, r)
}

// statusFilter restricts the query to items that have the status at the
// date passed. Overdue is not stored, it is computed from the due date.
func statusFilter(q *gorm.DB, status models.ItemStatus, today time.Time) (*gorm.DB, error) {
	switch status {
	case models.StatusPending, models.StatusPartial:
		return q.Where("status = ? AND due_date >= ?", status, today), nil
	case models.StatusOverdue:
		return q.Where("status IN ? AND due_date < ?", []models.ItemStatus{models.StatusPending, models.StatusPartial}, today), nil
	case models.StatusPaid, models.StatusSettled:
		return q.Where("status = ?", status), nil
	default:
		return q, errStatusInvalid
	}
}

// @Summary		Get financial items
// @Description	Returns a list of financial items, ordered by their due date
// @Tags			Financial Items
// @Produce		json
// @Success		200	{object}	FinancialItemListResponse
// @Failure		400	{object}	FinancialItemListResponse
// @Failure		500	{object}	FinancialItemListResponse
// @Router			/v1/financial-items [get]
// @Param			contract	query	string	false	"Filter by contract ID"
// @Param			tenant		query	string	false	"Filter by tenant ID"
// @Param			unit		query	string	false	"Filter by unit ID"
// @Param			month		query	string	false	"Filter by payment month, format YYYY-MM"
// @Param			fromMonth	query	string	false	"Payment month is the same or later, format YYYY-MM"
// @Param			untilMonth	query	string	false	"Payment month is the same or earlier, format YYYY-MM"
// @Param			category	query	string	false	"Filter by category"
// @Param			status		query	string	false	"Filter by status as of today: pending, partial, paid, overdue or settled"
// @Param			type		query	string	false	"Filter by type: receivable or payable"
// @Param			automatic	query	bool	false	"Has the item been generated from a contract?"
// @Param			description	query	string	false	"Search for this text in the description"
// @Param			offset		query	uint	false	"The offset of the first Financial Item returned. Defaults to 0."
// @Param			limit		query	int		false	"Maximum number of Financial Items to return. Defaults to 50."
func (co Controller) GetFinancialItems(c *gin.Context) {
	var filter FinancialItemQueryFilter
	err := c.ShouldBind(&filter)
	if err != nil {
		s := httputil.ErrInvalidQueryString.Error()
		c.JSON(http.StatusBadRequest, FinancialItemListResponse{
			Error: &s,
		})
		return
	}

	// Get the fields that we are filtering for
	queryFields, setFields := httputil.GetURLFields(c.Request.URL, filter)
	filterModel := filter.model()

	q := models.DB.
		Order("due_date ASC, category ASC").
		Where(&filterModel, queryFields...)

	if slices.Contains(setFields, "ContractID") {
		q = q.Where("related_to_contract_id = ?", filter.ContractID.UUID)
	}

	if slices.Contains(setFields, "TenantID") {
		q = q.Where("related_to_tenant_id = ?", filter.TenantID.UUID)
	}

	if slices.Contains(setFields, "UnitID") {
		q = q.Where("related_to_unit_id = ?", filter.UnitID.UUID)
	}

	if !filter.Month.IsZero() {
		q = q.Where("payment_month = ?", types.MonthOf(filter.Month))
	}

	if !filter.FromMonth.IsZero() {
		q = q.Where("payment_month >= ?", types.MonthOf(filter.FromMonth))
	}

	if !filter.UntilMonth.IsZero() {
		q = q.Where("payment_month <= ?", types.MonthOf(filter.UntilMonth))
	}

	if slices.Contains(setFields, "Type") {
		t := models.ItemType(filter.Type)
		if t != models.Receivable && t != models.Payable {
			s := errTypeInvalid.Error()
			c.JSON(http.StatusBadRequest, FinancialItemListResponse{
				Error: &s,
			})
			return
		}
		q = q.Where("type = ?", t)
	}

	if slices.Contains(setFields, "Status") {
		now := co.now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

		q, err = statusFilter(q, models.ItemStatus(filter.Status), today)
		if err != nil {
			s := err.Error()
			c.JSON(http.StatusBadRequest, FinancialItemListResponse{
				Error: &s,
			})
			return
		}
	}

	if slices.Contains(setFields, "Automatic") {
		q = q.Where("is_automatic_from_contract = ?", filter.Automatic)
	}

	if filter.Description != "" {
		q = q.Where("description LIKE ?", fmt.Sprintf("%%%s%%", filter.Description))
	} else if slices.Contains(setFields, "Description") {
		q = q.Where("description = ''")
	}

	limit := listLimit(setFields, filter.Limit)

	var items []models.FinancialItem
	err = q.Offset(int(filter.Offset)).Limit(limit).Find(&items).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), FinancialItemListResponse{
			Error: &s,
		})
		return
	}

	var count int64
	err = q.Model(&models.FinancialItem{}).Limit(-1).Offset(-1).Count(&count).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), FinancialItemListResponse{
			Error: &s,
		})
		return
	}

	now := co.now()
	data := make([]FinancialItem, 0, len(items))
	for _, item := range items {
		data = append(data, newFinancialItem(c, item, now))
	}

	c.JSON(http.StatusOK, FinancialItemListResponse{
		Data: data,
		Pagination: &Pagination{
			Count:  len(data),
			Total:  count,
			Offset: filter.Offset,
			Limit:  limit,
		},
	})
}

// @Summary		Get financial item
// @Description	Returns a specific financial item
// @Tags			Financial Items
// @Produce		json
// @Success		200	{object}	FinancialItemResponse
// @Failure		400	{object}	FinancialItemResponse
// @Failure		404	{object}	FinancialItemResponse
// @Failure		500	{object}	FinancialItemResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/financial-items/{id} [get]
func (co Controller) GetFinancialItem(c *gin.Context) {
	item, ok := getFinancialItem(c)
	if !ok {
		return
	}

	data := newFinancialItem(c, item, co.now())
	c.JSON(http.StatusOK, FinancialItemResponse{Data: &data})
}

// @Summary		Update financial item
// @Description	Update an existing financial item. Only values to be updated need to be specified. The amount is the sum of the allocations and can not be set directly.
// @Tags			Financial Items
// @Accept			json
// @Produce		json
// @Success		200				{object}	FinancialItemResponse
// @Failure		400				{object}	FinancialItemResponse
// @Failure		404				{object}	FinancialItemResponse
// @Failure		500				{object}	FinancialItemResponse
// @Param			id				path		URIID					true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			financialItem	body		FinancialItemEditable	true	"Financial Item"
// @Router			/v1/financial-items/{id} [patch]
func (co Controller) UpdateFinancialItem(c *gin.Context) {
	item, ok := getFinancialItem(c)
	if !ok {
		return
	}

	updateFields, err := httputil.GetBodyFields(c, FinancialItemEditable{})
	if err != nil {
		s := err.Error()
		c.JSON(status(err), FinancialItemResponse{
			Error: &s,
		})
		return
	}

	var data FinancialItemEditable
	err = httputil.BindData(c, &data)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), FinancialItemResponse{
			Error: &s,
		})
		return
	}

	applyFields(&item, data.model(), updateFields)
	err = models.DB.Omit("Contract").Save(&item).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), FinancialItemResponse{
			Error: &s,
		})
		return
	}

	r := newFinancialItem(c, item, co.now())
	c.JSON(http.StatusOK, FinancialItemResponse{Data: &r})
}

// @Summary		Delete financial item
// @Description	Deletes a financial item. Its allocations are removed and the categorization of the bank transactions is updated.
// @Tags			Financial Items
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/financial-items/{id} [delete]
func (co Controller) DeleteFinancialItem(c *gin.Context) {
	item, ok := getFinancialItem(c)
	if !ok {
		return
	}

	_, err := allocator.ReplaceAllocations(c.Request.Context(), models.DB, item.ID, nil)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	err = models.DB.Delete(&item).Error
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	c.JSON(http.StatusNoContent, nil)
}

// @Summary		Get allocations
// @Description	Returns the parts of bank transactions that count towards the financial item
// @Tags			Financial Items
// @Produce		json
// @Success		200	{object}	AllocationListResponse
// @Failure		400	{object}	AllocationListResponse
// @Failure		404	{object}	AllocationListResponse
// @Failure		500	{object}	AllocationListResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/financial-items/{id}/allocations [get]
func (co Controller) GetFinancialItemAllocations(c *gin.Context) {
	item, ok := getFinancialItem(c)
	if !ok {
		return
	}

	links, err := item.Links(models.DB)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), AllocationListResponse{
			Error: &s,
		})
		return
	}

	c.JSON(http.StatusOK, AllocationListResponse{Data: newAllocations(c, links)})
}

// @Summary		Replace allocations
// @Description	Sets the allocations of the financial item to exactly the ones sent. Allocations that are not sent are removed. Amount and status of the item and the categorization of all affected bank transactions are updated.
// @Tags			Financial Items
// @Accept			json
// @Produce		json
// @Success		200			{object}	FinancialItemResponse
// @Failure		400			{object}	FinancialItemResponse
// @Failure		404			{object}	FinancialItemResponse
// @Failure		500			{object}	FinancialItemResponse
// @Param			id			path		URIID					true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			allocations	body		[]allocator.Allocation	true	"Allocations"
// @Router			/v1/financial-items/{id}/allocations [put]
func (co Controller) ReplaceFinancialItemAllocations(c *gin.Context) {
	item, ok := getFinancialItem(c)
	if !ok {
		return
	}

	var allocations []allocator.Allocation
	err := httputil.BindData(c, &allocations)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), FinancialItemResponse{
			Error: &s,
		})
		return
	}

	item, err = allocator.ReplaceAllocations(c.Request.Context(), models.DB, item.ID, allocations)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), FinancialItemResponse{
			Error: &s,
		})
		return
	}

	data := newFinancialItem(c, item, co.now())
	c.JSON(http.StatusOK, FinancialItemResponse{Data: &data})
}

// @Summary		Settle financial item
// @Description	Marks the financial item as settled, independent of the amount paid
// @Tags			Financial Items
// @Produce		json
// @Success		200	{object}	FinancialItemResponse
// @Failure		400	{object}	FinancialItemResponse
// @Failure		404	{object}	FinancialItemResponse
// @Failure		500	{object}	FinancialItemResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/financial-items/{id}/settle [post]
func (co Controller) SettleFinancialItem(c *gin.Context) {
	co.setSettled(c, allocator.Settle)
}

// @Summary		Unsettle financial item
// @Description	Removes the manual settlement. The status is derived from the amount paid again.
// @Tags			Financial Items
// @Produce		json
// @Success		200	{object}	FinancialItemResponse
// @Failure		400	{object}	FinancialItemResponse
// @Failure		404	{object}	FinancialItemResponse
// @Failure		500	{object}	FinancialItemResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/financial-items/{id}/settle [delete]
func (co Controller) UnsettleFinancialItem(c *gin.Context) {
	co.setSettled(c, allocator.Unsettle)
}

func (co Controller) setSettled(c *gin.Context, set func(context.Context, *gorm.DB, uuid.UUID) (models.FinancialItem, error)) {
	item, ok := getFinancialItem(c)
	if !ok {
		return
	}

	item, err := set(c.Request.Context(), models.DB, item.ID)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), FinancialItemResponse{
			Error: &s,
		})
		return
	}

	data := newFinancialItem(c, item, co.now())
	c.JSON(http.StatusOK, FinancialItemResponse{Data: &data})
}
