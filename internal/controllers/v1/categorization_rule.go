package v1

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/immoledger/backend/internal/httputil"
	"github.com/immoledger/backend/internal/models"
	"golang.org/x/exp/slices"
)

// RegisterCategorizationRuleRoutes registers the routes for categorization rules with
// the RouterGroup that is passed.
func (co Controller) RegisterCategorizationRuleRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", co.OptionsCategorizationRuleList)
		r.GET("", co.GetCategorizationRules)
		r.POST("", co.CreateCategorizationRules)
	}

	// Categorization rule with ID
	{
		r.OPTIONS("/:id", co.OptionsCategorizationRuleDetail)
		r.GET("/:id", co.GetCategorizationRule)
		r.PATCH("/:id", co.UpdateCategorizationRule)
		r.DELETE("/:id", co.DeleteCategorizationRule)
	}
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Categorization Rules
// @Success		204
// @Router			/v1/categorization-rules [options]
func (co Controller) OptionsCategorizationRuleList(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Categorization Rules
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/categorization-rules/{id} [options]
func (co Controller) OptionsCategorizationRuleDetail(c *gin.Context) {
	_, ok := getCategorizationRule(c)
	if !ok {
		return
	}

	httputil.OptionsGetPatchDelete(c)
}

func getCategorizationRule(c *gin.Context) (models.CategorizationRule, bool) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return models.CategorizationRule{}, false
	}

	var rule models.CategorizationRule
	err = models.DB.First(&rule, uri.ID).Error
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return models.CategorizationRule{}, false
	}

	return rule, true
}

// @Summary		Create categorization rules
// @Description	Creates new categorization rules
// @Tags			Categorization Rules
// @Produce		json
// @Success		201						{object}	CategorizationRuleCreateResponse
// @Failure		400						{object}	CategorizationRuleCreateResponse
// @Failure		404						{object}	CategorizationRuleCreateResponse
// @Failure		500						{object}	CategorizationRuleCreateResponse
// @Param			categorizationRules	body		[]CategorizationRuleEditable	true	"Categorization Rules"
// @Router			/v1/categorization-rules [post]
func (co Controller) CreateCategorizationRules(c *gin.Context) {
	var editables []CategorizationRuleEditable

	// Bind data and return error if not possible
	err := httputil.BindData(c, &editables)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), CategorizationRuleCreateResponse{
			Error: &e,
		})
		return
	}

	// The final http status. Will be modified when errors occur
	status := http.StatusCreated
	r := CategorizationRuleCreateResponse{}

	for _, editable := range editables {
		rule := editable.model()

		err = models.DB.Create(&rule).Error
		if err != nil {
			status = r.appendError(err, status)
			continue
		}

		data := newCategorizationRule(c, rule)
		r.Data = append(r.Data, CategorizationRuleResponse{Data: &data})
	}

	c.JSON(status, r)
}

// @Summary		Get categorization rules
// @Description	Returns a list of categorization rules, in the order they are applied
// @Tags			Categorization Rules
// @Produce		json
// @Success		200	{object}	CategorizationRuleListResponse
// @Failure		400	{object}	CategorizationRuleListResponse
// @Failure		500	{object}	CategorizationRuleListResponse
// @Router			/v1/categorization-rules [get]
// @Param			priority	query	uint	false	"Filter by priority"
// @Param			match		query	string	false	"Filter by match"
// @Param			category	query	string	false	"Filter by category"
// @Param			offset		query	uint	false	"The offset of the first Categorization Rule returned. Defaults to 0."
// @Param			limit		query	int		false	"Maximum number of Categorization Rules to return. Defaults to 50."
func (co Controller) GetCategorizationRules(c *gin.Context) {
	var filter CategorizationRuleQueryFilter
	err := c.ShouldBind(&filter)
	if err != nil {
		s := httputil.ErrInvalidQueryString.Error()
		c.JSON(http.StatusBadRequest, CategorizationRuleListResponse{
			Error: &s,
		})
		return
	}

	// Get the fields that we are filtering for
	queryFields, setFields := httputil.GetURLFields(c.Request.URL, filter)
	filterModel := filter.model()

	q := models.DB.
		Order("priority ASC, created_at ASC").
		Where(&filterModel, queryFields...)

	if filter.Match != "" {
		q = q.Where("match LIKE ?", fmt.Sprintf("%%%s%%", filter.Match))
	} else if slices.Contains(setFields, "Match") {
		q = q.Where("match = ''")
	}

	limit := listLimit(setFields, filter.Limit)

	var rules []models.CategorizationRule
	err = q.Offset(int(filter.Offset)).Limit(limit).Find(&rules).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), CategorizationRuleListResponse{
			Error: &s,
		})
		return
	}

	var count int64
	err = q.Model(&models.CategorizationRule{}).Limit(-1).Offset(-1).Count(&count).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), CategorizationRuleListResponse{
			Error: &s,
		})
		return
	}

	data := make([]CategorizationRule, 0, len(rules))
	for _, rule := range rules {
		data = append(data, newCategorizationRule(c, rule))
	}

	c.JSON(http.StatusOK, CategorizationRuleListResponse{
		Data: data,
		Pagination: &Pagination{
			Count:  len(data),
			Total:  count,
			Offset: filter.Offset,
			Limit:  limit,
		},
	})
}

// @Summary		Get categorization rule
// @Description	Returns a specific categorization rule
// @Tags			Categorization Rules
// @Produce		json
// @Success		200	{object}	CategorizationRuleResponse
// @Failure		400	{object}	CategorizationRuleResponse
// @Failure		404	{object}	CategorizationRuleResponse
// @Failure		500	{object}	CategorizationRuleResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/categorization-rules/{id} [get]
func (co Controller) GetCategorizationRule(c *gin.Context) {
	rule, ok := getCategorizationRule(c)
	if !ok {
		return
	}

	data := newCategorizationRule(c, rule)
	c.JSON(http.StatusOK, CategorizationRuleResponse{Data: &data})
}

// @Summary		Update categorization rule
// @Description	Update an existing categorization rule. Only values to be updated need to be specified.
// @Tags			Categorization Rules
// @Accept			json
// @Produce		json
// @Success		200					{object}	CategorizationRuleResponse
// @Failure		400					{object}	CategorizationRuleResponse
// @Failure		404					{object}	CategorizationRuleResponse
// @Failure		500					{object}	CategorizationRuleResponse
// @Param			id					path		URIID						true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			categorizationRule	body		CategorizationRuleEditable	true	"Categorization Rule"
// @Router			/v1/categorization-rules/{id} [patch]
func (co Controller) UpdateCategorizationRule(c *gin.Context) {
	rule, ok := getCategorizationRule(c)
	if !ok {
		return
	}

	updateFields, err := httputil.GetBodyFields(c, CategorizationRuleEditable{})
	if err != nil {
		s := err.Error()
		c.JSON(status(err), CategorizationRuleResponse{
			Error: &s,
		})
		return
	}

	var data CategorizationRuleEditable
	err = httputil.BindData(c, &data)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), CategorizationRuleResponse{
			Error: &s,
		})
		return
	}

	applyFields(&rule, data.model(), updateFields)
	err = models.DB.Save(&rule).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), CategorizationRuleResponse{
			Error: &s,
		})
		return
	}

	r := newCategorizationRule(c, rule)
	c.JSON(http.StatusOK, CategorizationRuleResponse{Data: &r})
}

// @Summary		Delete categorization rule
// @Description	Deletes a categorization rule
// @Tags			Categorization Rules
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/categorization-rules/{id} [delete]
func (co Controller) DeleteCategorizationRule(c *gin.Context) {
	rule, ok := getCategorizationRule(c)
	if !ok {
		return
	}

	err := models.DB.Delete(&rule).Error
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	c.JSON(http.StatusNoContent, nil)
}
