package v1

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/immoledger/backend/internal/allocator"
	"github.com/immoledger/backend/internal/httputil"
	"github.com/immoledger/backend/internal/importer"
	"github.com/immoledger/backend/internal/models"
	"golang.org/x/exp/slices"
)

// RegisterBankTransactionRoutes registers the routes for bank transactions with
// the RouterGroup that is passed.
func (co Controller) RegisterBankTransactionRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", co.OptionsBankTransactionList)
		r.GET("", co.GetBankTransactions)
		r.POST("", co.CreateBankTransactions)
	}

	// Actions for multiple transactions
	{
		r.OPTIONS("/categorize", co.OptionsBankTransactionAction)
		r.POST("/categorize", co.CategorizeBankTransactions)
		r.OPTIONS("/uncategorize", co.OptionsBankTransactionAction)
		r.POST("/uncategorize", co.UncategorizeBankTransactions)
		r.OPTIONS("/suggestions", co.OptionsBankTransactionAction)
		r.POST("/suggestions", co.SuggestBankTransactionCategories)
		r.OPTIONS("/import", co.OptionsBankTransactionAction)
		r.POST("/import", co.ImportBankTransactions)
	}

	// Bank transaction with ID
	{
		r.OPTIONS("/:id", co.OptionsBankTransactionDetail)
		r.GET("/:id", co.GetBankTransaction)
		r.PATCH("/:id", co.UpdateBankTransaction)
		r.DELETE("/:id", co.DeleteBankTransaction)
	}
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Bank Transactions
// @Success		204
// @Router			/v1/bank-transactions [options]
func (co Controller) OptionsBankTransactionList(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Bank Transactions
// @Success		204
// @Router			/v1/bank-transactions/categorize [options]
// @Router			/v1/bank-transactions/uncategorize [options]
// @Router			/v1/bank-transactions/suggestions [options]
// @Router			/v1/bank-transactions/import [options]
func (co Controller) OptionsBankTransactionAction(c *gin.Context) {
	httputil.OptionsPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Bank Transactions
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/bank-transactions/{id} [options]
func (co Controller) OptionsBankTransactionDetail(c *gin.Context) {
	_, ok := getBankTransaction(c)
	if !ok {
		return
	}

	httputil.OptionsGetPatchDelete(c)
}

func getBankTransaction(c *gin.Context) (models.BankTransaction, bool) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return models.BankTransaction{}, false
	}

	var transaction models.BankTransaction
	err = models.DB.First(&transaction, uri.ID).Error
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return models.BankTransaction{}, false
	}

	return transaction, true
}

// @Summary		Create bank transactions
// @Description	Creates new bank transactions
// @Tags			Bank Transactions
// @Produce		json
// @Success		201					{object}	BankTransactionCreateResponse
// @Failure		400					{object}	BankTransactionCreateResponse
// @Failure		404					{object}	BankTransactionCreateResponse
// @Failure		500					{object}	BankTransactionCreateResponse
// @Param			bankTransactions	body		[]BankTransactionEditable	true	"Bank Transactions"
// @Router			/v1/bank-transactions [post]
func (co Controller) CreateBankTransactions(c *gin.Context) {
	var editables []BankTransactionEditable

	// Bind data and return error if not possible
	err := httputil.BindData(c, &editables)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), BankTransactionCreateResponse{
			Error: &e,
		})
		return
	}

	// The final http status. Will be modified when errors occur
	status := http.StatusCreated
	r := BankTransactionCreateResponse{}

	for _, editable := range editables {
		transaction := editable.model()

		err = models.DB.Create(&transaction).Error
		if err != nil {
			status = r.appendError(err, status)
			continue
		}

		data := newBankTransaction(c, transaction)
		r.Data = append(r.Data, BankTransactionResponse{Data: &data})
	}

	c.JSON(status, r)
}

// @Summary		Get bank transactions
// @Description	Returns a list of bank transactions, the most recent first
// @Tags			Bank Transactions
// @Produce		json
// @Success		200	{object}	BankTransactionListResponse
// @Failure		400	{object}	BankTransactionListResponse
// @Failure		500	{object}	BankTransactionListResponse
// @Router			/v1/bank-transactions [get]
// @Param			categorized			query	bool	false	"Is the transaction linked to a financial item?"
// @Param			category			query	string	false	"Filter by category"
// @Param			contract			query	string	false	"Filter by contract ID"
// @Param			unit				query	string	false	"Filter by unit ID"
// @Param			fromDate			query	string	false	"Transaction date is the same or later, format YYYY-MM-DD"
// @Param			untilDate			query	string	false	"Transaction date is the same or earlier, format YYYY-MM-DD"
// @Param			amountMoreOrEqual	query	string	false	"Amount more than or equal to"
// @Param			amountLessOrEqual	query	string	false	"Amount less than or equal to"
// @Param			search				query	string	false	"Search for this text in sender or receiver, description and reference"
// @Param			offset				query	uint	false	"The offset of the first Bank Transaction returned. Defaults to 0."
// @Param			limit				query	int		false	"Maximum number of Bank Transactions to return. Defaults to 50."
func (co Controller) GetBankTransactions(c *gin.Context) {
	var filter BankTransactionQueryFilter
	err := c.ShouldBind(&filter)
	if err != nil {
		s := httputil.ErrInvalidQueryString.Error()
		c.JSON(http.StatusBadRequest, BankTransactionListResponse{
			Error: &s,
		})
		return
	}

	// Get the fields that we are filtering for
	queryFields, setFields := httputil.GetURLFields(c.Request.URL, filter)
	filterModel := filter.model()

	q := models.DB.
		Order("transaction_date DESC, created_at DESC").
		Where(&filterModel, queryFields...)

	if slices.Contains(setFields, "Categorized") {
		q = q.Where("is_categorized = ?", filter.Categorized)
	}

	if slices.Contains(setFields, "ContractID") {
		q = q.Where("contract_id = ?", filter.ContractID.UUID)
	}

	if slices.Contains(setFields, "UnitID") {
		q = q.Where("unit_id = ?", filter.UnitID.UUID)
	}

	if !filter.FromDate.IsZero() {
		q = q.Where("transaction_date >= ?", filter.FromDate)
	}

	if !filter.UntilDate.IsZero() {
		q = q.Where("transaction_date < ?", filter.UntilDate.AddDate(0, 0, 1))
	}

	if slices.Contains(setFields, "AmountMoreOrEq") {
		q = q.Where("amount >= ?", filter.AmountMoreOrEq)
	}

	if slices.Contains(setFields, "AmountLessOrEq") {
		q = q.Where("amount <= ?", filter.AmountLessOrEq)
	}

	if filter.Search != "" {
		search := fmt.Sprintf("%%%s%%", filter.Search)
		q = q.Where("sender_receiver LIKE ? OR description LIKE ? OR reference LIKE ?", search, search, search)
	}

	limit := listLimit(setFields, filter.Limit)

	var transactions []models.BankTransaction
	err = q.Offset(int(filter.Offset)).Limit(limit).Find(&transactions).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), BankTransactionListResponse{
			Error: &s,
		})
		return
	}

	var count int64
	err = q.Model(&models.BankTransaction{}).Limit(-1).Offset(-1).Count(&count).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), BankTransactionListResponse{
			Error: &s,
		})
		return
	}

	data := make([]BankTransaction, 0, len(transactions))
	for _, transaction := range transactions {
		data = append(data, newBankTransaction(c, transaction))
	}

	c.JSON(http.StatusOK, BankTransactionListResponse{
		Data: data,
		Pagination: &Pagination{
			Count:  len(data),
			Total:  count,
			Offset: filter.Offset,
			Limit:  limit,
		},
	})
}

// @Summary		Get bank transaction
// @Description	Returns a specific bank transaction
// @Tags			Bank Transactions
// @Produce		json
// @Success		200	{object}	BankTransactionResponse
// @Failure		400	{object}	BankTransactionResponse
// @Failure		404	{object}	BankTransactionResponse
// @Failure		500	{object}	BankTransactionResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/bank-transactions/{id} [get]
func (co Controller) GetBankTransaction(c *gin.Context) {
	transaction, ok := getBankTransaction(c)
	if !ok {
		return
	}

	data := newBankTransaction(c, transaction)
	c.JSON(http.StatusOK, BankTransactionResponse{Data: &data})
}

// @Summary		Update bank transaction
// @Description	Update an existing bank transaction. Only values to be updated need to be specified. The amount can not be reduced below any of its allocations.
// @Tags			Bank Transactions
// @Accept			json
// @Produce		json
// @Success		200				{object}	BankTransactionResponse
// @Failure		400				{object}	BankTransactionResponse
// @Failure		404				{object}	BankTransactionResponse
// @Failure		500				{object}	BankTransactionResponse
// @Param			id				path		URIID					true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			bankTransaction	body		BankTransactionEditable	true	"Bank Transaction"
// @Router			/v1/bank-transactions/{id} [patch]
func (co Controller) UpdateBankTransaction(c *gin.Context) {
	transaction, ok := getBankTransaction(c)
	if !ok {
		return
	}

	updateFields, err := httputil.GetBodyFields(c, BankTransactionEditable{})
	if err != nil {
		s := err.Error()
		c.JSON(status(err), BankTransactionResponse{
			Error: &s,
		})
		return
	}

	var data BankTransactionEditable
	err = httputil.BindData(c, &data)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), BankTransactionResponse{
			Error: &s,
		})
		return
	}

	applyFields(&transaction, data.model(), updateFields)

	// Every allocation must still fit into the transaction
	var exceeding int64
	err = models.DB.
		Model(&models.FinancialItemLink{}).
		Where(&models.FinancialItemLink{TransactionID: transaction.ID}).
		Where("linked_amount > ?", transaction.AbsAmount()).
		Count(&exceeding).Error
	if err == nil && exceeding > 0 {
		err = allocator.ErrLinkExceedsTransaction
	}
	if err != nil {
		s := err.Error()
		c.JSON(status(err), BankTransactionResponse{
			Error: &s,
		})
		return
	}

	err = models.DB.Omit("Contract").Save(&transaction).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), BankTransactionResponse{
			Error: &s,
		})
		return
	}

	r := newBankTransaction(c, transaction)
	c.JSON(http.StatusOK, BankTransactionResponse{Data: &r})
}

// @Summary		Delete bank transaction
// @Description	Deletes a bank transaction. Its allocations are removed and the amounts of the financial items are updated.
// @Tags			Bank Transactions
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/bank-transactions/{id} [delete]
func (co Controller) DeleteBankTransaction(c *gin.Context) {
	transaction, ok := getBankTransaction(c)
	if !ok {
		return
	}

	err := allocator.Uncategorize(c.Request.Context(), models.DB, transaction.ID)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	err = models.DB.Delete(&transaction).Error
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	c.JSON(http.StatusNoContent, nil)
}

// @Summary		Categorize bank transactions
// @Description	Sets category, contract and unit for all transactions and creates or updates the allocations. Every transaction and allocation is processed on its own, failures are listed in the details.
// @Tags			Bank Transactions
// @Accept			json
// @Produce		json
// @Success		200		{object}	BulkResponse
// @Failure		400		{object}	BulkResponse
// @Param			request	body		allocator.BulkRequest	true	"Categorization"
// @Router			/v1/bank-transactions/categorize [post]
func (co Controller) CategorizeBankTransactions(c *gin.Context) {
	var request allocator.BulkRequest
	err := httputil.BindData(c, &request)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), BulkResponse{
			Error: &s,
		})
		return
	}

	result := allocator.BulkCategorize(c.Request.Context(), models.DB, request)
	c.JSON(http.StatusOK, BulkResponse{Data: &result})
}

// @Summary		Uncategorize bank transactions
// @Description	Removes the category and all allocations of the transactions. The amounts of the financial items are updated.
// @Tags			Bank Transactions
// @Accept			json
// @Produce		json
// @Success		200		{object}	BulkResponse
// @Failure		400		{object}	BulkResponse
// @Param			request	body		TransactionIDsRequest	true	"Transactions"
// @Router			/v1/bank-transactions/uncategorize [post]
func (co Controller) UncategorizeBankTransactions(c *gin.Context) {
	var request TransactionIDsRequest
	err := httputil.BindData(c, &request)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), BulkResponse{
			Error: &s,
		})
		return
	}

	result := allocator.BulkUncategorize(c.Request.Context(), models.DB, request.TransactionIDs)
	c.JSON(http.StatusOK, BulkResponse{Data: &result})
}

// @Summary		Suggest categories
// @Description	Proposes categories for the transactions. Suggestions with a high confidence are applied, the others are returned for confirmation. Without a body, all transactions without category are processed.
// @Tags			Bank Transactions
// @Accept			json
// @Produce		json
// @Success		200		{object}	SuggestionResponse
// @Failure		400		{object}	SuggestionResponse
// @Failure		500		{object}	SuggestionResponse
// @Param			request	body		TransactionIDsRequest	false	"Transactions"
// @Router			/v1/bank-transactions/suggestions [post]
func (co Controller) SuggestBankTransactionCategories(c *gin.Context) {
	// The body is optional
	var request TransactionIDsRequest
	err := httputil.BindData(c, &request)
	if err != nil && !errors.Is(err, httputil.ErrRequestBodyEmpty) {
		s := err.Error()
		c.JSON(status(err), SuggestionResponse{
			Error: &s,
		})
		return
	}

	result, err := allocator.AutoCategorize(c.Request.Context(), models.DB, co.suggester(), request.TransactionIDs)
	if err != nil {
		s := err.Error()
		c.JSON(http.StatusInternalServerError, SuggestionResponse{
			Error: &s,
		})
		return
	}

	c.JSON(http.StatusOK, SuggestionResponse{Data: &result})
}

// getUploadedFile returns the form file and handles potential errors.
func getUploadedFile(c *gin.Context, suffix string) (multipart.File, error) {
	formFile, err := c.FormFile("file")
	if formFile == nil {
		return nil, errNoFilePost
	}

	if err != nil {
		return nil, err
	}

	if !strings.HasSuffix(strings.ToLower(formFile.Filename), suffix) {
		return nil, fmt.Errorf("%w: %s", errWrongFileSuffix, suffix)
	}

	return formFile.Open()
}

// @Summary		Import bank statement
// @Description	Imports the transactions of a CSV bank statement. Lines that have already been imported are skipped.
// @Tags			Bank Transactions
// @Accept			multipart/form-data
// @Produce		json
// @Success		201		{object}	ImportResponse
// @Failure		400		{object}	ImportResponse
// @Failure		500		{object}	ImportResponse
// @Param			file	formData	file	true	"File to import"
// @Router			/v1/bank-transactions/import [post]
func (co Controller) ImportBankTransactions(c *gin.Context) {
	f, err := getUploadedFile(c, ".csv")
	if err != nil {
		s := err.Error()
		c.JSON(http.StatusBadRequest, ImportResponse{
			Error: &s,
		})
		return
	}
	defer f.Close()

	result, err := importer.ImportCSV(c.Request.Context(), models.DB, f)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), ImportResponse{
			Error: &s,
		})
		return
	}

	c.JSON(http.StatusCreated, ImportResponse{Data: &result})
}
