package v1

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/immoledger/backend/internal/allocator"
	"github.com/immoledger/backend/internal/importer"
	"github.com/immoledger/backend/internal/models"
	ez_uuid "github.com/immoledger/backend/internal/uuid"
	"github.com/shopspring/decimal"
)

// BankTransactionEditable represents all user configurable parameters
type BankTransactionEditable struct {
	Amount          decimal.Decimal `json:"amount" example:"1080" swaggertype:"string"`                      // Amount of the transaction. Positive for incoming, negative for outgoing money
	TransactionDate time.Time       `json:"transactionDate" example:"2024-05-02T00:00:00Z"`                  // Date of the transaction
	SenderReceiver  string          `json:"senderReceiver" example:"Erika Mustermann" default:""`            // Name of the other party
	Description     string          `json:"description" example:"Miete Mai 2024 Whg 3" default:""`           // Description (Verwendungszweck)
	Reference       string          `json:"reference" example:"SEPA-4711" default:""`                        // Reference of the bank
	IBAN            string          `json:"iban" example:"DE02120300000000202051" default:""`                // IBAN of the other party
	Currency        string          `json:"currency" example:"EUR" default:"EUR"`                            // ISO 4217 currency code
	Category        string          `json:"category" example:"rent_income" default:""`                       // Category of the transaction
	UnitID          *uuid.UUID      `json:"unitId" example:"8c7c2a8f-3b77-4e5c-a0f5-3f6a9d2e1b4c"`           // ID of the unit the transaction belongs to
	ContractID      *uuid.UUID      `json:"contractId" example:"3b1ea324-d438-4419-882a-2fc91d71772f"`       // ID of the contract the transaction belongs to
}

func (editable BankTransactionEditable) model() models.BankTransaction {
	return models.BankTransaction{
		Amount:          editable.Amount,
		TransactionDate: editable.TransactionDate,
		SenderReceiver:  editable.SenderReceiver,
		Description:     editable.Description,
		Reference:       editable.Reference,
		IBAN:            editable.IBAN,
		Currency:        editable.Currency,
		Category:        editable.Category,
		UnitID:          editable.UnitID,
		ContractID:      editable.ContractID,
	}
}

type BankTransactionLinks struct {
	Self     string `json:"self" example:"https://example.com/api/v1/bank-transactions/1e777d24-3f5b-4c43-8000-04f65f895578"` // The bank transaction itself
	Contract string `json:"contract" example:"https://example.com/api/v1/contracts/3b1ea324-d438-4419-882a-2fc91d71772f"`      // The contract. Empty when no contract is assigned
}

type BankTransaction struct {
	models.DefaultModel
	BankTransactionEditable
	Links BankTransactionLinks `json:"links"`

	// These fields are computed
	IsCategorized bool    `json:"isCategorized" example:"true"`                                                             // Is the transaction linked to at least one financial item?
	ImportHash    *string `json:"importHash" example:"8d0b59c3a8e5f5c6b1b64d1a2e1c0f0a7d8f3a2b1c4d5e6f708192a3b4c5d6e7"` // Hash of the bank statement line the transaction has been imported from
}

func newBankTransaction(c *gin.Context, model models.BankTransaction) BankTransaction {
	url := c.GetString(string(models.DBContextURL))

	transaction := BankTransaction{
		DefaultModel: model.DefaultModel,
		BankTransactionEditable: BankTransactionEditable{
			Amount:          model.Amount,
			TransactionDate: model.TransactionDate,
			SenderReceiver:  model.SenderReceiver,
			Description:     model.Description,
			Reference:       model.Reference,
			IBAN:            model.IBAN,
			Currency:        model.Currency,
			Category:        model.Category,
			UnitID:          model.UnitID,
			ContractID:      model.ContractID,
		},
		Links: BankTransactionLinks{
			Self: fmt.Sprintf("%s/v1/bank-transactions/%s", url, model.ID),
		},
		IsCategorized: model.IsCategorized,
		ImportHash:    model.ImportHash,
	}

	if model.ContractID != nil {
		transaction.Links.Contract = fmt.Sprintf("%s/v1/contracts/%s", url, *model.ContractID)
	}

	return transaction
}

type BankTransactionListResponse struct {
	Data       []BankTransaction `json:"data"`                                                          // List of Bank Transactions
	Error      *string           `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination       `json:"pagination"`                                                    // Pagination information
}

type BankTransactionCreateResponse struct {
	Data  []BankTransactionResponse `json:"data"`                                                          // List of the created Bank Transactions or their respective error
	Error *string                   `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

func (c *BankTransactionCreateResponse) appendError(err error, currentStatus int) int {
	s := err.Error()
	c.Data = append(c.Data, BankTransactionResponse{Error: &s})

	// The final status code is the highest HTTP status code number
	newStatus := status(err)
	if newStatus > currentStatus {
		return newStatus
	}

	return currentStatus
}

type BankTransactionResponse struct {
	Data  *BankTransaction `json:"data"`                                                          // Data for the Bank Transaction
	Error *string          `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type BankTransactionQueryFilter struct {
	Categorized    bool            `form:"categorized" filterField:"false"`                                     // Is the transaction linked to a financial item?
	Category       string          `form:"category"`                                                            // By category
	ContractID     ez_uuid.UUID    `form:"contract" filterField:"false"`                                        // By ID of the contract
	UnitID         ez_uuid.UUID    `form:"unit" filterField:"false"`                                            // By ID of the unit
	FromDate       time.Time       `form:"fromDate" time_format:"2006-01-02" time_utc:"1" filterField:"false"`  // Transaction date is the same or later
	UntilDate      time.Time       `form:"untilDate" time_format:"2006-01-02" time_utc:"1" filterField:"false"` // Transaction date is the same or earlier
	AmountMoreOrEq decimal.Decimal `form:"amountMoreOrEqual" filterField:"false"`                               // Amount more than or equal to
	AmountLessOrEq decimal.Decimal `form:"amountLessOrEqual" filterField:"false"`                               // Amount less than or equal to
	Search         string          `form:"search" filterField:"false"`                                          // By sender or receiver, description or reference
	Offset         uint            `form:"offset" filterField:"false"`                                          // The offset of the first Bank Transaction returned. Defaults to 0.
	Limit          int             `form:"limit" filterField:"false"`                                           // Maximum number of Bank Transactions to return. Defaults to 50.
}

func (f BankTransactionQueryFilter) model() models.BankTransaction {
	return models.BankTransaction{
		Category: f.Category,
	}
}

// TransactionIDsRequest lists the bank transactions an action is executed for.
type TransactionIDsRequest struct {
	TransactionIDs []uuid.UUID `json:"transactionIds"` // IDs of the bank transactions
}

type BulkResponse struct {
	Data  *allocator.BulkResult `json:"data"`                                                          // Result of the bulk operation
	Error *string               `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type SuggestionResponse struct {
	Data  *allocator.AutoResult `json:"data"`                                                            // Applied and pending suggestions
	Error *string               `json:"error" example:"could not get suggestions: context deadline exceeded"` // The error, if any occurred
}

type ImportResponse struct {
	Data  *importer.Result `json:"data"`                                                              // Result of the import
	Error *string          `json:"error" example:"the CSV file is missing a required column: Betrag"` // The error, if any occurred
}
