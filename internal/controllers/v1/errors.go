package v1

import (
	"errors"
	"net/http"

	"github.com/immoledger/backend/internal/models"
)

type httpError struct {
	Error string `json:"error" example:"the specified resource ID is not a valid UUID"`
}

// status returns the appropriate status for an error
func status(err error) int {
	if errors.Is(err, models.ErrGeneral) {
		return http.StatusInternalServerError
	}

	if errors.Is(err, models.ErrResourceNotFound) {
		return http.StatusNotFound
	}

	return http.StatusBadRequest
}

// Cleanup errors
var (
	errCleanupConfirmation = errors.New("the confirmation for the cleanup API call was incorrect")
)

// Import errors
var (
	errNoFilePost      = errors.New("you must send a file to this endpoint")
	errWrongFileSuffix = errors.New("this endpoint only supports files of the following types")
)

// Contract errors
var (
	errContractHasItems = errors.New("the contract still has financial items and can not be deleted")
)

// Filter errors
var (
	errStatusInvalid = errors.New("the status must be one of 'pending', 'partial', 'paid', 'overdue' or 'settled'")
	errTypeInvalid   = errors.New("the type must be 'receivable' or 'payable'")
)
