package models

import (
	"errors"
)

var (
	ErrGeneral                = errors.New("an error occurred on the server during your request")
	ErrResourceNotFound       = errors.New("there is no")
	ErrFinancialItemNotUnique = errors.New("there already is an automatic financial item for this contract, month and category")
	ErrLinkNotUnique          = errors.New("the transaction is already linked to this financial item")
	ErrImportHashNotUnique    = errors.New("a bank transaction with this import hash already exists")
	ErrInvalidReference       = errors.New("there is no resource for the ID you specified in the reference to another resource")

	ErrContractStartDateMissing     = errors.New("the contract must have a start date")
	ErrContractEndBeforeStart       = errors.New("the end date of the contract must not be before its start date")
	ErrContractDepositInstallments  = errors.New("the deposit must be paid in at least one installment")
	ErrContractRentDueDay           = errors.New("the rent due day must be between 1 and 31")
	ErrNegativeAmount               = errors.New("amounts must not be negative")
	ErrRentChangeEffectiveDate      = errors.New("the rent change must have an effective date")
	ErrFinancialItemType            = errors.New("the type of a financial item must be 'receivable' or 'payable'")
	ErrFinancialItemPaymentMonth    = errors.New("the financial item must have a payment month")
	ErrLinkAmountNotPositive        = errors.New("the linked amount must be greater than zero")
	ErrCategorizationRuleNoCategory = errors.New("a categorization rule must set a category")
)
