package library

import "errors"

// Operation errors. Callers match them with errors.Is; the messages
// double as console output.
var (
	ErrInvalidDNI        = errors.New("invalid DNI")
	ErrDuplicateDNI      = errors.New("a user with this DNI already exists")
	ErrNotFound          = errors.New("not found")
	ErrAlreadyOnLoan     = errors.New("book is already on loan")
	ErrNotOnLoan         = errors.New("book is not on loan")
	ErrLoanLimitExceeded = errors.New("borrower already has 3 books on loan")
	ErrSecretTooShort    = errors.New("password must be at least 4 characters")
	ErrSecretMismatch    = errors.New("passwords do not match")

	// ErrAuthFailed deliberately covers unknown DNI, missing credential
	// and wrong secret alike, so a login attempt reveals nothing about
	// which DNIs exist.
	ErrAuthFailed = errors.New("invalid DNI or password")
)
