package storage

import "errors"

var (
	// ErrCredentialNotFound is returned when a proxy credential is not found
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrAccountNotFound is returned when an account is not found
	ErrAccountNotFound = errors.New("account not found")

	// ErrAlertNotFound is returned when a spending alert is not found
	ErrAlertNotFound = errors.New("alert not found")

	// ErrRequestLogNotFound is returned when a request log entry is not found
	ErrRequestLogNotFound = errors.New("request log entry not found")
)
