package errors

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrAlreadyExists         = errors.New("already exists")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInvalidTag            = errors.New("invalid tag for point kind")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInvalidState          = errors.New("invalid state transition")
	ErrRecordNotFound        = errors.New("signing record not found")
	ErrSignatureVerification = errors.New("signature verification failed")
	ErrSigningWindowExpired  = errors.New("signing window expired")
	ErrWithdrawalInProgress  = errors.New("withdrawal already in progress")
)
