package errors

import (
	"errors"
	"fmt"
)

// Kind is the stable, machine-readable error category surfaced to callers.
type Kind string

const (
	KindValidation     Kind = "VALIDATION_ERROR"
	KindAuthentication Kind = "AUTHENTICATION_ERROR"
	KindAuthorization  Kind = "AUTHORIZATION_ERROR"
	KindNotFound       Kind = "NOT_FOUND"
	KindInvalidState   Kind = "INVALID_STATE"
	KindInsufficient   Kind = "INSUFFICIENT_FUNDS"
	KindOverpayment    Kind = "OVERPAYMENT"
	KindRetryable      Kind = "RETRYABLE"
	KindInternal       Kind = "INTERNAL"
)

// Domain errors
var (
	ErrValidation        = errors.New("validation failed")
	ErrUnauthenticated   = errors.New("authentication required")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrInvalidState      = errors.New("invalid state")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOverpayment       = errors.New("payment exceeds outstanding amount")
	ErrRetryable         = errors.New("temporarily unavailable")
	ErrInternal          = errors.New("internal error")
	ErrInvariant         = errors.New("data invariant violated")
)

var kindSentinels = map[Kind]error{
	KindValidation:     ErrValidation,
	KindAuthentication: ErrUnauthenticated,
	KindAuthorization:  ErrForbidden,
	KindNotFound:       ErrNotFound,
	KindInvalidState:   ErrInvalidState,
	KindInsufficient:   ErrInsufficientFunds,
	KindOverpayment:    ErrOverpayment,
	KindRetryable:      ErrRetryable,
	KindInternal:       ErrInternal,
}

// BusinessError represents a business logic error
type BusinessError struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match a BusinessError against its kind sentinel even when
// the wrapped cause is something else (a driver error, for instance).
func (e *BusinessError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// NewBusinessError creates a new business error
func NewBusinessError(kind Kind, code, message string, err error) *BusinessError {
	return &BusinessError{
		Kind:    kind,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// KindOf reports the kind of err, or KindInternal for errors that did not
// originate in the domain.
func KindOf(err error) Kind {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindInternal
}

// Error codes
const (
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeInvalidAmount       = "INVALID_AMOUNT"
	ErrCodeInvalidApplication  = "INVALID_APPLICATION"
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeAuthRequired        = "AUTHENTICATION_REQUIRED"
	ErrCodeAdminRequired       = "ADMIN_REQUIRED"
	ErrCodeLoanForbidden       = "LOAN_FORBIDDEN"
	ErrCodeLoanNotFound        = "LOAN_NOT_FOUND"
	ErrCodeWalletNotFound      = "WALLET_NOT_FOUND"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeTransactionNotFound = "TRANSACTION_NOT_FOUND"
	ErrCodeEmailTaken          = "EMAIL_ALREADY_REGISTERED"
	ErrCodeInvalidTransition   = "INVALID_TRANSITION"
	ErrCodeLoanNotPending      = "LOAN_NOT_PENDING"
	ErrCodeLoanNotActive       = "LOAN_NOT_ACTIVE"
	ErrCodeInsufficientFunds   = "INSUFFICIENT_FUNDS"
	ErrCodeOverpayment         = "OVERPAYMENT"
	ErrCodeRetryable           = "TRANSIENT_STORE_FAILURE"
	ErrCodeDatabaseError       = "DATABASE_ERROR"
	ErrCodeInvariantViolation  = "INVARIANT_VIOLATION"
	ErrCodeRateLimited         = "RATE_LIMITED"
	ErrCodeIdempotencyRequired = "IDEMPOTENCY_KEY_REQUIRED"
	ErrCodeIdempotencyReused   = "IDEMPOTENCY_KEY_REUSED"
	ErrCodeTokenIssue          = "TOKEN_ISSUE_FAILED"
)

// Wrap common errors with business context

func WrapInvalidInput(message string) *BusinessError {
	return NewBusinessError(KindValidation, ErrCodeInvalidInput, message, ErrValidation)
}

func WrapInvalidAmount(message string) *BusinessError {
	return NewBusinessError(KindValidation, ErrCodeInvalidAmount, message, ErrValidation)
}

func WrapInvalidApplication(message string) *BusinessError {
	return NewBusinessError(KindValidation, ErrCodeInvalidApplication, message, ErrValidation)
}

func WrapInvalidRequest(err error) *BusinessError {
	return NewBusinessError(KindValidation, ErrCodeInvalidRequest, "Request validation failed", err)
}

func WrapIdempotencyKeyRequired() *BusinessError {
	return NewBusinessError(KindValidation, ErrCodeIdempotencyRequired, "idempotency_key is required", ErrValidation)
}

func WrapIdempotencyKeyReused(key string) *BusinessError {
	return NewBusinessError(
		KindValidation,
		ErrCodeIdempotencyReused,
		fmt.Sprintf("idempotency_key %q was already used for a different operation", key),
		ErrValidation,
	)
}

func WrapInvalidCredentials() *BusinessError {
	return NewBusinessError(KindAuthentication, ErrCodeInvalidCredentials, "Incorrect email or password", ErrUnauthenticated)
}

func WrapAuthenticationRequired(err error) *BusinessError {
	return NewBusinessError(KindAuthentication, ErrCodeAuthRequired, "You must be authenticated to access this resource", err)
}

func WrapAdminRequired() *BusinessError {
	return NewBusinessError(KindAuthorization, ErrCodeAdminRequired, "Admin role required", ErrForbidden)
}

func WrapLoanForbidden(loanID string) *BusinessError {
	return NewBusinessError(
		KindAuthorization,
		ErrCodeLoanForbidden,
		fmt.Sprintf("Not authorized to access loan %s", loanID),
		ErrForbidden,
	)
}

func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		KindNotFound,
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrNotFound,
	)
}

func WrapWalletNotFound(userID string) *BusinessError {
	return NewBusinessError(
		KindNotFound,
		ErrCodeWalletNotFound,
		fmt.Sprintf("Wallet for user %s not found", userID),
		ErrNotFound,
	)
}

func WrapUserNotFound(userID string) *BusinessError {
	return NewBusinessError(
		KindNotFound,
		ErrCodeUserNotFound,
		fmt.Sprintf("User with ID %s not found", userID),
		ErrNotFound,
	)
}

func WrapTransactionNotFound(id string) *BusinessError {
	return NewBusinessError(
		KindNotFound,
		ErrCodeTransactionNotFound,
		fmt.Sprintf("Transaction with ID %s not found", id),
		ErrNotFound,
	)
}

func WrapEmailTaken(email string) *BusinessError {
	return NewBusinessError(
		KindValidation,
		ErrCodeEmailTaken,
		fmt.Sprintf("Email %s is already registered", email),
		ErrValidation,
	)
}

func WrapInvalidTransition(from, to string) *BusinessError {
	return NewBusinessError(
		KindInvalidState,
		ErrCodeInvalidTransition,
		fmt.Sprintf("Cannot move loan from %s to %s", from, to),
		ErrInvalidState,
	)
}

func WrapLoanNotPending(loanID, status string) *BusinessError {
	return NewBusinessError(
		KindInvalidState,
		ErrCodeLoanNotPending,
		fmt.Sprintf("Loan %s is %s and can no longer be decided", loanID, status),
		ErrInvalidState,
	)
}

func WrapLoanNotActive(loanID, status string) *BusinessError {
	return NewBusinessError(
		KindInvalidState,
		ErrCodeLoanNotActive,
		fmt.Sprintf("Cannot repay loan %s in %s state", loanID, status),
		ErrInvalidState,
	)
}

func WrapInsufficientFunds(available, required string) *BusinessError {
	return NewBusinessError(
		KindInsufficient,
		ErrCodeInsufficientFunds,
		fmt.Sprintf("Insufficient balance. Available: %s, Required: %s", available, required),
		ErrInsufficientFunds,
	)
}

func WrapOverpayment(amount, outstanding string) *BusinessError {
	return NewBusinessError(
		KindOverpayment,
		ErrCodeOverpayment,
		fmt.Sprintf("Repayment amount (%s) exceeds outstanding (%s)", amount, outstanding),
		ErrOverpayment,
	)
}

func WrapRetryable(err error) *BusinessError {
	return NewBusinessError(
		KindRetryable,
		ErrCodeRetryable,
		"The store is busy, retry the request with the same idempotency key",
		err,
	)
}

func WrapRateLimited(retryAfter int) *BusinessError {
	return NewBusinessError(
		KindRetryable,
		ErrCodeRateLimited,
		fmt.Sprintf("Too many requests, retry in %d seconds", retryAfter),
		ErrRetryable,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		KindInternal,
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapTokenIssue(err error) *BusinessError {
	return NewBusinessError(
		KindInternal,
		ErrCodeTokenIssue,
		"access token could not be issued",
		err,
	)
}

func WrapInvariantViolation(message string) *BusinessError {
	return NewBusinessError(
		KindInternal,
		ErrCodeInvariantViolation,
		message,
		ErrInvariant,
	)
}
