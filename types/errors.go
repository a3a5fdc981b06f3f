package types

// Error codes. Callers match on these to render specific remediation
// instead of a generic failure message.
const (
	// -----------------------------
	// LOCAL VALIDATION
	// -----------------------------
	ErrInvalidAddress = "INVALID_ADDRESS"
	ErrInvalidAmount  = "INVALID_AMOUNT"

	// -----------------------------
	// ROUTING / PROVIDER REJECTIONS
	// -----------------------------
	ErrUnsupportedToken = "UNSUPPORTED_TOKEN"
	ErrUnsupportedChain = "UNSUPPORTED_CHAIN"
	ErrRouteUnavailable = "ROUTE_UNAVAILABLE"

	// -----------------------------
	// LIFECYCLE GUARDS
	// -----------------------------
	ErrAlreadyPaid    = "ALREADY_PAID"
	ErrWalletRequired = "WALLET_REQUIRED"

	// -----------------------------
	// EXECUTION
	// -----------------------------
	ErrProviderFailure     = "PROVIDER_FAILURE"
	ErrInsufficientBalance = "INSUFFICIENT_BALANCE"
	ErrTransferFailed      = "TRANSFER_FAILED"
)

// SettleError is the typed error returned across the orchestration
// surface.
type SettleError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *SettleError) Error() string {
	return e.Message
}

// NewError builds a SettleError with the given code and message.
func NewError(code, message string) *SettleError {
	return &SettleError{Code: code, Message: message}
}

// ErrorCode extracts the SettleError code from err, or "" if err is not
// a SettleError.
func ErrorCode(err error) string {
	if se, ok := err.(*SettleError); ok {
		return se.Code
	}
	return ""
}

// IsRetryable reports whether the operation that produced err may be
// retried without side effects. Provider failures and transfer failures
// leave no partial state behind.
func IsRetryable(err error) bool {
	switch ErrorCode(err) {
	case ErrProviderFailure, ErrTransferFailed:
		return true
	}
	return false
}
