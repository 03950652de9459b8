package reconciliation

import "errors"

// Domain errors. Handlers translate them into HTTP status codes via ErrorCode.
var (
	// ErrNotFound: transaction or invoice missing, or owned by another organization.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyMatched: the transaction already has a linked payment.
	ErrAlreadyMatched = errors.New("transaction already matched")

	// ErrNotMatched: unmatch requested for a transaction without a linked payment.
	ErrNotMatched = errors.New("transaction not matched")

	// ErrInvoiceNotPayable: the invoice is DRAFT or CANCELLED.
	ErrInvoiceNotPayable = errors.New("invoice not payable")
)

const (
	CodeNotFound          = "NOT_FOUND"
	CodeAlreadyMatched    = "ALREADY_MATCHED"
	CodeNotMatched        = "NOT_MATCHED"
	CodeInvoiceNotPayable = "INVOICE_NOT_PAYABLE"
)

// ErrorCode returns the stable code of a domain error, or "" for anything else.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrAlreadyMatched):
		return CodeAlreadyMatched
	case errors.Is(err, ErrNotMatched):
		return CodeNotMatched
	case errors.Is(err, ErrInvoiceNotPayable):
		return CodeInvoiceNotPayable
	default:
		return ""
	}
}
