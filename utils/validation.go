package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	tcknPattern = regexp.MustCompile(`^\d{11}$`)
	vknPattern  = regexp.MustCompile(`^\d{10}$`)
)

// ValidationError represents an invoice or checkout field validation error
type ValidationError struct {
	Code    string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateTCKN checks that a Turkish national id is 11 digits
func ValidateTCKN(tckn string) error {
	if !tcknPattern.MatchString(tckn) {
		return &ValidationError{
			Code:    "INVALID_TCKN",
			Field:   "tckn",
			Message: "TCKN 11 haneli rakam olmalıdır.",
		}
	}
	return nil
}

// ValidateVKN checks that a Turkish tax number is 10 digits
func ValidateVKN(vkn string) error {
	if !vknPattern.MatchString(vkn) {
		return &ValidationError{
			Code:    "INVALID_VKN",
			Field:   "vkn",
			Message: "VKN 10 haneli rakam olmalıdır.",
		}
	}
	return nil
}

// InvoiceFields is the subset of invoice data that needs cross-field checks
type InvoiceFields struct {
	Type         string
	TCKN         string
	VKN          string
	TaxOffice    string
	KVKKApproved bool
}

// ValidateInvoice applies the individual/corporate invoice rules:
// individual invoices need a TCKN, corporate ones a VKN and tax office,
// and both need the KVKK consent.
func ValidateInvoice(f InvoiceFields) error {
	switch f.Type {
	case "bireysel":
		if err := ValidateTCKN(f.TCKN); err != nil {
			return err
		}
	case "kurumsal":
		if err := ValidateVKN(f.VKN); err != nil {
			return err
		}
		if strings.TrimSpace(f.TaxOffice) == "" {
			return &ValidationError{
				Code:    "MISSING_TAX_OFFICE",
				Field:   "tax_office",
				Message: "Kurumsal fatura için vergi dairesi gereklidir.",
			}
		}
	default:
		return &ValidationError{
			Code:    "INVALID_INVOICE_TYPE",
			Field:   "invoice_type",
			Message: fmt.Sprintf("Geçersiz fatura tipi: %q", f.Type),
		}
	}

	if !f.KVKKApproved {
		return &ValidationError{
			Code:    "KVKK_REQUIRED",
			Field:   "kvkk_approved",
			Message: "KVKK aydınlatma metni onaylanmalıdır.",
		}
	}
	return nil
}
