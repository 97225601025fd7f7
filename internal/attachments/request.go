// Package attachments decides which documents of a month are exported,
// names them and downloads their bytes.
package attachments

import (
	"strings"
)

// Model names the correlator reads from the store.
const (
	ModelContact  = "Contact"
	ModelDocument = "Document"
	ModelInvoice  = "Invoice"
	ModelVoucher  = "Voucher"
)

// creditNoteType marks an invoice as a credit note (Stornorechnung).
const creditNoteType = "SR"

// Kind selects the download endpoint for a Request.
type Kind int

const (
	// KindDocument downloads a stored document via /Document/{id}/download.
	KindDocument Kind = iota
	// KindInvoicePDF renders an invoice via /Invoice/{id}/getPdf.
	KindInvoicePDF
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindInvoicePDF:
		return "invoice pdf"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Request is one attachment selected for download.
type Request struct {
	// EntityID is the Document id for KindDocument, the Invoice id for KindInvoicePDF.
	EntityID    string `json:"entity_id"`
	Kind        Kind   `json:"kind"`
	DisplayName string `json:"display_name"`
	// Source is the record that caused the selection, e.g. "Invoice 42".
	Source string `json:"source"`
}

// Attachment is a downloaded Request ready to be written.
type Attachment struct {
	Request  Request
	FileName string
	Data     []byte
}

// FileName joins the display name with the file name the API reported and
// replaces path separators.
func FileName(displayName, originalName string) string {
	return sanitize(displayName + " - " + originalName)
}

var separatorReplacer = strings.NewReplacer("/", "_", "\\", "_")

func sanitize(name string) string {
	return separatorReplacer.Replace(name)
}
