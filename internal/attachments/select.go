package attachments

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/sevexport/pkg/constants"
	"github.com/agentstation/sevexport/pkg/entities"
	"github.com/agentstation/sevexport/pkg/errors"
	"github.com/agentstation/sevexport/pkg/period"
)

// Miss is a correlation problem that degrades one attachment without
// stopping the run: a missing document, contact or an unreadable date.
type Miss struct {
	Source string `json:"source"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// Error implements the error interface.
func (m Miss) Error() string {
	return fmt.Sprintf("%s: %s", m.Source, m.Reason)
}

// Unwrap returns the underlying error.
func (m Miss) Unwrap() error {
	return m.Err
}

// Selection is the result of correlating a store with a month window.
type Selection struct {
	Requests []Request
	Misses   []Miss
}

// Select picks the attachments of window from store: sent or recurring
// invoices, vouchers, then credit notes, each in store order. It only reads
// the store and returns the same result for the same input.
func Select(store *entities.Store, window period.Window) Selection {
	c := &correlator{
		window:    window,
		contacts:  store.SetOrEmpty(ModelContact),
		documents: store.SetOrEmpty(ModelDocument).IndexBy("baseObject", "id"),
	}

	invoices := store.SetOrEmpty(ModelInvoice).Items()
	vouchers := store.SetOrEmpty(ModelVoucher).Items()

	for _, inv := range invoices {
		c.invoiceDocument(inv)
	}
	for _, v := range vouchers {
		c.voucherDocument(v)
	}
	for _, inv := range invoices {
		c.creditNote(inv)
	}

	return Selection{Requests: c.requests, Misses: c.misses}
}

type correlator struct {
	window    period.Window
	contacts  *entities.Set
	documents map[string]entities.Entity

	requests []Request
	misses   []Miss
}

func source(model string, e entities.Entity) string {
	return model + " " + e.ID()
}

func (c *correlator) miss(src string, err error) {
	c.misses = append(c.misses, Miss{Source: src, Reason: err.Error(), Err: err})
}

// dateInWindow parses field and reports whether it lies in the window.
// Missing or null fields are simply out of range.
func (c *correlator) dateInWindow(src string, e entities.Entity, field string) (time.Time, bool) {
	ts, ok, err := c.parseDate(e, field)
	if err != nil {
		c.miss(src, err)
	}
	return ts, ok
}

func (c *correlator) parseDate(e entities.Entity, field string) (time.Time, bool, error) {
	if e.IsNull(field) {
		return time.Time{}, false, nil
	}
	ts, err := period.ParseTimestamp(e.String(field))
	if err != nil {
		return time.Time{}, false, errors.WrapValidation(field, err)
	}
	return ts, c.window.Contains(ts), nil
}

func (c *correlator) invoiceDocument(inv entities.Entity) {
	src := source(ModelInvoice, inv)
	date, ok := c.dateInWindow(src, inv, "invoiceDate")
	if !ok {
		return
	}
	// Recurring invoices are sent automatically and carry no sendDate.
	if inv.IsNull("sendDate") && inv.IsNull("accountIntervall") {
		return
	}

	doc, ok := c.documents[inv.ID()]
	if !ok {
		c.miss(src, errors.NewNotFoundError(ModelDocument, "for invoice "+inv.ID()))
		return
	}

	c.requests = append(c.requests, Request{
		EntityID:    doc.ID(),
		Kind:        KindDocument,
		DisplayName: fmt.Sprintf("Rechnung %s %s - %s", date.Format(constants.TimeFormatFileDate), inv.String("invoiceNumber"), c.contactName(src, inv, "contact")),
		Source:      src,
	})
}

func (c *correlator) voucherDocument(v entities.Entity) {
	src := source(ModelVoucher, v)
	date, ok := c.dateInWindow(src, v, "voucherDate")
	if !ok {
		return
	}

	docID := v.String("document", "id")
	if docID == "" {
		return
	}

	// A recurring voucher belongs to the month its template started.
	if strings.TrimSpace(v.String("recurringStartDate")) != "" {
		if _, ok := c.dateInWindow(src, v, "recurringStartDate"); !ok {
			return
		}
	}

	name := fmt.Sprintf("Beleg %s %s", date.Format(constants.TimeFormatFileDate), v.String("invoiceNumber"))
	if supplier := c.contactName(src, v, "supplier"); strings.TrimSpace(supplier) != "" {
		name += " - " + supplier
	}

	c.requests = append(c.requests, Request{
		EntityID:    docID,
		Kind:        KindDocument,
		DisplayName: name,
		Source:      src,
	})
}

func (c *correlator) creditNote(inv entities.Entity) {
	if inv.String("invoiceType") != creditNoteType {
		return
	}
	src := source(ModelInvoice, inv)
	// Unreadable dates were already reported by the document pass.
	date, ok, _ := c.parseDate(inv, "invoiceDate")
	if !ok {
		return
	}

	c.requests = append(c.requests, Request{
		EntityID:    inv.ID(),
		Kind:        KindInvoicePDF,
		DisplayName: fmt.Sprintf("Stornorechnung %s %s - %s", date.Format(constants.TimeFormatFileDate), inv.String("invoiceNumber"), c.contactName(src, inv, "contact")),
		Source:      src,
	})
}

// contactName resolves the contact referenced by e.field.id. Organisations
// carry a name; people only surename and familyname.
func (c *correlator) contactName(src string, e entities.Entity, field string) string {
	if e.IsNull(field) {
		return ""
	}
	id := e.String(field, "id")
	contact, ok := c.contacts.Get(id)
	if !ok {
		c.miss(src, errors.NewNotFoundError(ModelContact, id))
		return ""
	}
	if name := contact.String("name"); strings.TrimSpace(name) != "" {
		return name
	}
	return strings.TrimSpace(contact.String("surename") + " " + contact.String("familyname"))
}
