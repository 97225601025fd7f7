package sevexport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/sevexport/internal/attachments"
	"github.com/agentstation/sevexport/internal/sink"
	"github.com/agentstation/sevexport/internal/transport"
	"github.com/agentstation/sevexport/pkg/endpoints"
	"github.com/agentstation/sevexport/pkg/entities"
	"github.com/agentstation/sevexport/pkg/errors"
	"github.com/agentstation/sevexport/pkg/period"
)

const testToken = "0123456789abcdef"

var pdf = []byte("%PDF-1.4 fake")

// fakeSevDesk serves paginated lists and downloads below /api/v1.
type fakeSevDesk struct {
	mu       sync.Mutex
	lists    map[string][]map[string]any
	requests []string
}

func newFakeSevDesk() *fakeSevDesk {
	return &fakeSevDesk{lists: map[string][]map[string]any{
		"Contact": {
			{"id": "1", "name": "ACME GmbH"},
			{"id": "2", "name": "", "surename": "Jane", "familyname": "Doe"},
		},
		"Document": {
			{"id": "900", "baseObject": map[string]any{"id": "10", "objectName": "Invoice"}},
			{"id": "901", "baseObject": map[string]any{"id": "11", "objectName": "Invoice"}},
			{"id": "700", "baseObject": nil},
		},
		"Invoice": {
			{"id": "10", "invoiceNumber": "RE-1001", "invoiceType": "RE", "invoiceDate": "2020-05-10T00:00:00+02:00",
				"sendDate": "2020-05-10T00:00:00+02:00", "accountIntervall": nil, "contact": map[string]any{"id": "1"}},
			{"id": "11", "invoiceNumber": "RE-1002", "invoiceType": "RE", "invoiceDate": "2020-05-11T00:00:00+02:00",
				"sendDate": nil, "accountIntervall": nil, "contact": map[string]any{"id": "1"}},
			{"id": "12", "invoiceNumber": "SR-1", "invoiceType": "SR", "invoiceDate": "2020-05-13T00:00:00+02:00",
				"sendDate": "2020-05-13T00:00:00+02:00", "contact": map[string]any{"id": "2"}},
		},
		"Invoice/10/getPositions": {{"id": "5001", "name": "Consulting"}},
		"Invoice/11/getPositions": {{"id": "5002", "name": "Support"}},
		"Invoice/12/getPositions": {{"id": "5003", "name": "Refund"}},
		"Voucher": {
			{"id": "20", "invoiceNumber": "B-1", "voucherDate": "2020-05-12T00:00:00+02:00",
				"document": map[string]any{"id": "700"}, "supplier": map[string]any{"id": "2"}},
			{"id": "21", "invoiceNumber": "B-2", "voucherDate": "2020-05-14T00:00:00+02:00",
				"document": map[string]any{"id": "701"}},
		},
	}}
}

func (f *fakeSevDesk) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.URL.Path)
	f.mu.Unlock()

	if r.Header.Get("Authorization") != testToken {
		http.Error(w, `{"error":{"message":"Authentication required"}}`, http.StatusUnauthorized)
		return
	}

	p := strings.TrimPrefix(r.URL.Path, "/api/v1/")
	switch {
	case p == "Document/900/download", p == "Document/700/download":
		w.Header().Set("Content-Type", "application/json")
		name := map[string]string{"Document/900/download": "RE-1001.pdf", "Document/700/download": "beleg.pdf"}[p]
		_ = json.NewEncoder(w).Encode(map[string]any{"objects": map[string]any{
			"filename": name, "content": base64.StdEncoding.EncodeToString(pdf), "base64encoded": true,
		}})
		return
	case p == "Invoice/12/getPdf":
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"objects": map[string]any{
			"filename": "SR-1.pdf", "content": base64.StdEncoding.EncodeToString(pdf),
		}})
		return
	case strings.HasSuffix(p, "/download"):
		http.Error(w, "storage unavailable", http.StatusInternalServerError)
		return
	}

	all, ok := f.lists[p]
	if !ok {
		http.NotFound(w, r)
		return
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	page := []map[string]any{}
	if offset < len(all) {
		page = all[offset:min(offset+limit, len(all))]
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"objects": page})
}

func testCatalog(t *testing.T) *endpoints.Catalog {
	t.Helper()
	catalog, err := endpoints.New(
		endpoints.Descriptor{ModelName: "Contact", RelativeURL: "Contact", AdditionalParameters: map[string]string{"depth": "1"}},
		endpoints.Descriptor{ModelName: "Document", RelativeURL: "Document"},
		endpoints.Descriptor{ModelName: "Invoice", RelativeURL: "Invoice"},
		endpoints.Descriptor{
			ModelName:   "InvoicePos",
			RelativeURL: "Invoice/{invoiceId}/getPositions",
			PathReplacement: &endpoints.Dependency{
				BaseModel: "Invoice", URLParameterName: "invoiceId", ObjectProperty: "id",
			},
		},
		endpoints.Descriptor{ModelName: "Voucher", RelativeURL: "Voucher"},
	)
	require.NoError(t, err)
	return catalog
}

var runTime = time.Date(2020, time.June, 2, 9, 5, 0, 0, time.UTC)

func newTestExporter(t *testing.T, api *fakeSevDesk, token string, opts ...Option) (Exporter, *sink.FolderSink) {
	t.Helper()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	folder, err := sink.NewFolderSink(t.TempDir(), runTime)
	require.NoError(t, err)

	base := []Option{
		WithTransport(transport.New(token, transport.WithRateLimit(0, 0))),
		WithSink(folder),
		WithCatalog(testCatalog(t)),
		WithBaseURL(server.URL + "/api/v1"),
		WithFolder(folder.Root()),
		WithClock(func() time.Time { return runTime }),
	}
	exp, err := New(append(base, opts...)...)
	require.NoError(t, err)
	return exp, folder
}

func may2020(t *testing.T) period.Month {
	t.Helper()
	m, err := period.NewMonth(2020, 5)
	require.NoError(t, err)
	return m
}

func readJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func TestExportWritesModelsAndDocuments(t *testing.T) {
	api := newFakeSevDesk()
	exp, folder := newTestExporter(t, api, testToken)

	var fetched []string
	var saved, skipped int
	exp.OnModelFetched(func(set *entities.Set) { fetched = append(fetched, set.Model()) })
	exp.OnAttachmentSaved(func(*attachments.Attachment) { saved++ })
	exp.OnAttachmentSkipped(func(attachments.Request, error) { skipped++ })

	summary, err := exp.Export(context.Background(), may2020(t))
	require.NoError(t, err)

	_, err = uuid.Parse(summary.RunID)
	assert.NoError(t, err)
	assert.Equal(t, "2020-05", summary.Month)
	assert.Equal(t, []string{"Contact", "Document", "Invoice", "InvoicePos", "Voucher"}, fetched)
	assert.Equal(t, []ModelCount{
		{Model: "Contact", Count: 2},
		{Model: "Document", Count: 3},
		{Model: "Invoice", Count: 3},
		{Model: "InvoicePos", Count: 3},
		{Model: "Voucher", Count: 2},
	}, summary.Models)
	assert.Equal(t, 13, summary.Entities())

	// Model files keep the API records verbatim.
	var invoices struct {
		Objects []map[string]any `json:"objects"`
	}
	readJSON(t, filepath.Join(folder.Root(), "Invoice.json"), &invoices)
	require.Len(t, invoices.Objects, 3)
	assert.Equal(t, "RE-1001", invoices.Objects[0]["invoiceNumber"])

	var dumped []map[string]any
	readJSON(t, filepath.Join(folder.Root(), "ApiExportOptions.json"), &dumped)
	require.Len(t, dumped, 5)
	assert.Equal(t, "InvoicePos", dumped[3]["ModelName"])

	wantFiles := []string{
		"Rechnung 20200510 RE-1001 - ACME GmbH - 900_RE-1001.pdf",
		"Beleg 20200512 B-1 - Jane Doe - 700_beleg.pdf",
		"Stornorechnung 20200513 SR-1 - Jane Doe - 12_SR-1.pdf",
	}
	var gotFiles []string
	for _, a := range summary.Attachments {
		gotFiles = append(gotFiles, a.FileName)
	}
	assert.Equal(t, wantFiles, gotFiles)
	for _, name := range wantFiles {
		data, err := os.ReadFile(filepath.Join(folder.Root(), "Dokumente", name))
		require.NoError(t, err, name)
		assert.Equal(t, pdf, data)
	}
	assert.Equal(t, 3, saved)

	// Voucher 21 points at a document the server cannot deliver.
	require.Len(t, summary.Skipped, 1)
	assert.Equal(t, "Voucher 21", summary.Skipped[0].Source)
	assert.Equal(t, 1, skipped)

	// Invoice 12 is a sent credit note without a stored document.
	require.Len(t, summary.Misses, 1)
	assert.Equal(t, "Invoice 12", summary.Misses[0].Source)

	var written Summary
	readJSON(t, filepath.Join(folder.Root(), "ExportSummary.json"), &written)
	assert.Equal(t, summary.RunID, written.RunID)
	assert.Len(t, written.Attachments, 3)
}

func TestExportFetchesDependentsOncePerParent(t *testing.T) {
	api := newFakeSevDesk()
	exp, _ := newTestExporter(t, api, testToken, WithSkipDocuments(true))

	_, err := exp.Export(context.Background(), may2020(t))
	require.NoError(t, err)

	positions := 0
	for _, p := range api.requests {
		if strings.HasSuffix(p, "/getPositions") {
			positions++
		}
		assert.NotContains(t, p, "/download")
	}
	// One page with records and one empty page per invoice.
	assert.Equal(t, 3*2, positions)
}

func TestExportSkipDocuments(t *testing.T) {
	api := newFakeSevDesk()
	exp, folder := newTestExporter(t, api, testToken, WithSkipDocuments(true))

	summary, err := exp.Export(context.Background(), may2020(t))
	require.NoError(t, err)
	assert.Empty(t, summary.Attachments)

	entries, err := os.ReadDir(filepath.Join(folder.Root(), "Dokumente"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExportUnauthorizedAbortsRun(t *testing.T) {
	api := newFakeSevDesk()
	exp, folder := newTestExporter(t, api, "wrong-token")

	summary, err := exp.Export(context.Background(), may2020(t))
	require.Error(t, err)
	assert.Nil(t, summary)
	assert.True(t, errors.IsUnauthorized(err))
	assert.NotContains(t, err.Error(), "wrong-token")

	assert.FileExists(t, filepath.Join(folder.Root(), "ApiExportOptions.json"))
	assert.NoFileExists(t, filepath.Join(folder.Root(), "Contact.json"))
	assert.Len(t, api.requests, 1)
}

func TestExportCancelled(t *testing.T) {
	exp, _ := newTestExporter(t, newFakeSevDesk(), testToken)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := exp.Export(ctx, may2020(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRequiresTransportAndSink(t *testing.T) {
	_, err := New()
	assert.True(t, errors.IsConfigError(err))

	_, err = New(WithTransport(transport.New(testToken)))
	assert.True(t, errors.IsConfigError(err))

	_, err = New(WithTransport(nil))
	assert.True(t, errors.IsConfigError(err))

	_, err = New(WithPageSize(0))
	assert.True(t, errors.IsConfigError(err))
}

func TestNewUsesDefaultCatalog(t *testing.T) {
	folder, err := sink.NewFolderSink(t.TempDir(), runTime)
	require.NoError(t, err)

	exp, err := New(WithTransport(transport.New(testToken)), WithSink(folder))
	require.NoError(t, err)

	_, ok := exp.Catalog().Get("Invoice")
	assert.True(t, ok)
}
