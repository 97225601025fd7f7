package enumerate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/sevexport/pkg/endpoints"
	"github.com/agentstation/sevexport/pkg/entities"
	pkgerrors "github.com/agentstation/sevexport/pkg/errors"
	"github.com/agentstation/sevexport/pkg/logging"
)

func ids(es []entities.Entity) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.ID()
	}
	return out
}

func TestPagerStopsOnFirstPageWithoutNewIDs(t *testing.T) {
	api := newFakeAPI()
	api.add("Invoice", 137, nil)

	records, err := NewPager(api, 0).Fetch(context.Background(), testBase+"/Invoice")
	require.NoError(t, err)

	assert.Len(t, records, 137)
	// Two pages with records and one empty page that ends the walk.
	assert.Equal(t, 3, api.requests["Invoice"])
	assert.Contains(t, api.urls[0], "Invoice?offset=0&limit=100")
	assert.Contains(t, api.urls[1], "offset=100&limit=100")
}

func TestPagerHandlesRepeatedLastPage(t *testing.T) {
	api := newFakeAPI()
	api.sticky = true
	api.add("Voucher", 150, nil)

	records, err := NewPager(api, 0).Fetch(context.Background(), testBase+"/Voucher")
	require.NoError(t, err)

	assert.Len(t, records, 150)
	assert.Equal(t, 3, api.requests["Voucher"])

	seen := map[string]bool{}
	for _, id := range ids(records) {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestPagerContinuesOnShortPagesWithNewIDs(t *testing.T) {
	api := newFakeAPI()
	api.add("Contact", 5, nil)

	records, err := NewPager(api, 2).Fetch(context.Background(), testBase+"/Contact")
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ids(records))
	assert.Equal(t, 4, api.requests["Contact"])
}

func TestPagerKeepsExistingQuery(t *testing.T) {
	api := newFakeAPI()
	api.add("Contact", 1, nil)

	_, err := NewPager(api, 0).Fetch(context.Background(), testBase+"/Contact&depth=1")
	require.NoError(t, err)
	assert.Equal(t, testBase+"/Contact?depth=1&offset=0&limit=100", api.urls[0])
}

func TestPagerTransportFailureIsLoggedAndReturned(t *testing.T) {
	tl := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), tl.Logger)

	api := newFakeAPI()
	api.fail["Invoice"] = errors.New("boom")

	_, err := NewPager(api, 0).Fetch(ctx, testBase+"/Invoice?token=s3cr3t")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsTransport(err))

	tl.AssertContains(t, "Page request failed")
	tl.AssertNotContains(t, "s3cr3t")
}

func TestPagerRejectsRecordsWithoutID(t *testing.T) {
	api := newFakeAPI()
	api.records["Tag"] = []map[string]any{{"name": "no id"}}

	_, err := NewPager(api, 0).Fetch(context.Background(), testBase+"/Tag")
	var parseErr *pkgerrors.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestResourceURL(t *testing.T) {
	d := endpoints.Descriptor{
		ModelName:            "Contact",
		RelativeURL:          "/Contact",
		AdditionalParameters: map[string]string{"depth": "1", "embed": "parent,category"},
	}
	assert.Equal(t, testBase+"/Contact?depth=1&embed=parent%2Ccategory", ResourceURL(testBase+"/", d))

	d = endpoints.Descriptor{
		RelativeURL:          "CheckAccountTransaction?checkAccount[objectName]=CheckAccount",
		AdditionalParameters: map[string]string{"isBooked": "true"},
	}
	assert.Equal(t, testBase+"/CheckAccountTransaction?checkAccount[objectName]=CheckAccount&isBooked=true",
		ResourceURL(testBase, d))
}

func positions() endpoints.Descriptor {
	return endpoints.Descriptor{
		ModelName:   "InvoicePos",
		RelativeURL: "Invoice/{INVOICEID}/getPositions",
		PathReplacement: &endpoints.Dependency{
			BaseModel:        "Invoice",
			URLParameterName: "invoiceId",
			ObjectProperty:   "id",
		},
	}
}

func storeWith(t *testing.T, model string, records ...string) *entities.Store {
	t.Helper()
	set := entities.NewSet(model)
	for _, raw := range records {
		e, err := entities.Decode([]byte(raw))
		require.NoError(t, err)
		set.Add(e)
	}
	store := entities.NewStore()
	require.NoError(t, store.Put(set))
	return store
}

func TestExpandOneURLPerParent(t *testing.T) {
	store := storeWith(t, "Invoice", `{"id": 1}`, `{"id": "a/b"}`, `{"id": 3}`)

	urls, err := Expand(testBase, positions(), store)
	require.NoError(t, err)

	want := []string{
		testBase + "/Invoice/1/getPositions",
		testBase + "/Invoice/a%2Fb/getPositions",
		testBase + "/Invoice/3/getPositions",
	}
	if diff := cmp.Diff(want, urls); diff != "" {
		t.Errorf("Expand() mismatch (-want +got):\n%s", diff)
	}
}

func TestExpandFieldLookupIgnoresCase(t *testing.T) {
	d := positions()
	d.PathReplacement.ObjectProperty = "ID"

	urls, err := Expand(testBase, d, storeWith(t, "Invoice", `{"id": 7}`))
	require.NoError(t, err)
	assert.Equal(t, []string{testBase + "/Invoice/7/getPositions"}, urls)
}

func TestExpandWithoutDependency(t *testing.T) {
	urls, err := Expand(testBase, endpoints.Descriptor{ModelName: "Tag", RelativeURL: "Tag"}, entities.NewStore())
	require.NoError(t, err)
	assert.Equal(t, []string{testBase + "/Tag"}, urls)
}

func TestExpandMissingBaseModel(t *testing.T) {
	_, err := Expand(testBase, positions(), entities.NewStore())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsMissingDependency(err))
}

func TestExpandParentWithoutSourceField(t *testing.T) {
	d := positions()
	d.PathReplacement.ObjectProperty = "sevClient"

	_, err := Expand(testBase, d, storeWith(t, "Invoice", `{"id": 1, "sevClient": {"id": 9}}`, `{"id": 2}`))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsMissingDependency(err))
	assert.Contains(t, err.Error(), "record 2")
}

func TestExpandEmptyParentSet(t *testing.T) {
	urls, err := Expand(testBase, positions(), storeWith(t, "Invoice"))
	require.NoError(t, err)
	assert.Empty(t, urls)
}

func TestEnumeratorThreeModels(t *testing.T) {
	api := newFakeAPI()
	for _, model := range []string{"Contact", "Document", "Invoice"} {
		api.add(model, 137, nil)
	}

	catalog, err := endpoints.New(
		endpoints.Descriptor{ModelName: "Contact", RelativeURL: "Contact"},
		endpoints.Descriptor{ModelName: "Document", RelativeURL: "Document"},
		endpoints.Descriptor{ModelName: "Invoice", RelativeURL: "Invoice"},
	)
	require.NoError(t, err)

	var emitted []string
	store, err := New(catalog, NewPager(api, 0), testBase).Run(context.Background(),
		func(_ context.Context, set *entities.Set) error {
			emitted = append(emitted, set.Model())
			return nil
		})
	require.NoError(t, err)

	assert.Equal(t, []string{"Contact", "Document", "Invoice"}, emitted)
	assert.Equal(t, []string{"Contact", "Document", "Invoice"}, store.Models())
	for _, model := range store.Models() {
		set, _ := store.Set(model)
		assert.Equal(t, 137, set.Len(), model)
		assert.Equal(t, 3, api.requests[model], model)
	}
}

func TestEnumeratorExpandsDependents(t *testing.T) {
	api := newFakeAPI()
	api.add("Invoice", 3, nil)
	for _, id := range []string{"1", "2", "3"} {
		path := "Invoice/" + id + "/getPositions"
		api.add(path, 2, func(i int, rec map[string]any) {
			rec["id"] = id + "-" + rec["id"].(string)
		})
	}

	catalog, err := endpoints.New(
		endpoints.Descriptor{ModelName: "Invoice", RelativeURL: "Invoice"},
		positions(),
	)
	require.NoError(t, err)

	store, err := New(catalog, NewPager(api, 0), testBase).Run(context.Background(), nil)
	require.NoError(t, err)

	pos, ok := store.Set("InvoicePos")
	require.True(t, ok)
	assert.Equal(t, 6, pos.Len())

	calls := 0
	for _, u := range api.urls {
		if strings.Contains(u, "/getPositions") && strings.Contains(u, "offset=0&") {
			calls++
		}
	}
	invoices, _ := store.Set("Invoice")
	assert.Equal(t, invoices.Len(), calls)
}

func TestEnumeratorStopsOnEmitError(t *testing.T) {
	api := newFakeAPI()
	api.add("Contact", 1, nil)
	api.add("Invoice", 1, nil)

	catalog, err := endpoints.New(
		endpoints.Descriptor{ModelName: "Contact", RelativeURL: "Contact"},
		endpoints.Descriptor{ModelName: "Invoice", RelativeURL: "Invoice"},
	)
	require.NoError(t, err)

	diskFull := errors.New("disk full")
	_, err = New(catalog, NewPager(api, 0), testBase).Run(context.Background(),
		func(context.Context, *entities.Set) error { return diskFull })

	require.ErrorIs(t, err, diskFull)
	assert.Zero(t, api.requests["Invoice"])
}

func TestEnumeratorAbortsOnTransportFailure(t *testing.T) {
	api := newFakeAPI()
	api.add("Contact", 1, nil)
	api.fail["Document"] = errors.New("unavailable")

	catalog, err := endpoints.New(
		endpoints.Descriptor{ModelName: "Contact", RelativeURL: "Contact"},
		endpoints.Descriptor{ModelName: "Document", RelativeURL: "Document"},
		endpoints.Descriptor{ModelName: "Invoice", RelativeURL: "Invoice"},
	)
	require.NoError(t, err)

	_, err = New(catalog, NewPager(api, 0), testBase).Run(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsTransport(err))
	assert.Zero(t, api.requests["Invoice"])
}

func TestEnumeratorHonorsCancellation(t *testing.T) {
	api := newFakeAPI()
	catalog, err := endpoints.New(endpoints.Descriptor{ModelName: "Contact", RelativeURL: "Contact"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = New(catalog, NewPager(api, 0), testBase).Run(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, api.urls)
}
