package enumerate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/agentstation/sevexport/pkg/errors"
)

const testBase = "https://api.test/api/v1"

// fakeAPI serves offset/limit pages of pre-built records per path.
type fakeAPI struct {
	records  map[string][]map[string]any
	requests map[string]int
	urls     []string
	fail     map[string]error
	// sticky repeats the last page for offsets past the end.
	sticky bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		records:  make(map[string][]map[string]any),
		requests: make(map[string]int),
		fail:     make(map[string]error),
	}
}

func (f *fakeAPI) add(path string, n int, mutate func(i int, rec map[string]any)) {
	start := len(f.records[path])
	for i := start; i < start+n; i++ {
		rec := map[string]any{"id": strconv.Itoa(i + 1), "objectName": path}
		if mutate != nil {
			mutate(i, rec)
		}
		f.records[path] = append(f.records[path], rec)
	}
}

func (f *fakeAPI) GetText(_ context.Context, raw string) (string, error) {
	f.urls = append(f.urls, raw)

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	path := strings.TrimPrefix(u.Path, "/api/v1/")
	f.requests[path]++

	if err := f.fail[path]; err != nil {
		return "", errors.WrapAPI(path, 500, err)
	}

	offset, _ := strconv.Atoi(u.Query().Get("offset"))
	limit, _ := strconv.Atoi(u.Query().Get("limit"))
	all := f.records[path]

	var page []map[string]any
	switch {
	case offset < len(all):
		page = all[offset:min(offset+limit, len(all))]
	case f.sticky && len(all) > 0:
		page = all[max(0, len(all)-limit):]
	}

	body, err := json.Marshal(map[string]any{"objects": page})
	if err != nil {
		return "", fmt.Errorf("marshal page: %w", err)
	}
	return string(body), nil
}
