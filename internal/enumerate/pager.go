// Package enumerate walks an endpoint catalog and downloads every record of
// every model. Pages are fetched strictly one after another and models are
// processed in catalog order.
package enumerate

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/agentstation/sevexport/internal/transport"
	"github.com/agentstation/sevexport/pkg/constants"
	"github.com/agentstation/sevexport/pkg/entities"
	"github.com/agentstation/sevexport/pkg/errors"
	"github.com/agentstation/sevexport/pkg/logging"
)

// TextGetter fetches a URL and returns the response body.
type TextGetter interface {
	GetText(ctx context.Context, url string) (string, error)
}

// Pager reads an offset/limit paginated collection until a page brings
// nothing new. The API does not report totals and may repeat the last page
// for offsets past the end, so novelty is the only reliable stop signal.
type Pager struct {
	client   TextGetter
	pageSize int
}

// NewPager creates a Pager. A pageSize <= 0 selects the API default of 100.
func NewPager(client TextGetter, pageSize int) *Pager {
	if pageSize <= 0 {
		pageSize = constants.PageSize
	}
	return &Pager{client: client, pageSize: pageSize}
}

// PageSize returns the limit sent with each request.
func (p *Pager) PageSize() int {
	return p.pageSize
}

// page is the envelope of every list response.
type page struct {
	Objects []json.RawMessage `json:"objects"`
}

// Fetch returns all records reachable from url, in first-seen order and
// without duplicate ids.
func (p *Pager) Fetch(ctx context.Context, url string) ([]entities.Entity, error) {
	logger := logging.Ctx(ctx)

	var (
		out  []entities.Entity
		seen = make(map[string]struct{})
	)

	for offset := 0; ; offset += p.pageSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pageURL := withPaging(url, offset, p.pageSize)
		body, err := p.client.GetText(ctx, pageURL)
		if err != nil {
			logger.Error().Err(err).Str("url", transport.Scrub(pageURL)).Msg("Page request failed")
			return nil, err
		}

		records, err := decodePage(body)
		if err != nil {
			return nil, errors.NewParseError("json", transport.Scrub(pageURL), err.Error(), err)
		}

		fresh := 0
		for _, e := range records {
			if _, dup := seen[e.ID()]; dup {
				continue
			}
			seen[e.ID()] = struct{}{}
			out = append(out, e)
			fresh++
		}

		logger.Debug().
			Int("offset", offset).
			Int("received", len(records)).
			Int("new", fresh).
			Msg("Page fetched")

		if fresh == 0 {
			return out, nil
		}
	}
}

func decodePage(body string) ([]entities.Entity, error) {
	var pg page
	if err := json.Unmarshal([]byte(body), &pg); err != nil {
		return nil, err
	}

	records := make([]entities.Entity, 0, len(pg.Objects))
	for _, raw := range pg.Objects {
		e, err := entities.Decode(raw)
		if err != nil {
			return nil, err
		}
		records = append(records, e)
	}
	return records, nil
}

// withPaging appends offset and limit, keeping the URL otherwise untouched.
func withPaging(url string, offset, limit int) string {
	url = transport.NormalizeQuery(url)
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + "offset=" + strconv.Itoa(offset) + "&limit=" + strconv.Itoa(limit)
}
