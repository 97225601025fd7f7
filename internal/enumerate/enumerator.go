package enumerate

import (
	"context"
	"time"

	"github.com/agentstation/sevexport/pkg/endpoints"
	"github.com/agentstation/sevexport/pkg/entities"
	"github.com/agentstation/sevexport/pkg/errors"
	"github.com/agentstation/sevexport/pkg/logging"
)

// EmitFunc receives each model as soon as all of its records are fetched.
// Returning an error aborts the run.
type EmitFunc func(ctx context.Context, set *entities.Set) error

// Enumerator fetches every model of a catalog.
type Enumerator struct {
	catalog *endpoints.Catalog
	pager   *Pager
	baseURL string
}

// New creates an Enumerator.
func New(catalog *endpoints.Catalog, pager *Pager, baseURL string) *Enumerator {
	return &Enumerator{
		catalog: catalog,
		pager:   pager,
		baseURL: baseURL,
	}
}

// Run fetches the catalog in declaration order and returns the populated store.
// A model's dependents see it in the store because it is stored before the
// next descriptor is expanded.
func (e *Enumerator) Run(ctx context.Context, emit EmitFunc) (*entities.Store, error) {
	store := entities.NewStore()

	for _, d := range e.catalog.Descriptors() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		set, err := e.fetchModel(logging.WithModel(ctx, d.ModelName), d, store)
		if err != nil {
			return nil, err
		}

		if err := store.Put(set); err != nil {
			return nil, err
		}

		if emit != nil {
			if err := emit(ctx, set); err != nil {
				return nil, errors.WrapResource("write", "model", d.ModelName, err)
			}
		}
	}

	return store, nil
}

func (e *Enumerator) fetchModel(ctx context.Context, d endpoints.Descriptor, store *entities.Store) (*entities.Set, error) {
	logger := logging.Ctx(ctx)
	start := time.Now()

	urls, err := Expand(e.baseURL, d, store)
	if err != nil {
		return nil, err
	}

	logger.Info().Int("urls", len(urls)).Msg("Downloading model")

	set := entities.NewSet(d.ModelName)
	for _, u := range urls {
		records, err := e.pager.Fetch(ctx, u)
		if err != nil {
			return nil, err
		}
		set.AddAll(records)
	}

	logger.Info().
		Int("items", set.Len()).
		Dur("duration", time.Since(start)).
		Msg("Model downloaded")

	return set, nil
}
