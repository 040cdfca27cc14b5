package rfis

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/jrsteele09/acc-rfi-service/acc"
	apperrors "github.com/jrsteele09/acc-rfi-service/internal/errors"
	"github.com/jrsteele09/acc-rfi-service/internal/utils"
)

const DefaultHydrationWorkers = 8

// OpenStatuses are the RFI statuses a search considers.
var OpenStatuses = []string{"open", "openRev1", "openRev2"}

// searchFields is all a search needs to return; records are hydrated after.
var searchFields = []string{acc.FieldID, acc.FieldCreatedAt}

// SessionClients hands out platform clients bound to a session.
type SessionClients interface {
	ForSession(sessionID string) *acc.Client
}

// PartialResultWarning describes an RFI dropped from a result because it
// could not be fetched.
type PartialResultWarning struct {
	RFIID string
	Err   error
}

func (w PartialResultWarning) Error() string {
	return fmt.Sprintf("rfi %s dropped: %v", w.RFIID, w.Err)
}

func (w PartialResultWarning) Unwrap() error {
	return w.Err
}

// Result is the outcome of a search. Warnings lists records that matched but
// were left out.
type Result struct {
	Records  []acc.RFI
	Warnings []PartialResultWarning
}

type Aggregator struct {
	clients      SessionClients
	mapping      AttributeMapping
	workers      int
	defaultLimit int
	maxLimit     int
}

type AggregatorOption func(*Aggregator)

func WithAttributeMapping(m AttributeMapping) AggregatorOption {
	return func(a *Aggregator) {
		a.mapping = m
	}
}

// WithHydrationWorkers caps concurrent record fetches.
func WithHydrationWorkers(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n > 0 {
			a.workers = n
		}
	}
}

func WithLimits(defaultLimit, maxLimit int) AggregatorOption {
	return func(a *Aggregator) {
		a.defaultLimit = defaultLimit
		a.maxLimit = maxLimit
	}
}

func NewAggregator(clients SessionClients, options ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		clients:      clients,
		workers:      DefaultHydrationWorkers,
		defaultLimit: DefaultLimit,
		maxLimit:     MaxLimit,
	}
	for _, o := range options {
		o(a)
	}
	return a
}

// Search returns the open RFIs assigned to the session's user that match
// filter, hydrated, flattened and projected. With filter.After set the
// created and updated windows are searched separately and merged by id,
// created first. Records that fail to hydrate are dropped and reported in
// Result.Warnings.
func (a *Aggregator) Search(ctx context.Context, sessionID string, filter Filter) (*Result, error) {
	filter = filter.normalized(a.defaultLimit, a.maxLimit)
	client := a.clients.ForSession(sessionID)

	userID, err := client.GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	base := acc.SearchFilter{Status: OpenStatuses, AssignedTo: []string{userID}}
	windows := []acc.SearchFilter{base}
	if filter.After != nil {
		created, updated := base, base
		created.CreatedAt = dateRange(*filter.After)
		updated.UpdatedAt = dateRange(*filter.After)
		windows = []acc.SearchFilter{created, updated}
	}

	found := make([][]string, len(windows))
	g, gctx := errgroup.WithContext(ctx)
	for i, w := range windows {
		g.Go(func() error {
			ids, err := a.collectIDs(gctx, client, filter, w)
			found[i] = ids
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	ids := lo.Uniq(lo.Flatten(found))

	log.Debug().
		Str("session_id", utils.ShortID(sessionID)).
		Int("searches", len(windows)).
		Int("ids", len(ids)).
		Msg("RFI search merged")

	records, warnings, err := a.hydrate(ctx, client, ids)
	if err != nil {
		return nil, err
	}

	result := &Result{Records: make([]acc.RFI, 0, len(records)), Warnings: warnings}
	for _, rfi := range records {
		result.Records = append(result.Records, Project(Flatten(rfi, a.mapping), filter.Fields))
	}
	return result, nil
}

// collectIDs pages through one search until limit ids are gathered or the
// platform has no more.
func (a *Aggregator) collectIDs(ctx context.Context, client *acc.Client, filter Filter, window acc.SearchFilter) ([]string, error) {
	ids := make([]string, 0, filter.Limit)
	offset := 0
	for len(ids) < filter.Limit {
		resp, err := client.SearchRFIs(ctx, acc.SearchRequest{
			Limit:  filter.Limit - len(ids),
			Offset: offset,
			Search: filter.SearchText,
			Sort:   []acc.SortField{{Field: acc.FieldCreatedAt, Order: "ASC"}},
			Filter: window,
			Fields: searchFields,
		})
		if err != nil {
			return nil, err
		}
		// Records without an id are skipped but still move the offset.
		offset += len(resp.Results)
		for _, rfi := range resp.Results {
			if id := rfi.ID(); id != "" {
				ids = append(ids, id)
			}
		}
		if len(resp.Results) == 0 || offset >= resp.Pagination.TotalResults {
			break
		}
	}
	if len(ids) > filter.Limit {
		ids = ids[:filter.Limit]
	}
	return ids, nil
}

// hydrate fetches every id with bounded concurrency. Results keep the order
// of ids. Per record failures become warnings; losing the session or the
// store fails the whole call.
func (a *Aggregator) hydrate(ctx context.Context, client *acc.Client, ids []string) ([]acc.RFI, []PartialResultWarning, error) {
	fetched := make([]acc.RFI, len(ids))
	failures := make([]error, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, id := range ids {
		g.Go(func() error {
			rfi, err := client.GetRFI(gctx, id)
			if err != nil {
				if fatal(err) {
					return err
				}
				failures[i] = err
				return nil
			}
			fetched[i] = rfi
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	records := make([]acc.RFI, 0, len(ids))
	var warnings []PartialResultWarning
	for i, id := range ids {
		if failures[i] != nil {
			w := PartialResultWarning{RFIID: id, Err: failures[i]}
			log.Warn().Err(w.Err).Str("rfi_id", id).Msg("Dropping RFI from results")
			warnings = append(warnings, w)
			continue
		}
		records = append(records, fetched[i])
	}
	return records, warnings, nil
}

func fatal(err error) bool {
	return errors.Is(err, apperrors.ErrAuthenticationRequired) ||
		errors.Is(err, apperrors.ErrStoreUnavailable) ||
		errors.Is(err, context.Canceled)
}

// AttributeDefinitions lists the project's custom attributes, preferring
// names from the attribute mapping.
func (a *Aggregator) AttributeDefinitions(ctx context.Context, sessionID string) ([]acc.AttributeDefinition, error) {
	defs, err := a.clients.ForSession(sessionID).GetCustomAttributeDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Map(defs, func(d acc.AttributeDefinition, _ int) acc.AttributeDefinition {
		if name, ok := a.mapping.Name(d.ID); ok {
			d.Name = name
		}
		return d
	}), nil
}
