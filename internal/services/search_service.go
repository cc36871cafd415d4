package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"vskmarket/internal/backend"
	"vskmarket/internal/models"
)

// Route tells the UI what to show for a search.
type Route string

const (
	RouteResults     Route = "results"
	RouteLeadCapture Route = "lead_capture"
)

// SearchOutcome is the result of a freeform search.
type SearchOutcome struct {
	Route   Route           `json:"route"`
	Word    string          `json:"word"`
	Count   int             `json:"count"`
	Results json.RawMessage `json:"results,omitempty"`
}

// SearchConfig holds the typeahead settings.
type SearchConfig struct {
	MinChars int
	Debounce time.Duration
}

type typeahead struct {
	debouncer *Debouncer
	lastUsed  time.Time
}

// SearchService handles typeahead suggestions and the notify-me fallback.
type SearchService struct {
	api      SearchAPI
	cfg      SearchConfig
	validate *validator.Validate

	mu      sync.Mutex
	clients map[string]*typeahead
}

// NewSearchService creates a new SearchService.
func NewSearchService(api SearchAPI, cfg SearchConfig) *SearchService {
	if cfg.MinChars <= 0 {
		cfg.MinChars = 2
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 300 * time.Millisecond
	}
	return &SearchService{
		api:      api,
		cfg:      cfg,
		validate: validator.New(),
		clients:  make(map[string]*typeahead),
	}
}

// Suggest returns suggestions for q. Queries shorter than the minimum
// length return nothing without calling the backend.
func (s *SearchService) Suggest(ctx context.Context, q string) ([]models.Suggestion, error) {
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) < s.cfg.MinChars {
		return []models.Suggestion{}, nil
	}
	resp, err := s.api.AutoSuggestions(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("suggestions for %q: %w", q, err)
	}
	if resp.Results == nil {
		return []models.Suggestion{}, nil
	}
	return resp.Results, nil
}

// SuggestDebounced is Suggest with per-client debouncing: while a client is
// typing only its latest query reaches the backend and earlier waiting
// calls return ErrSuperseded.
func (s *SearchService) SuggestDebounced(ctx context.Context, clientID, q string) ([]models.Suggestion, error) {
	type result struct {
		items []models.Suggestion
		err   error
	}
	done := make(chan result, 1)

	d := s.debouncerFor(clientID)
	dctx := d.Trigger(ctx, func(ctx context.Context) {
		items, err := s.Suggest(ctx, q)
		done <- result{items, err}
	})

	select {
	case r := <-done:
		return r.items, r.err
	case <-dctx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		select {
		case r := <-done:
			return r.items, r.err
		default:
			return nil, ErrSuperseded
		}
	}
}

// Route decides where a tapped suggestion leads: a zero count goes to the
// lead-capture form, never to an empty result list.
func (s *SearchService) Route(sg models.Suggestion) Route {
	if n, ok := sg.Count.Int(); ok && n == 0 {
		return RouteLeadCapture
	}
	return RouteResults
}

// Query runs a freeform search. No results routes to lead capture.
func (s *SearchService) Query(ctx context.Context, q string) (*SearchOutcome, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, errors.New("search query is required")
	}
	body, err := s.api.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search for %q: %w", q, err)
	}

	list := resultList(body)
	out := &SearchOutcome{Word: q, Count: len(list)}
	if len(list) == 0 {
		out.Route = RouteLeadCapture
		return out, nil
	}
	out.Route = RouteResults
	out.Results, err = json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("encode results: %w", err)
	}
	return out, nil
}

// SubmitLead posts the notify-me form.
func (s *SearchService) SubmitLead(ctx context.Context, lead models.LeadForm) (backend.Result, error) {
	if err := s.validate.Struct(lead); err != nil {
		return backend.Result{}, err
	}
	return s.api.SubmitNotification(ctx, lead)
}

func (s *SearchService) debouncerFor(clientID string) *Debouncer {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, t := range s.clients {
		if id != clientID && now.Sub(t.lastUsed) > 5*time.Minute {
			t.debouncer.Stop()
			delete(s.clients, id)
		}
	}
	t, ok := s.clients[clientID]
	if !ok {
		t = &typeahead{debouncer: NewDebouncer(s.cfg.Debounce)}
		s.clients[clientID] = t
	}
	t.lastUsed = now
	return t.debouncer
}

// resultList extracts the product list from a search body, which is either
// a bare array or an object wrapping one.
func resultList(body json.RawMessage) []json.RawMessage {
	body = bytes.TrimSpace(body)
	var list []json.RawMessage
	if len(body) > 0 && body[0] == '[' {
		if err := json.Unmarshal(body, &list); err == nil {
			return list
		}
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil
	}
	for _, k := range []string{"results", "data", "products"} {
		if raw, ok := obj[k]; ok {
			if err := json.Unmarshal(raw, &list); err == nil {
				return list
			}
		}
	}
	return nil
}
