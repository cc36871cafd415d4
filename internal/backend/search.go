package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"vskmarket/internal/models"
)

// AutoSuggestions returns typeahead suggestions for query.
func (c *Client) AutoSuggestions(ctx context.Context, query string) (models.SuggestionResponse, error) {
	body, err := c.get(ctx, pathAutoSuggestions, url.Values{"query": {query}})
	if err != nil {
		return models.SuggestionResponse{}, err
	}
	var out models.SuggestionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return models.SuggestionResponse{}, fmt.Errorf("decode suggestions: %w", err)
	}
	return out, nil
}

// Search runs a freeform product search.
func (c *Client) Search(ctx context.Context, query string) (json.RawMessage, error) {
	return c.raw(ctx, pathSearch, url.Values{"search": {query}})
}

// SubmitNotification registers interest in a product nobody stocks yet.
func (c *Client) SubmitNotification(ctx context.Context, lead models.LeadForm) (Result, error) {
	form := url.Values{}
	form.Set("word", lead.Word)
	form.Set("name", lead.Name)
	form.Set("email", lead.Email)
	form.Set("phone", lead.Phone)
	return c.mutate(ctx, pathSubmitNotification, form)
}
