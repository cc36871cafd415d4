package models

// Suggestion is one auto-suggest result.
type Suggestion struct {
	Type  string     `json:"type"`
	Label string     `json:"label"`
	Count FlexString `json:"count"`
}

// SuggestionResponse is the body returned by the suggestion endpoint.
type SuggestionResponse struct {
	Status  FlexString   `json:"status"`
	Results []Suggestion `json:"results"`
}

// LeadForm is the "notify me" form shown when a search has no results.
type LeadForm struct {
	Word  string `json:"word" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,numeric,min=10,max=13"`
}
