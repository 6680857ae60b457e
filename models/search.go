package models

type SearchPostRequest struct {
	// Query is the natural-language question.
	Query string `json:"query"`

	// Index overrides the server's default search index.
	Index string `json:"index,omitempty"`

	// Top is the number of documents to retrieve. Zero uses the server default.
	Top int `json:"top,omitempty"`
}

type SearchPostResponse struct {
	Summary string    `json:"summary"`
	Results []Snippet `json:"results"`
}

// Snippet is one search result, in the order the search service ranked it.
type Snippet struct {
	ID      *string `json:"id"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet"`
	URL     *string `json:"url"`
}
