package api

import "github.com/hearthside-dev/grist/internal/store"

// SearchResult is one search hit as serialized over HTTP.
type SearchResult struct {
	ID            int64          `json:"id"`
	Content       string         `json:"content"`
	SourceType    string         `json:"source_type"`
	SourceID      string         `json:"source_id,omitempty"`
	FinalScore    float64        `json:"final_score"`
	BM25Score     float64        `json:"bm25_score"`
	SemanticScore float64        `json:"semantic_score"`
	Metadata      store.Metadata `json:"metadata"`
}

// SearchResponse is the /search payload.
type SearchResponse struct {
	Query        string         `json:"query"`
	Results      []SearchResult `json:"results"`
	TotalResults int            `json:"total_results"`
}

// StatsResponse is the /stats payload.
type StatsResponse struct {
	TotalEmbeddings int            `json:"total_embeddings"`
	ByType          map[string]int `json:"by_type"`
}

// DeleteResponse is the /embeddings delete payload.
type DeleteResponse struct {
	Status       string `json:"status"`
	DeletedCount int    `json:"deleted_count"`
	SourceType   string `json:"source_type"`
	SourceID     string `json:"source_id,omitempty"`
}

// SyncResponse is the /sync payload.
type SyncResponse struct {
	Status                string   `json:"status"`
	DocumentsProcessed    int      `json:"documents_processed"`
	ChunksCreated         int      `json:"chunks_created"`
	PreviousChunksDeleted int      `json:"previous_chunks_deleted"`
	Errors                []string `json:"errors"`
}

// ErrorResponse carries an error to the client.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
