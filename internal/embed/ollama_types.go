package embed

// OllamaEmbedRequest is the /api/embed request body. Input may be a single
// string or a list of strings.
type OllamaEmbedRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

// OllamaEmbedResponse is the /api/embed response body.
type OllamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// OllamaModelInfo describes one installed model from /api/tags.
type OllamaModelInfo struct {
	Name string `json:"name"`
}

// OllamaModelListResponse is the /api/tags response body.
type OllamaModelListResponse struct {
	Models []OllamaModelInfo `json:"models"`
}
