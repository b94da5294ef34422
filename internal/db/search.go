package db

// KNNQuery is the input for vector nearest-neighbour search.
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single record hit from a search.
// For KNN queries Score is the raw distance reported by the index (lower is nearer).
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
