package retrieval

// RawAuthor is one author entry in a retrieval service record.
type RawAuthor struct {
	Name          string   `json:"name"`
	Organizations []string `json:"organizations,omitempty"`
}

// RawRecord is one paper record as returned by the retrieval service.
// URLs may be a single string or a list of strings depending on the
// upstream record, so it is decoded as-is.
type RawRecord struct {
	Title    string      `json:"title"`
	Abstract string      `json:"abstract"`
	TLDR     string      `json:"tldr"`
	Authors  []RawAuthor `json:"authors"`
	Dates    []string    `json:"dates"`
	Score    float64     `json:"score"`
	URLs     any         `json:"urls"`
}

// retrieveRequest is the payload for a plain retrieval call.
type retrieveRequest struct {
	Queries []string `json:"queries"`
	TopK    int      `json:"topk"`
}

// deepSearchRequest is the payload for a deep search call.
type deepSearchRequest struct {
	Queries               []string `json:"queries"`
	UseQueryDecomposition bool     `json:"use_query_decomposition"`
	UseCoarseRerank       bool     `json:"use_coarse_rerank"`
	UseFineRerank         bool     `json:"use_fine_rerank"`
	SearchFuncs           []string `json:"search_funcs"`
}

// retrieveResponse is the envelope around retrieval results.
type retrieveResponse struct {
	Status string      `json:"status"`
	Result []RawRecord `json:"result"`
}

// statsEnvelope is the raw response of the database statistics service.
type statsEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		TotalCount       int64  `json:"total_count"`
		LatestUpdateTime string `json:"latest_update_time"`
	} `json:"data"`
}

// DatabaseStats is the statistics document returned to API clients.
type DatabaseStats struct {
	TotalPapers  int64  `json:"total_papers"`
	LatestUpdate string `json:"latest_update"`
}
