package api

// BatchRequest is the JSON body for POST /api/v1/route/batch.
type BatchRequest struct {
	Queries []BatchQuery `json:"queries"`
}

// BatchQuery is one source/target pair of external node ids.
type BatchQuery struct {
	SourceID int64 `json:"source_id"`
	TargetID int64 `json:"target_id"`
}

// BatchResponse is the JSON response of a batch.
type BatchResponse struct {
	Results []BatchResultJSON `json:"results"`
}

// BatchResultJSON is one batch answer. TotalCost is null when the target
// is unreachable; Error is set when the query itself failed.
type BatchResultJSON struct {
	SourceID  int64        `json:"source_id"`
	TargetID  int64        `json:"target_id"`
	TotalCost *float64     `json:"total_cost"`
	Reachable bool         `json:"reachable"`
	Converged bool         `json:"converged"`
	NodeIDs   []int64      `json:"node_ids,omitempty"`
	Path      [][2]float64 `json:"path,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	NumNodes  int    `json:"num_nodes"`
	NumEdges  int    `json:"num_edges"`
	Algorithm string `json:"algorithm"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}
