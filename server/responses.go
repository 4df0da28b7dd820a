package server

import "time"

const ResponseCodeOk = "000000"

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest    = "bad_request"
	CodeUpstream      = "upstream_error"
	CodeUnavailable   = "upstream_unavailable"
	CodeTimeout       = "upstream_timeout"
	CodeUnknownTarget = "unknown_target"
)

type ErrorResponse struct {
	Code          string `json:"code"`
	Error         string `json:"error"`
	ErrorInstance error  `json:"-"`
}

type GeneralResponse[T any] struct {
	Status string `json:"status"`
	Result T      `json:"result"`
}

type ListResponse[T any] struct {
	Status  string `json:"status"`
	Total   int64  `json:"total"`
	Page    int    `json:"page"`
	Limit   int    `json:"limit"`
	HasMore bool   `json:"has_more"`
	Results []T    `json:"results"`
}

// InvalidationResult answers DELETE /debug/cache.
type InvalidationResult struct {
	Target  string `json:"target"`
	Prefix  bool   `json:"prefix"`
	Removed int    `json:"removed"`
}

// EntryInfo answers GET /debug/cache/entry.
type EntryInfo struct {
	Key       string    `json:"key"`
	StoredAt  time.Time `json:"stored_at"`
	Age       string    `json:"age"`
	Window    string    `json:"window"`
	Fresh     bool      `json:"fresh"`
	Remaining string    `json:"remaining"`
}
