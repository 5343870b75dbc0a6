package types

// APIResponse is the envelope of every JSON response except the backup download.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *Meta     `json:"meta,omitempty"`
}

// APIError is the error part of the envelope.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Meta carries request and paging information.
type Meta struct {
	RequestID  string  `json:"request_id,omitempty"`
	NextCursor *string `json:"next_cursor,omitempty"`
	Limit      int     `json:"limit,omitempty"`
}
