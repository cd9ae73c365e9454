package models

// ErrorResponse is the body the API sends with non-2xx statuses.
type ErrorResponse struct {
	Timestamp string `json:"timestamp,omitempty"`
	Status    int    `json:"status,omitempty"`
	Error     string `json:"error,omitempty"`
	Message   string `json:"message,omitempty"`
	Path      string `json:"path,omitempty"`

	// Conflict responses also carry the current state of the resource.
	CurrentVersion *int64 `json:"currentVersion,omitempty"`
}

// Text returns the most specific human-readable message in the body.
func (e ErrorResponse) Text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}
