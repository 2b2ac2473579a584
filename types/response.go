package types

// ApiResponse is the envelope for mutation endpoints.
type ApiResponse struct {
	Message string      `json:"message"`
	Status  int         `json:"status"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is the body of every dashboard-side failure.
type ErrorResponse struct {
	Error string `json:"error"`
}
