package handler

type Response struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Data    interface{}            `json:"data,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// NewErrorResponseWithDetails carries structured context, e.g. the remaining
// lead time on a rejected cancellation.
func NewErrorResponseWithDetails(message string, details map[string]interface{}) *Response {
	return &Response{
		Status:  "error",
		Message: message,
		Details: details,
	}
}
