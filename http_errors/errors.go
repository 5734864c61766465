package http_errors

import "net/http"

type ErrorResponse struct {
	Message   string `json:"message"`
	Code      int    `json:"code"`
	ErrorCode string `json:"errorCode,omitempty"` // Machine readable code, e.g. JOIN_CONSTRAINT
	Details   any    `json:"details,omitempty"`   // Optional field for additional error details
} // @name ErrorResponse

func (e *ErrorResponse) Error() string {
	return e.Message
}

func NewErrorResponse(code int, message string, details ...any) *ErrorResponse {
	response := &ErrorResponse{
		Message: message,
		Code:    code,
	}

	if len(details) > 0 {
		response.Details = details[0]
	}

	return response
}

func NewErrorResponseWithCode(code int, errorCode string, message string, details ...any) *ErrorResponse {
	response := NewErrorResponse(code, message, details...)
	response.ErrorCode = errorCode
	return response
}

func BadRequestError(message string, details ...any) *ErrorResponse {
	return NewErrorResponse(http.StatusBadRequest, message, details...)
}

func BadRequestErrorWithCode(errorCode string, message string, details ...any) *ErrorResponse {
	return NewErrorResponseWithCode(http.StatusBadRequest, errorCode, message, details...)
}

func UnauthorizedError(message string, details ...any) *ErrorResponse {
	return NewErrorResponse(http.StatusUnauthorized, message, details...)
}

func ForbiddenError(message string, details ...any) *ErrorResponse {
	return NewErrorResponse(http.StatusForbidden, message, details...)
}

func ForbiddenErrorWithCode(errorCode string, message string, details ...any) *ErrorResponse {
	return NewErrorResponseWithCode(http.StatusForbidden, errorCode, message, details...)
}

func NotFoundError(message string, details ...any) *ErrorResponse {
	return NewErrorResponse(http.StatusNotFound, message, details...)
}

func NotFoundErrorWithCode(errorCode string, message string, details ...any) *ErrorResponse {
	return NewErrorResponseWithCode(http.StatusNotFound, errorCode, message, details...)
}

func ConflictError(message string, details ...any) *ErrorResponse {
	return NewErrorResponse(http.StatusConflict, message, details...)
}

func ConflictErrorWithCode(errorCode string, message string, details ...any) *ErrorResponse {
	return NewErrorResponseWithCode(http.StatusConflict, errorCode, message, details...)
}

func TooManyRequestsError(message string, details ...any) *ErrorResponse {
	return NewErrorResponse(http.StatusTooManyRequests, message, details...)
}

func TooManyRequestsErrorWithCode(errorCode string, message string, details ...any) *ErrorResponse {
	return NewErrorResponseWithCode(http.StatusTooManyRequests, errorCode, message, details...)
}

func InternalServerError(message string, details ...any) *ErrorResponse {
	return NewErrorResponse(http.StatusInternalServerError, message, details...)
}

func InternalServerErrorWithCode(errorCode string, message string, details ...any) *ErrorResponse {
	return NewErrorResponseWithCode(http.StatusInternalServerError, errorCode, message, details...)
}
