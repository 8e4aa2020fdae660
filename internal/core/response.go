package core

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Zidanesyah/willItRain/internal/types"
)

// APIResponse is the standard envelope for all successful API responses.
type APIResponse struct {
	Data any `json:"data"`
}

// APIErrorResponse is the standard envelope for all error API responses.
type APIErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the structured error information returned to clients.
type ErrorDetail struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id"`
}

// JSON writes data as a JSON response with the given status code.
// If marshalling fails, it falls back to a 500 error response.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		types.LoggerFromContext(r.Context(), slog.Default()).ErrorContext(r.Context(),
			"failed to marshal response", "error", err)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(APIErrorResponse{
			Error: ErrorDetail{
				Code:      string(types.ErrCodeInternalUnexpected),
				Message:   "failed to marshal response",
				RequestID: types.GetRequestID(r.Context()),
			},
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// OK writes data wrapped in the success envelope with status 200.
func OK(w http.ResponseWriter, r *http.Request, data any) {
	JSON(w, r, http.StatusOK, APIResponse{Data: data})
}

// Error writes an error response to the client. It inspects the error chain:
//   - A *types.AppError keeps its code, message and details, and its code
//     decides the HTTP status.
//   - Any other error becomes a 500 with code "internal_unexpected_error".
//
// Wrapped causes are never exposed to the client. Server-side failures
// are logged with their cause through the request-scoped logger.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	requestID := types.GetRequestID(ctx)
	logger := types.LoggerFromContext(ctx, slog.Default())

	var appErr *types.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus()
		if status >= http.StatusInternalServerError {
			logger.ErrorContext(ctx, "request failed",
				slog.String("code", string(appErr.Code)),
				slog.Any("error", appErr.Unwrap()),
			)
		}
		JSON(w, r, status, APIErrorResponse{
			Error: ErrorDetail{
				Code:      string(appErr.Code),
				Message:   appErr.Message,
				Details:   appErr.Details,
				RequestID: requestID,
			},
		})
		return
	}

	logger.ErrorContext(ctx, "unexpected error", slog.Any("error", err))
	JSON(w, r, http.StatusInternalServerError, APIErrorResponse{
		Error: ErrorDetail{
			Code:      string(types.ErrCodeInternalUnexpected),
			Message:   "an unexpected error occurred",
			RequestID: requestID,
		},
	})
}
