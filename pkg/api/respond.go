package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/korjavin/cookalong/pkg/control"
	"github.com/korjavin/cookalong/pkg/logger"
	"github.com/korjavin/cookalong/pkg/planner"
	"github.com/korjavin/cookalong/pkg/recipes"
)

const maxBodyBytes = 1 << 20

// ErrorBody is the JSON shape of every error response
type ErrorBody struct {
	OK    bool        `json:"ok"`
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes what went wrong
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Global.Error("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorBody{
		OK: false,
		Error: ErrorDetail{
			Code:    statusToCode(status),
			Message: message,
			Status:  status,
		},
	})
}

func statusToCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusUnprocessableEntity:
		return "UNPROCESSABLE"
	default:
		return "INTERNAL"
	}
}

// writeServiceError maps a service error onto an HTTP status. Unknown errors
// are logged and reported as a bare 500.
func writeServiceError(w http.ResponseWriter, err error) {
	var ctrlErr *control.Error
	if errors.As(err, &ctrlErr) {
		switch {
		case errors.Is(err, control.ErrNotFound):
			writeError(w, http.StatusNotFound, ctrlErr.Message)
		case errors.Is(err, control.ErrConflict):
			writeError(w, http.StatusConflict, ctrlErr.Message)
		default:
			writeError(w, http.StatusInternalServerError, ctrlErr.Message)
		}
		return
	}

	switch {
	case errors.Is(err, control.ErrInvalidSchedule),
		errors.Is(err, recipes.ErrInvalid),
		errors.Is(err, planner.ErrNoRecipes):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, recipes.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, planner.ErrPreviewNotFound):
		writeError(w, http.StatusNotFound, "Schedule preview not found")
	default:
		logger.Global.Error("Request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	body := io.LimitReader(r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}
		return err
	}
	return nil
}
