package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/barterhub/backend/internal/errs"
)

type APIError struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code, msg string, details interface{}) {
	WriteJSON(w, status, APIError{
		Error:   msg,
		Code:    code,
		Details: details,
	})
}

// WriteErr maps a taxonomy error to its HTTP status and stable code.
// Unclassified errors become an opaque 500.
func WriteErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"
	switch errs.KindOf(err) {
	case errs.KindValidation:
		status, msg = http.StatusBadRequest, err.Error()
	case errs.KindNotFound:
		status, msg = http.StatusNotFound, err.Error()
	case errs.KindAuthorization:
		status, msg = http.StatusForbidden, err.Error()
	case errs.KindConflict:
		status, msg = http.StatusConflict, err.Error()
	case errs.KindTransfer:
		status, msg = http.StatusConflict, err.Error()
	}
	WriteError(w, status, errs.CodeOf(err), msg, nil)
}
