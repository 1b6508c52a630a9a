package backend

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wansing/infodesk/core"
	"github.com/wansing/infodesk/upload"
)

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	var encoder = json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	encoder.Encode(body)
}

// statusOf maps errors to HTTP status codes. Order matters because ErrNotApproved is an ErrUnauthorized.
func statusOf(err error) int {
	switch {
	case core.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, core.ErrNotFound), errors.Is(err, upload.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (b *backend) writeError(w http.ResponseWriter, req *http.Request, err error) {

	var status = statusOf(err)
	var body = errorBody{Error: err.Error()}

	var ve *core.ValidationError
	if errors.As(err, &ve) {
		body.Error = ve.Message
		body.Field = ve.Field
	}

	if status == http.StatusInternalServerError {
		b.opts.Log.Error("request failed", "method", req.Method, "path", req.URL.Path, "error", err)
		body.Error = "internal server error"
	}

	writeJSON(w, status, body)
}
