package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"

	"PublishNotifier/internal/domain"
)

type detailBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, detailBody{Detail: detail})
}

// writeError maps domain errors to status codes. Field validation errors are
// rendered as {field: [messages]}.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, verr.Fields)
	case errors.Is(err, domain.ErrValidation):
		writeDetail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrRecordNotFound), errors.Is(err, domain.ErrContactNotFound):
		writeDetail(w, http.StatusNotFound, "Not found.")
	case errors.Is(err, domain.ErrNotResettable):
		writeDetail(w, http.StatusConflict, err.Error())
	default:
		logger.Error("request failed", "err", err)
		writeDetail(w, http.StatusInternalServerError, "Internal server error.")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			fields := domain.FieldErrors{}
			fields.Add(typeErr.Field, typeMessage(typeErr.Type))
			writeJSON(w, http.StatusBadRequest, fields)
			return false
		}
		writeDetail(w, http.StatusBadRequest, "JSON parse error.")
		return false
	}
	return true
}

func typeMessage(t reflect.Type) string {
	if t == nil {
		return "Invalid value."
	}
	switch t.Kind() {
	case reflect.String:
		return "Not a valid string."
	case reflect.Bool:
		return "Must be a valid boolean."
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "A valid integer is required."
	}
	return "Invalid value."
}
