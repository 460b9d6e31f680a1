package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mgpai22/scribe/internal/store"
	"github.com/mgpai22/scribe/internal/subtitle"
	"github.com/mgpai22/scribe/internal/transcribe"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is the error body of every endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorResponse{Error: msg})
}

// statusFor maps a pipeline or store error to an HTTP status and error kind.
func statusFor(err error) (int, string) {
	var (
		fe *subtitle.FormatError
		re *transcribe.RecognitionError
	)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &fe):
		return http.StatusUnprocessableEntity, "format"
	case errors.As(err, &re):
		switch re.Kind {
		case transcribe.KindBadInput:
			return http.StatusBadRequest, re.Kind.String()
		case transcribe.KindUnavailable:
			return http.StatusServiceUnavailable, re.Kind.String()
		default:
			return http.StatusInternalServerError, re.Kind.String()
		}
	default:
		return http.StatusInternalServerError, "internal"
	}
}
