package models

import (
	"encoding/json"
	"net/http"
)

// ErrorType is the coarse tag carried in every error body and in-band error frame.
type ErrorType string

const (
	ErrConfiguration ErrorType = "configuration_error"
	ErrValidation    ErrorType = "validation_error"
	ErrConnection    ErrorType = "connection_error"
	ErrGeneration    ErrorType = "generation_error"
	ErrExecution     ErrorType = "execution_error"
	ErrComposition   ErrorType = "composition_error"
	ErrStreaming     ErrorType = "streaming_error"
	ErrProcessing    ErrorType = "processing_error"
)

// HTTPStatus maps an error type onto the status code returned before streaming starts.
func (t ErrorType) HTTPStatus() int {
	switch t {
	case ErrValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type ErrorResponse struct {
	Status    string         `json:"status"`
	Error     string         `json:"error"`
	Type      ErrorType      `json:"type,omitempty"`
	Code      int            `json:"code,omitempty"`
	DebugInfo map[string]any `json:"debug_info,omitempty"`
}

func WriteError(w http.ResponseWriter, code int, message string) {
	WriteJSON(w, code, ErrorResponse{
		Status: "error",
		Error:  message,
		Code:   code,
	})
}

// WriteTypedError writes a pipeline failure; debug may be nil.
func WriteTypedError(w http.ResponseWriter, typ ErrorType, message string, debug map[string]any) {
	code := typ.HTTPStatus()
	WriteJSON(w, code, ErrorResponse{
		Status:    "error",
		Error:     message,
		Type:      typ,
		Code:      code,
		DebugInfo: debug,
	})
}

func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
