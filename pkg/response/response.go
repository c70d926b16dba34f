package response

import (
	"encoding/json"
	"net/http"

	"quizonomy/internal/apperr"
)

type JSONResponse struct {
	Error   bool   `json:"error"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

func JSON(w http.ResponseWriter, status int, data any) error {
	return write(w, status, &JSONResponse{Data: data})
}

// Error writes the status and client-safe message for err.
func Error(w http.ResponseWriter, err error) error {
	return write(w, apperr.Status(err), &JSONResponse{
		Error:   true,
		Message: apperr.Message(err),
	})
}

// Fail writes an error envelope with an explicit status and message.
func Fail(w http.ResponseWriter, status int, msg string) error {
	return write(w, status, &JSONResponse{Error: true, Message: msg})
}

func write(w http.ResponseWriter, status int, body *JSONResponse) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(body)
}
