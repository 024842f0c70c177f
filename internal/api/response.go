package api

import (
	"encoding/json"
	"net/http"
)

// Result — ответ операций воркера.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	TaskID  string `json:"task_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// JSON отправляет JSON ответ.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Success отправляет {success: true, message} с кодом status.
func Success(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Result{Success: true, Message: message})
}

// Failure отправляет {success: false, message}.
func Failure(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Result{Success: false, Message: message})
}

// BadRequest отправляет ошибку 400.
func BadRequest(w http.ResponseWriter, message string) {
	Failure(w, http.StatusBadRequest, message)
}
