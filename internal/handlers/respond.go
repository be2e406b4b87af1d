package handlers

import (
	"encoding/json"
	"net/http"
)

// apiResponse is the envelope every endpoint speaks:
// {"status":"success","data":...,"message":"..."} or
// {"status":"error","code":"...","error":"..."}.
type apiResponse struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Code    string      `json:"code,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondSuccess(w http.ResponseWriter, status int, data interface{}, message string) {
	respondWithJSON(w, status, apiResponse{
		Status:  "success",
		Data:    data,
		Message: message,
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondWithJSON(w, status, apiResponse{
		Status: "error",
		Code:   code,
		Error:  message,
	})
}
