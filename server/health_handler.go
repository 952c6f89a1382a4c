package server

import "net/http"

var healthMsg = []byte("OK")

// HealthHandler always reponds with 200 status
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write(healthMsg) // nolint:errcheck
}
