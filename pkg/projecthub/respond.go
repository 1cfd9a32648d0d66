package projecthub

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/lifecycle"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/store"
)

// maxBodySize bounds JSON request bodies. Avatar uploads have their own limit.
const maxBodySize = 1 << 20

func respondJSON(w http.ResponseWriter, status int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, `{"error":"Failed to encode response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondErr maps err to a status code. Lifecycle errors carry a message safe to show;
// anything else is logged and answered with fallback.
func respondErr(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if errors.Is(err, store.ErrReadOnly) {
		respondError(w, http.StatusServiceUnavailable, "Service is in read-only mode")
		return
	}

	var le *lifecycle.Error
	if !errors.As(err, &le) || le.Kind == lifecycle.KindInternal {
		hlog.FromRequest(r).Error().Err(err).Msg(fallback)
		respondError(w, http.StatusInternalServerError, fallback)
		return
	}

	status := http.StatusBadRequest
	switch le.Kind {
	case lifecycle.KindUnauthenticated:
		status = http.StatusUnauthorized
	case lifecycle.KindForbidden:
		status = http.StatusForbidden
	case lifecycle.KindNotFound:
		status = http.StatusNotFound
	case lifecycle.KindConflict:
		status = http.StatusConflict
	}

	body := map[string]any{"error": le.Message}
	for k, v := range le.Fields {
		body[k] = v
	}
	respondJSON(w, status, body)
}

// decodeJSON reads a JSON body into dst, answering 400 itself when it cannot.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "healthy", http.StatusOK
	if err := a.store.Ping(r.Context()); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("store ping failed")
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	mode := "read-write"
	if a.IsReadOnly() {
		mode = "read-only"
	}
	respondJSON(w, code, map[string]any{
		"status": status,
		"store":  a.config.Store,
		"mode":   mode,
		"time":   time.Now().UTC(),
	})
}
