package apihttp

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"buoycloud/internal/auth"
	fleet "buoycloud/internal/fleet/domain"
	storage "buoycloud/internal/storage/postgres"
)

const timeLayout = time.RFC3339

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, storage.ErrInvalidFilterField), errors.Is(err, storage.ErrInvalidFilterValue):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, fleet.ErrDuplicateName):
		http.Error(w, "name already in use", http.StatusConflict)
	case errors.Is(err, auth.ErrRestricted):
		http.Error(w, "forbidden", http.StatusForbidden)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// pathID extracts the trailing numeric id from a prefixed path, e.g.
// /api/v1/buoys/42 with prefix /api/v1/buoys/ yields 42.
func pathID(path, prefix string) (int64, bool) {
	rest := strings.TrimPrefix(path, prefix)
	if rest == "" || rest == path || strings.Contains(rest, "/") {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// parseTimeQuery reads an optional RFC3339 or date-only query value.
func parseTimeQuery(r *http.Request, key string) (*time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(timeLayout, value); err == nil {
		t := parsed.UTC()
		return &t, nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, errors.New(key + " must be RFC3339 or yyyy-mm-dd")
	}
	t := parsed.UTC()
	return &t, nil
}

func parseIntQuery(r *http.Request, key string, fallback int) (int, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return 0, errors.New(key + " must be a non-negative integer")
	}
	return parsed, nil
}

func parseIDQuery(r *http.Request, key string) (int64, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return 0, errors.New(key + " is required")
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return parsed, nil
}
