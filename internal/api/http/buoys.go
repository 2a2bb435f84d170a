package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"buoycloud/internal/audit"
	"buoycloud/internal/auth"
	fleet "buoycloud/internal/fleet/domain"
	storage "buoycloud/internal/storage/postgres"
)

// BuoyStore is the fleet repository surface the handler needs.
type BuoyStore interface {
	Show(ctx context.Context, buoyID int64) (fleet.Buoy, error)
	ListOrdered(ctx context.Context, criteria []storage.Criterion) ([]fleet.Buoy, error)
	Create(ctx context.Context, buoy fleet.Buoy) (fleet.Buoy, error)
	Update(ctx context.Context, buoyID int64, fields map[string]any) (fleet.Buoy, error)
	Delete(ctx context.Context, buoyID int64) (fleet.Buoy, error)
}

// BuoyHandler provides fleet master-data endpoints.
type BuoyHandler struct {
	store       BuoyStore
	auditLogger audit.Logger
	prefix      string
}

// NewBuoyHandler constructs a handler.
func NewBuoyHandler(store BuoyStore, auditLogger audit.Logger) (*BuoyHandler, error) {
	if store == nil {
		return nil, errors.New("buoy handler: nil store")
	}
	return &BuoyHandler{store: store, auditLogger: auditLogger, prefix: "/api/v1/buoys"}, nil
}

// ServeHTTP handles /api/v1/buoys and /api/v1/buoys/{id}.
func (h *BuoyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == h.prefix {
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		case http.MethodPost:
			h.handleCreate(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	id, ok := pathID(r.URL.Path, h.prefix+"/")
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.handleShow(w, r, id)
	case http.MethodPatch, http.MethodPut:
		h.handleUpdate(w, r, id)
	case http.MethodDelete:
		h.handleDelete(w, r, id)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *BuoyHandler) handleList(w http.ResponseWriter, r *http.Request) {
	criteria, err := buoyListCriteria(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	buoys, err := h.store.ListOrdered(r.Context(), criteria)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, buoys)
}

func (h *BuoyHandler) handleShow(w http.ResponseWriter, r *http.Request, id int64) {
	buoy, err := h.store.Show(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, buoy)
}

func (h *BuoyHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var buoy fleet.Buoy
	if err := json.NewDecoder(r.Body).Decode(&buoy); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if buoy.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	created, err := h.store.Create(r.Context(), buoy)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
	h.logAudit(r, "buoy.create", created.BuoyID, map[string]any{"name": created.Name})
}

func (h *BuoyHandler) handleUpdate(w http.ResponseWriter, r *http.Request, id int64) {
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	updated, err := h.store.Update(r.Context(), id, fields)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
	h.logAudit(r, "buoy.update", id, map[string]any{"fields": fieldNames(fields)})
}

func (h *BuoyHandler) handleDelete(w http.ResponseWriter, r *http.Request, id int64) {
	deleted, err := h.store.Delete(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, deleted)
	h.logAudit(r, "buoy.delete", id, map[string]any{"name": deleted.Name})
}

func (h *BuoyHandler) logAudit(r *http.Request, action string, buoyID int64, meta map[string]any) {
	if h.auditLogger == nil {
		return
	}
	payload, _ := json.Marshal(meta)
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: "buoy",
		ResourceID:   strconv.FormatInt(buoyID, 10),
		Metadata:     payload,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}

func buoyListCriteria(r *http.Request) ([]storage.Criterion, error) {
	var criteria []storage.Criterion
	query := r.URL.Query()

	if value := query.Get("status"); value != "" {
		status, err := strconv.ParseBool(value)
		if err != nil {
			return nil, errors.New("status must be a boolean")
		}
		criteria = append(criteria, storage.Eq("status", status))
	}
	if value := query.Get("open_data"); value != "" {
		open, err := strconv.ParseBool(value)
		if err != nil {
			return nil, errors.New("open_data must be a boolean")
		}
		criteria = append(criteria, storage.Eq("open_data", open))
	}
	if value := query.Get("project_id"); value != "" {
		project, err := strconv.ParseInt(value, 10, 16)
		if err != nil {
			return nil, errors.New("project_id must be an integer")
		}
		criteria = append(criteria, storage.Eq("project_id", project))
	}
	return criteria, nil
}

func fieldNames(fields map[string]any) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	return names
}
