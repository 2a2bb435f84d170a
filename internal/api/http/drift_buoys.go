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

// DriftBuoyStore is the drifter master-data repository surface.
type DriftBuoyStore interface {
	Show(ctx context.Context, buoyID int64) (fleet.DriftBuoy, error)
	List(ctx context.Context, criteria []storage.Criterion) ([]fleet.DriftBuoy, error)
	Create(ctx context.Context, buoy fleet.DriftBuoy) (fleet.DriftBuoy, error)
	Update(ctx context.Context, buoyID int64, fields map[string]any) (fleet.DriftBuoy, error)
	Delete(ctx context.Context, buoyID int64) (fleet.DriftBuoy, error)
}

// DriftBuoyHandler provides drifter master-data endpoints.
type DriftBuoyHandler struct {
	store       DriftBuoyStore
	auditLogger audit.Logger
	prefix      string
}

// NewDriftBuoyHandler constructs a handler.
func NewDriftBuoyHandler(store DriftBuoyStore, auditLogger audit.Logger) (*DriftBuoyHandler, error) {
	if store == nil {
		return nil, errors.New("drift buoy handler: nil store")
	}
	return &DriftBuoyHandler{store: store, auditLogger: auditLogger, prefix: "/api/v1/drift-buoys"}, nil
}

// ServeHTTP handles /api/v1/drift-buoys and /api/v1/drift-buoys/{id}.
func (h *DriftBuoyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

func (h *DriftBuoyHandler) handleList(w http.ResponseWriter, r *http.Request) {
	criteria, err := buoyListCriteria(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	buoys, err := h.store.List(r.Context(), criteria)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, buoys)
}

func (h *DriftBuoyHandler) handleShow(w http.ResponseWriter, r *http.Request, id int64) {
	buoy, err := h.store.Show(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, buoy)
}

func (h *DriftBuoyHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var buoy fleet.DriftBuoy
	if err := json.NewDecoder(r.Body).Decode(&buoy); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	created, err := h.store.Create(r.Context(), buoy)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
	h.logAudit(r, "drift_buoy.create", created.BuoyID)
}

func (h *DriftBuoyHandler) handleUpdate(w http.ResponseWriter, r *http.Request, id int64) {
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
	h.logAudit(r, "drift_buoy.update", id)
}

func (h *DriftBuoyHandler) handleDelete(w http.ResponseWriter, r *http.Request, id int64) {
	deleted, err := h.store.Delete(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, deleted)
	h.logAudit(r, "drift_buoy.delete", id)
}

func (h *DriftBuoyHandler) logAudit(r *http.Request, action string, buoyID int64) {
	if h.auditLogger == nil {
		return
	}
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: "drift_buoy",
		ResourceID:   strconv.FormatInt(buoyID, 10),
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}
