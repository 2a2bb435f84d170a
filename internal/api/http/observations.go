package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"buoycloud/internal/audit"
	"buoycloud/internal/auth"
	"buoycloud/internal/observability/metrics"
	observations "buoycloud/internal/observations/domain"
	obsinterfaces "buoycloud/internal/observations/interfaces"
	storage "buoycloud/internal/storage/postgres"
)

// QualifiedStore is the observation repository surface the handler needs.
type QualifiedStore interface {
	Show(ctx context.Context, id int64) (observations.QualifiedObservation, error)
	Window(ctx context.Context, buoyID int64, window observations.Window, threshold observations.Threshold, limit int) ([]observations.QualifiedObservation, error)
	LatestPerBuoy(ctx context.Context, criteria []storage.Criterion, threshold observations.Threshold) ([]observations.QualifiedObservation, error)
	Create(ctx context.Context, row observations.QualifiedObservation) (observations.QualifiedObservation, error)
	Update(ctx context.Context, id int64, fields map[string]any) (observations.QualifiedObservation, error)
	Delete(ctx context.Context, id int64) (observations.QualifiedObservation, error)
}

// QualifiedHandler provides qualified observation endpoints.
type QualifiedHandler struct {
	store        QualifiedStore
	buoys        BuoyStore
	access       auth.BuoyAccessChecker
	policy       observations.WindowPolicy
	auditLogger  audit.Logger
	defaultLimit int
	prefix       string
}

// NewQualifiedHandler constructs a handler.
func NewQualifiedHandler(store QualifiedStore, buoys BuoyStore, access auth.BuoyAccessChecker, policy observations.WindowPolicy, auditLogger audit.Logger, defaultLimit int) (*QualifiedHandler, error) {
	if store == nil {
		return nil, errors.New("qualified handler: nil store")
	}
	return &QualifiedHandler{
		store:        store,
		buoys:        buoys,
		access:       access,
		policy:       policy,
		auditLogger:  auditLogger,
		defaultLimit: defaultLimit,
		prefix:       "/api/v1/qualified",
	}, nil
}

// ServeHTTP handles /api/v1/qualified, /api/v1/qualified/last and
// /api/v1/qualified/{id}.
func (h *QualifiedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case h.prefix:
		switch r.Method {
		case http.MethodGet:
			h.handleWindow(w, r)
		case http.MethodPost:
			h.handleCreate(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	case h.prefix + "/last":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleLast(w, r)
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

func (h *QualifiedHandler) handleWindow(w http.ResponseWriter, r *http.Request) {
	buoyID, err := parseIDQuery(r, "buoy_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.ensureAccess(r, buoyID); err != nil {
		respondError(w, err)
		return
	}

	window, threshold, limit, err := h.windowParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rows, err := h.store.Window(r.Context(), buoyID, window, threshold, limit)
	if err != nil {
		respondError(w, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" || format == "json" {
		respondJSON(w, http.StatusOK, rows)
		return
	}
	h.respondExport(w, r, buoyID, window, rows, format)
}

func (h *QualifiedHandler) handleLast(w http.ResponseWriter, r *http.Request) {
	threshold, err := observations.ParseThreshold(r.URL.Query().Get("threshold"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var criteria []storage.Criterion
	if value := r.URL.Query().Get("buoy_id"); value != "" {
		buoyID, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			http.Error(w, "buoy_id must be an integer", http.StatusBadRequest)
			return
		}
		if err := h.ensureAccess(r, buoyID); err != nil {
			respondError(w, err)
			return
		}
		criteria = append(criteria, storage.Eq("buoy_id", buoyID))
	}

	rows, err := h.store.LatestPerBuoy(r.Context(), criteria, threshold)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *QualifiedHandler) handleShow(w http.ResponseWriter, r *http.Request, id int64) {
	row, err := h.store.Show(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, row)
}

func (h *QualifiedHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var row observations.QualifiedObservation
	if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if row.BuoyID == 0 || row.DateTime.IsZero() {
		http.Error(w, "buoy_id and date_time are required", http.StatusBadRequest)
		return
	}

	created, err := h.store.Create(r.Context(), row)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
	h.logAudit(r, "qualified.create", created.ID, created.BuoyID)
}

func (h *QualifiedHandler) handleUpdate(w http.ResponseWriter, r *http.Request, id int64) {
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
	h.logAudit(r, "qualified.update", id, updated.BuoyID)
}

func (h *QualifiedHandler) handleDelete(w http.ResponseWriter, r *http.Request, id int64) {
	deleted, err := h.store.Delete(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, deleted)
	h.logAudit(r, "qualified.delete", id, deleted.BuoyID)
}

func (h *QualifiedHandler) respondExport(w http.ResponseWriter, r *http.Request, buoyID int64, window observations.Window, rows []observations.QualifiedObservation, format string) {
	name := fmt.Sprintf("buoy %d", buoyID)
	if h.buoys != nil {
		if buoy, err := h.buoys.Show(r.Context(), buoyID); err == nil {
			name = buoy.Name
		}
	}
	filename := obsinterfaces.ExportFilename(name, window)

	started := time.Now()
	var data []byte
	var contentType string
	var err error
	switch format {
	case "csv":
		contentType = "text/csv; charset=utf-8"
		data, err = obsinterfaces.BuildQualifiedCSV(rows)
	case "xlsx":
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		data, err = obsinterfaces.BuildQualifiedXLSX(name, rows)
	case "pdf":
		contentType = "application/pdf"
		data, err = obsinterfaces.BuildQualifiedPDF(name, window, rows)
	default:
		http.Error(w, "format must be json, csv, xlsx or pdf", http.StatusBadRequest)
		return
	}
	metrics.ObserveExport(format, err, time.Since(started))
	if err != nil {
		http.Error(w, "export error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.%s", filename, format))
	_, _ = w.Write(data)
}

func (h *QualifiedHandler) windowParams(r *http.Request) (observations.Window, observations.Threshold, int, error) {
	start, err := parseTimeQuery(r, "start")
	if err != nil {
		return observations.Window{}, "", 0, err
	}
	end, err := parseTimeQuery(r, "end")
	if err != nil {
		return observations.Window{}, "", 0, err
	}
	threshold, err := observations.ParseThreshold(r.URL.Query().Get("threshold"))
	if err != nil {
		return observations.Window{}, "", 0, err
	}
	limit, err := parseIntQuery(r, "limit", h.defaultLimit)
	if err != nil {
		return observations.Window{}, "", 0, err
	}
	window := h.policy.Normalize(start, end, time.Now().UTC())
	return window, threshold, limit, nil
}

func (h *QualifiedHandler) ensureAccess(r *http.Request, buoyID int64) error {
	if h.access == nil {
		return nil
	}
	return h.access.EnsureBuoyAccess(r.Context(), auth.RoleFromContext(r.Context()), buoyID)
}

func (h *QualifiedHandler) logAudit(r *http.Request, action string, id, buoyID int64) {
	if h.auditLogger == nil {
		return
	}
	meta, _ := json.Marshal(map[string]any{"buoy_id": buoyID})
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: "qualified_observation",
		ResourceID:   strconv.FormatInt(id, 10),
		Metadata:     meta,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}

// DriftStore is the drifter repository surface the handler needs.
type DriftStore interface {
	Window(ctx context.Context, buoyID int64, window observations.Window, threshold observations.Threshold, limit int) ([]observations.DriftObservation, error)
	LatestPerBuoy(ctx context.Context, criteria []storage.Criterion, threshold observations.Threshold) ([]observations.DriftObservation, error)
	Create(ctx context.Context, row observations.DriftObservation) (observations.DriftObservation, error)
}

// DriftHandler provides drifting-buoy observation endpoints.
type DriftHandler struct {
	store        DriftStore
	policy       observations.WindowPolicy
	auditLogger  audit.Logger
	defaultLimit int
	prefix       string
}

// NewDriftHandler constructs a handler.
func NewDriftHandler(store DriftStore, policy observations.WindowPolicy, auditLogger audit.Logger, defaultLimit int) (*DriftHandler, error) {
	if store == nil {
		return nil, errors.New("drift handler: nil store")
	}
	return &DriftHandler{
		store:        store,
		policy:       policy,
		auditLogger:  auditLogger,
		defaultLimit: defaultLimit,
		prefix:       "/api/v1/drift",
	}, nil
}

// ServeHTTP handles /api/v1/drift and /api/v1/drift/last.
func (h *DriftHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case h.prefix:
		switch r.Method {
		case http.MethodGet:
			h.handleWindow(w, r)
		case http.MethodPost:
			h.handleCreate(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case h.prefix + "/last":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleLast(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *DriftHandler) handleWindow(w http.ResponseWriter, r *http.Request) {
	buoyID, err := parseIDQuery(r, "buoy_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	start, err := parseTimeQuery(r, "start")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	end, err := parseTimeQuery(r, "end")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	threshold, err := observations.ParseThreshold(r.URL.Query().Get("threshold"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit, err := parseIntQuery(r, "limit", h.defaultLimit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	window := h.policy.Normalize(start, end, time.Now().UTC())
	rows, err := h.store.Window(r.Context(), buoyID, window, threshold, limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *DriftHandler) handleLast(w http.ResponseWriter, r *http.Request) {
	threshold, err := observations.ParseThreshold(r.URL.Query().Get("threshold"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var criteria []storage.Criterion
	if value := r.URL.Query().Get("buoy_id"); value != "" {
		buoyID, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			http.Error(w, "buoy_id must be an integer", http.StatusBadRequest)
			return
		}
		criteria = append(criteria, storage.Eq("buoy_id", buoyID))
	}

	rows, err := h.store.LatestPerBuoy(r.Context(), criteria, threshold)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *DriftHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var row observations.DriftObservation
	if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if row.BuoyID == 0 || row.DateTime.IsZero() {
		http.Error(w, "buoy_id and date_time are required", http.StatusBadRequest)
		return
	}

	created, err := h.store.Create(r.Context(), row)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)

	if h.auditLogger != nil {
		meta, _ := json.Marshal(map[string]any{"buoy_id": created.BuoyID})
		_ = h.auditLogger.Log(r.Context(), audit.Entry{
			Actor:        auth.SubjectFromContext(r.Context()),
			Role:         string(auth.RoleFromContext(r.Context())),
			Action:       "drift.create",
			ResourceType: "drift_observation",
			ResourceID:   strconv.FormatInt(created.ID, 10),
			Metadata:     meta,
			IP:           audit.ClientIP(r),
			UserAgent:    r.UserAgent(),
		})
	}
}
