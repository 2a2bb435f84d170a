package apihttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	fleet "buoycloud/internal/fleet/domain"
	observations "buoycloud/internal/observations/domain"
	storage "buoycloud/internal/storage/postgres"
)

type stubBuoyStore struct {
	buoys   map[int64]fleet.Buoy
	created []fleet.Buoy
	deleted []int64
}

func (s *stubBuoyStore) Show(ctx context.Context, buoyID int64) (fleet.Buoy, error) {
	buoy, ok := s.buoys[buoyID]
	if !ok {
		return fleet.Buoy{}, storage.ErrNotFound
	}
	return buoy, nil
}

func (s *stubBuoyStore) ListOrdered(ctx context.Context, criteria []storage.Criterion) ([]fleet.Buoy, error) {
	result := make([]fleet.Buoy, 0, len(s.buoys))
	for _, buoy := range s.buoys {
		result = append(result, buoy)
	}
	return result, nil
}

func (s *stubBuoyStore) Create(ctx context.Context, buoy fleet.Buoy) (fleet.Buoy, error) {
	for _, existing := range s.buoys {
		if existing.Name == buoy.Name {
			return fleet.Buoy{}, fleet.ErrDuplicateName
		}
	}
	buoy.BuoyID = int64(len(s.buoys) + 1)
	s.created = append(s.created, buoy)
	return buoy, nil
}

func (s *stubBuoyStore) Update(ctx context.Context, buoyID int64, fields map[string]any) (fleet.Buoy, error) {
	buoy, ok := s.buoys[buoyID]
	if !ok {
		return fleet.Buoy{}, storage.ErrNotFound
	}
	return buoy, nil
}

func (s *stubBuoyStore) Delete(ctx context.Context, buoyID int64) (fleet.Buoy, error) {
	buoy, ok := s.buoys[buoyID]
	if !ok {
		return fleet.Buoy{}, storage.ErrNotFound
	}
	s.deleted = append(s.deleted, buoyID)
	return buoy, nil
}

type stubQualifiedStore struct {
	rows       []observations.QualifiedObservation
	lastWindow observations.Window
	lastLimit  int
}

func (s *stubQualifiedStore) Show(ctx context.Context, id int64) (observations.QualifiedObservation, error) {
	for _, row := range s.rows {
		if row.ID == id {
			return row, nil
		}
	}
	return observations.QualifiedObservation{}, storage.ErrNotFound
}

func (s *stubQualifiedStore) Window(ctx context.Context, buoyID int64, window observations.Window, threshold observations.Threshold, limit int) ([]observations.QualifiedObservation, error) {
	s.lastWindow = window
	s.lastLimit = limit
	return s.rows, nil
}

func (s *stubQualifiedStore) LatestPerBuoy(ctx context.Context, criteria []storage.Criterion, threshold observations.Threshold) ([]observations.QualifiedObservation, error) {
	return s.rows, nil
}

func (s *stubQualifiedStore) Create(ctx context.Context, row observations.QualifiedObservation) (observations.QualifiedObservation, error) {
	row.ID = int64(len(s.rows) + 1)
	s.rows = append(s.rows, row)
	return row, nil
}

func (s *stubQualifiedStore) Update(ctx context.Context, id int64, fields map[string]any) (observations.QualifiedObservation, error) {
	return s.Show(ctx, id)
}

func (s *stubQualifiedStore) Delete(ctx context.Context, id int64) (observations.QualifiedObservation, error) {
	return s.Show(ctx, id)
}

func testBuoy(id int64, name string) fleet.Buoy {
	return fleet.Buoy{BuoyID: id, Name: name}
}

func TestBuoyHandler_ShowNotFound(t *testing.T) {
	handler, err := NewBuoyHandler(&stubBuoyStore{buoys: map[int64]fleet.Buoy{}}, nil)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/buoys/42", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestBuoyHandler_Show(t *testing.T) {
	store := &stubBuoyStore{buoys: map[int64]fleet.Buoy{7: testBuoy(7, "Itajai")}}
	handler, _ := NewBuoyHandler(store, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/buoys/7", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var buoy fleet.Buoy
	if err := json.Unmarshal(resp.Body.Bytes(), &buoy); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if buoy.Name != "Itajai" {
		t.Fatalf("name: got %q", buoy.Name)
	}
}

func TestBuoyHandler_CreateDuplicateName(t *testing.T) {
	store := &stubBuoyStore{buoys: map[int64]fleet.Buoy{7: testBuoy(7, "Itajai")}}
	handler, _ := NewBuoyHandler(store, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/buoys", strings.NewReader(`{"name":"Itajai"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}

func TestBuoyHandler_CreateRequiresName(t *testing.T) {
	handler, _ := NewBuoyHandler(&stubBuoyStore{buoys: map[int64]fleet.Buoy{}}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/buoys", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestBuoyHandler_BadFilter(t *testing.T) {
	handler, _ := NewBuoyHandler(&stubBuoyStore{buoys: map[int64]fleet.Buoy{}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/buoys?status=maybe", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestQualifiedHandler_WindowRequiresBuoyID(t *testing.T) {
	handler, err := NewQualifiedHandler(&stubQualifiedStore{}, nil, nil, observations.DefaultWindowPolicy(), nil, 0)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/qualified", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestQualifiedHandler_WindowDefaults(t *testing.T) {
	store := &stubQualifiedStore{}
	handler, _ := NewQualifiedHandler(store, nil, nil, observations.DefaultWindowPolicy(), nil, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/qualified?buoy_id=7", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	span := store.lastWindow.Span()
	if span != 4*24*time.Hour {
		t.Fatalf("default window span: got %s", span)
	}
}

func TestQualifiedHandler_WindowBadThreshold(t *testing.T) {
	handler, _ := NewQualifiedHandler(&stubQualifiedStore{}, nil, nil, observations.DefaultWindowPolicy(), nil, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/qualified?buoy_id=7&threshold=hard", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestQualifiedHandler_WindowCSVExport(t *testing.T) {
	wspd := 8.4
	store := &stubQualifiedStore{rows: []observations.QualifiedObservation{
		{ID: 1, BuoyID: 7, DateTime: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC), Wspd1: &wspd},
	}}
	buoys := &stubBuoyStore{buoys: map[int64]fleet.Buoy{7: testBuoy(7, "Itajai")}}
	handler, _ := NewQualifiedHandler(store, buoys, nil, observations.DefaultWindowPolicy(), nil, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/qualified?buoy_id=7&format=csv", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if got := resp.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/csv") {
		t.Fatalf("content type: got %q", got)
	}
	if got := resp.Header().Get("Content-Disposition"); !strings.Contains(got, "itajai_") {
		t.Fatalf("disposition: got %q", got)
	}
	if !strings.Contains(resp.Body.String(), "8.4") {
		t.Fatalf("csv body missing value: %s", resp.Body.String())
	}
}

func TestQualifiedHandler_WindowBadFormat(t *testing.T) {
	handler, _ := NewQualifiedHandler(&stubQualifiedStore{}, nil, nil, observations.DefaultWindowPolicy(), nil, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/qualified?buoy_id=7&format=xml", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestQualifiedHandler_CreateRequiresFields(t *testing.T) {
	handler, _ := NewQualifiedHandler(&stubQualifiedStore{}, nil, nil, observations.DefaultWindowPolicy(), nil, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/qualified", strings.NewReader(`{"latitude":-23.5}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestQualifiedHandler_Last(t *testing.T) {
	store := &stubQualifiedStore{rows: []observations.QualifiedObservation{
		{ID: 1, BuoyID: 7, DateTime: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)},
	}}
	handler, _ := NewQualifiedHandler(store, nil, nil, observations.DefaultWindowPolicy(), nil, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/qualified/last", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var rows []observations.QualifiedObservation
	if err := json.Unmarshal(resp.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 1 || rows[0].BuoyID != 7 {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}
