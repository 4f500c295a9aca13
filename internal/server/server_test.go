package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/KenL-TW/travel-planner-pro/internal/database"
	"github.com/KenL-TW/travel-planner-pro/internal/snapshot"
)

func setupServer(t *testing.T) http.Handler {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(db, snapshot.Config{}, logger).Router()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func createTrip(t *testing.T, h http.Handler, title string) string {
	t.Helper()
	rec, out := doJSON(t, h, http.MethodPost, "/api/trips", map[string]any{"title": title})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create trip: status = %d, body = %s", rec.Code, rec.Body)
	}
	return out["trip_id"].(string)
}

func TestTripEndpoints(t *testing.T) {
	h := setupServer(t)

	tripID := createTrip(t, h, "Berlin")

	rec, out := doJSON(t, h, http.MethodGet, "/api/trips/"+tripID, nil)
	if rec.Code != http.StatusOK || out["title"] != "Berlin" {
		t.Fatalf("get trip: status = %d, title = %v", rec.Code, out["title"])
	}

	// A new trip comes with its starter day and checklists.
	rec, out = doJSON(t, h, http.MethodGet, "/api/trips/"+tripID+"/plan", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("plan: status = %d", rec.Code)
	}
	if days := out["days"].([]any); len(days) != 1 {
		t.Errorf("plan days = %d, want 1", len(days))
	}
	if lists := out["checklists"].([]any); len(lists) != 2 {
		t.Errorf("plan checklists = %d, want 2", len(lists))
	}

	rec, _ = doJSON(t, h, http.MethodDelete, "/api/trips/"+tripID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status = %d", rec.Code)
	}
	rec, _ = doJSON(t, h, http.MethodGet, "/api/trips/"+tripID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get deleted: status = %d, want 404", rec.Code)
	}
}

func TestTripValidation(t *testing.T) {
	h := setupServer(t)

	rec, _ := doJSON(t, h, http.MethodPost, "/api/trips", map[string]any{"title": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank title: status = %d, want 400", rec.Code)
	}

	rec, _ = doJSON(t, h, http.MethodPost, "/api/trips", map[string]any{"title": "X", "start_date": "01/05/2026"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad date: status = %d, want 400", rec.Code)
	}
}

func TestTaskCreateOnMissingEvent(t *testing.T) {
	h := setupServer(t)

	rec, _ := doJSON(t, h, http.MethodPost, "/api/events/ev_missing/tasks", map[string]any{"text": "t"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestTaskBoardEndpoint(t *testing.T) {
	h := setupServer(t)

	tripID := createTrip(t, h, "Board")

	rec, out := doJSON(t, h, http.MethodGet, "/api/trips/"+tripID+"/plan", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("plan: %d", rec.Code)
	}
	day := out["days"].([]any)[0].(map[string]any)
	dayID := day["day_id"].(string)

	rec, event := doJSON(t, h, http.MethodPost, "/api/days/"+dayID+"/events", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create event: %d", rec.Code)
	}
	eventID := event["event_id"].(string)

	rec, _ = doJSON(t, h, http.MethodPost, "/api/events/"+eventID+"/tasks", map[string]any{"text": "Reserve table"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create task: %d, body = %s", rec.Code, rec.Body)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/trips/"+tripID+"/board?status=todo", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("board: %d", w.Code)
	}
	var board []map[string]any
	json.Unmarshal(w.Body.Bytes(), &board)
	if len(board) != 1 || board[0]["text"] != "Reserve table" {
		t.Errorf("board = %v", board)
	}

	// Unknown enum values are rejected before hitting the store.
	req = httptest.NewRequest(http.MethodGet, "/api/trips/"+tripID+"/board?status=stalled", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad status filter: %d, want 400", w.Code)
	}
}

func TestTaskAssigneeMustBeOnTeam(t *testing.T) {
	h := setupServer(t)

	tripID := createTrip(t, h, "Team rules")
	_, plan := doJSON(t, h, http.MethodGet, "/api/trips/"+tripID+"/plan", nil)
	dayID := plan["days"].([]any)[0].(map[string]any)["day_id"].(string)
	_, event := doJSON(t, h, http.MethodPost, "/api/days/"+dayID+"/events", nil)
	eventID := event["event_id"].(string)

	rec, member := doJSON(t, h, http.MethodPost, "/api/members", map[string]any{"name": "Ana"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create member: %d", rec.Code)
	}
	memberID := member["member_id"].(string)

	// Not on the team yet: conflict.
	rec, _ = doJSON(t, h, http.MethodPost, "/api/events/"+eventID+"/tasks",
		map[string]any{"text": "t", "assignee_id": memberID})
	if rec.Code != http.StatusConflict {
		t.Fatalf("assignee off team: %d, want 409", rec.Code)
	}

	rec, _ = doJSON(t, h, http.MethodPut, fmt.Sprintf("/api/trips/%s/team/%s", tripID, memberID), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("add to team: %d", rec.Code)
	}

	rec, _ = doJSON(t, h, http.MethodPost, "/api/events/"+eventID+"/tasks",
		map[string]any{"text": "t", "assignee_id": memberID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("assignee on team: %d, want 201", rec.Code)
	}
}

func TestChecklistCreateEndpoint(t *testing.T) {
	h := setupServer(t)

	tripID := createTrip(t, h, "Lists")

	// A well-known key is kept on the created list.
	rec, out := doJSON(t, h, http.MethodPost, "/api/trips/"+tripID+"/checklists",
		map[string]any{"list_key": "documents", "title": "Visa paperwork"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create checklist: %d, body = %s", rec.Code, rec.Body)
	}
	if out["list_key"] != "documents" || out["title"] != "Visa paperwork" {
		t.Errorf("list = %v / %v, want documents / Visa paperwork", out["list_key"], out["title"])
	}

	// No key defaults to a custom list.
	rec, out = doJSON(t, h, http.MethodPost, "/api/trips/"+tripID+"/checklists",
		map[string]any{"title": "Souvenirs"})
	if rec.Code != http.StatusCreated || out["list_key"] != "custom" {
		t.Errorf("keyless list = %d / %v, want 201 custom", rec.Code, out["list_key"])
	}

	rec, _ = doJSON(t, h, http.MethodPost, "/api/trips/"+tripID+"/checklists",
		map[string]any{"list_key": "groceries", "title": "Nope"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown key: %d, want 400", rec.Code)
	}
}

func TestImportEndpoint(t *testing.T) {
	h := setupServer(t)

	// Invalid document: every record error comes back in one 422.
	rec, out := doJSON(t, h, http.MethodPost, "/api/import", map[string]any{
		"trips": []map[string]any{{"title": ""}},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid import: %d, want 422", rec.Code)
	}
	if _, ok := out["records"]; !ok {
		t.Error("422 body should enumerate record errors")
	}

	// Valid round trip through export.
	tripID := createTrip(t, h, "Exported")
	req := httptest.NewRequest(http.MethodGet, "/api/trips/"+tripID+"/export", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("export: %d", w.Code)
	}

	imp := httptest.NewRequest(http.MethodPost, "/api/import", bytes.NewReader(w.Body.Bytes()))
	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, imp)
	if w2.Code != http.StatusCreated {
		t.Fatalf("import: %d, body = %s", w2.Code, w2.Body)
	}
	var created map[string][]string
	json.Unmarshal(w2.Body.Bytes(), &created)
	if len(created["trip_ids"]) != 1 || created["trip_ids"][0] == tripID {
		t.Errorf("trip_ids = %v, want one fresh id", created["trip_ids"])
	}
}

func TestDayDeleteRenumbersOverHTTP(t *testing.T) {
	h := setupServer(t)

	tripID := createTrip(t, h, "Renumber")
	rec, d2 := doJSON(t, h, http.MethodPost, "/api/trips/"+tripID+"/days", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("append day: %d", rec.Code)
	}
	doJSON(t, h, http.MethodPost, "/api/trips/"+tripID+"/days", nil)

	rec, _ = doJSON(t, h, http.MethodDelete,
		fmt.Sprintf("/api/trips/%s/days/%s", tripID, d2["day_id"].(string)), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete day: %d", rec.Code)
	}

	_, plan := doJSON(t, h, http.MethodGet, "/api/trips/"+tripID+"/plan", nil)
	days := plan["days"].([]any)
	if len(days) != 2 {
		t.Fatalf("days = %d, want 2", len(days))
	}
	for i, d := range days {
		if no := d.(map[string]any)["day_no"].(float64); int(no) != i+1 {
			t.Errorf("days[%d].day_no = %v, want %d", i, no, i+1)
		}
	}
}

func TestSnapshotEndpointsWithoutCredentials(t *testing.T) {
	h := setupServer(t)

	rec, out := doJSON(t, h, http.MethodGet, "/api/snapshots/status", nil)
	if rec.Code != http.StatusOK || out["state"] != "disabled" {
		t.Errorf("status = %d / %v, want 200 disabled", rec.Code, out["state"])
	}

	rec, _ = doJSON(t, h, http.MethodPost, "/api/snapshots", map[string]any{"passphrase": "long enough"})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("run without creds: %d, want 502", rec.Code)
	}

	rec, _ = doJSON(t, h, http.MethodPut, "/api/settings/snapshot", map[string]any{"hour": 3, "enabled": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("update settings: %d", rec.Code)
	}
	rec, out = doJSON(t, h, http.MethodGet, "/api/settings/snapshot", nil)
	if rec.Code != http.StatusOK || out["snapshot_hour"] != "3" {
		t.Errorf("settings = %v", out)
	}
	if _, ok := out["snapshot_passphrase_salt"]; ok {
		t.Error("salt must not be exposed over the API")
	}

	rec, _ = doJSON(t, h, http.MethodPut, "/api/settings/snapshot", map[string]any{"hour": 24})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("hour out of range: %d, want 400", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	h := setupServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("health = %d, want 200", rec.Code)
	}
}
