package transfer

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/KenL-TW/travel-planner-pro/internal/apperr"
	"github.com/KenL-TW/travel-planner-pro/internal/database"
	"github.com/KenL-TW/travel-planner-pro/internal/model"
	"github.com/KenL-TW/travel-planner-pro/internal/store"
)

func setupService(t *testing.T) (*Service, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(db, logger), db
}

// seedTrip builds a small but complete trip graph and returns its id.
func seedTrip(t *testing.T, db *sql.DB) (tripID, memberID string) {
	t.Helper()
	ts := store.NewTripStore(db)
	ds := store.NewDayStore(db)
	es := store.NewEventStore(db)
	tks := store.NewTaskStore(db)
	cs := store.NewChecklistStore(db)
	ms := store.NewMemberStore(db)

	trip, err := ts.Create("Kyoto", "Japan", "2026-11-01", "2026-11-05", "JPY")
	if err != nil {
		t.Fatalf("seed trip: %v", err)
	}
	member, _ := ms.Create("Ana", "organizer", "ana@example.com")
	ts.AddTeamMember(trip.ID, member.ID)

	days, _ := ds.ListByTrip(trip.ID)
	event, _ := es.Create(trip.ID, days[0].ID)
	es.Update(event.ID, "14:00", "Fushimi Inari", "Kyoto", model.CategorySightseeing, 0, "bring water", "hike")
	tks.Create(trip.ID, event.ID, "Charge camera", &member.ID)

	lists, _ := cs.ListByTrip(trip.ID)
	cs.CreateItem(lists[0].ID, "Passport")

	return trip.ID, member.ID
}

func TestExportTrip(t *testing.T) {
	svc, db := setupService(t)
	tripID, memberID := seedTrip(t, db)

	doc, err := svc.ExportTrip(tripID)
	if err != nil {
		t.Fatalf("export trip: %v", err)
	}
	if len(doc.Trips) != 1 {
		t.Fatalf("exported %d trips, want 1", len(doc.Trips))
	}

	te := doc.Trips[0]
	if te.Title != "Kyoto" || te.Currency != "JPY" {
		t.Errorf("trip = %q/%q", te.Title, te.Currency)
	}
	if len(te.Days) != 1 || len(te.Days[0].Events) != 1 {
		t.Fatalf("graph shape: %d days", len(te.Days))
	}
	if len(te.Days[0].Events[0].Tasks) != 1 {
		t.Errorf("event tasks = %d, want 1", len(te.Days[0].Events[0].Tasks))
	}
	if len(te.Checklists) != 2 {
		t.Errorf("checklists = %d, want 2 seeded lists", len(te.Checklists))
	}
	if len(te.Team) != 1 || te.Team[0] != memberID {
		t.Errorf("team = %v, want [%s]", te.Team, memberID)
	}
	if len(doc.Members) != 1 {
		t.Errorf("members = %d, want 1", len(doc.Members))
	}
}

func TestExportTripNotFound(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.ExportTrip("trip_missing")
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind != apperr.KindNotFound {
		t.Fatalf("err = %v, want not-found", err)
	}
}

func TestImportRoundTrip(t *testing.T) {
	source, sourceDB := setupService(t)
	tripID, _ := seedTrip(t, sourceDB)
	doc, err := source.ExportTrip(tripID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	// Import into a fresh database.
	dest, destDB := setupService(t)
	newIDs, err := dest.Import(doc)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(newIDs) != 1 {
		t.Fatalf("imported %d trips, want 1", len(newIDs))
	}
	if newIDs[0] == tripID {
		t.Error("imported trip must get a fresh id")
	}

	got, err := dest.ExportTrip(newIDs[0])
	if err != nil {
		t.Fatalf("re-export: %v", err)
	}
	te := got.Trips[0]
	if te.Title != "Kyoto" {
		t.Errorf("title = %q", te.Title)
	}
	if len(te.Days) != 1 || len(te.Days[0].Events) != 1 || len(te.Days[0].Events[0].Tasks) != 1 {
		t.Fatal("imported graph lost shape")
	}

	// The assignee maps to the newly created member, who lands on the team.
	task := te.Days[0].Events[0].Tasks[0]
	if task.AssigneeID == nil {
		t.Fatal("assignee should survive import")
	}
	members, _ := store.NewMemberStore(destDB).List(false)
	if len(members) != 1 {
		t.Fatalf("members = %d, want 1", len(members))
	}
	if *task.AssigneeID != members[0].ID {
		t.Errorf("assignee = %s, want %s", *task.AssigneeID, members[0].ID)
	}
	if len(te.Team) != 1 || te.Team[0] != members[0].ID {
		t.Errorf("team = %v", te.Team)
	}
}

func TestImportReusesMatchingMembers(t *testing.T) {
	source, sourceDB := setupService(t)
	tripID, _ := seedTrip(t, sourceDB)
	doc, _ := source.ExportTrip(tripID)

	dest, destDB := setupService(t)
	// A roster member with the same email but different casing and name.
	existing, _ := store.NewMemberStore(destDB).Create("Ana Silva", "", "ANA@example.com")

	newIDs, err := dest.Import(doc)
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	members, _ := store.NewMemberStore(destDB).List(false)
	if len(members) != 1 {
		t.Fatalf("members = %d, want the existing one reused", len(members))
	}
	if members[0].ID != existing.ID {
		t.Error("import should reuse the matched member")
	}

	got, _ := dest.ExportTrip(newIDs[0])
	task := got.Trips[0].Days[0].Events[0].Tasks[0]
	if task.AssigneeID == nil || *task.AssigneeID != existing.ID {
		t.Errorf("assignee = %v, want reused member %s", task.AssigneeID, existing.ID)
	}
}

func TestExportIncludesDeactivatedAssignees(t *testing.T) {
	source, sourceDB := setupService(t)
	tripID, memberID := seedTrip(t, sourceDB)

	if err := store.NewMemberStore(sourceDB).SetActive(memberID, false); err != nil {
		t.Fatalf("deactivate member: %v", err)
	}

	doc, err := source.ExportTrip(tripID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(doc.Members) != 1 || doc.Members[0].ID != memberID {
		t.Fatalf("members = %v, want the deactivated assignee", doc.Members)
	}
	if doc.Members[0].Active {
		t.Error("exported member should carry its deactivated state")
	}
	if len(doc.Trips[0].Team) != 1 || doc.Trips[0].Team[0] != memberID {
		t.Errorf("team = %v, want the member's row kept", doc.Trips[0].Team)
	}

	// The document must pass its own import.
	dest, destDB := setupService(t)
	newIDs, err := dest.Import(doc)
	if err != nil {
		t.Fatalf("import of own export: %v", err)
	}

	got, _ := dest.ExportTrip(newIDs[0])
	task := got.Trips[0].Days[0].Events[0].Tasks[0]
	if task.AssigneeID == nil {
		t.Fatal("assignee should survive the round trip")
	}
	members, _ := store.NewMemberStore(destDB).List(false)
	if len(members) != 1 || members[0].Active {
		t.Errorf("imported member = %v, want one deactivated member", members)
	}
}

func TestImportRenumbersDayGaps(t *testing.T) {
	svc, db := setupService(t)

	doc := &Document{
		Trips: []TripExport{
			{
				Trip: model.Trip{Title: "Gappy"},
				Days: []DayExport{
					{Day: model.Day{DayNo: 5, Note: "later"}},
					{Day: model.Day{DayNo: 2, Note: "earlier"}},
				},
			},
		},
	}

	ids, err := svc.Import(doc)
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	days, err := store.NewDayStore(db).ListByTrip(ids[0])
	if err != nil {
		t.Fatalf("list days: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("days = %d, want 2", len(days))
	}
	for i, d := range days {
		if d.DayNo != i+1 {
			t.Errorf("days[%d].day_no = %d, want %d", i, d.DayNo, i+1)
		}
	}
	if days[0].Note != "earlier" || days[1].Note != "later" {
		t.Errorf("relative order lost: %q, %q", days[0].Note, days[1].Note)
	}
}

func TestImportValidationCollectsAllErrors(t *testing.T) {
	svc, db := setupService(t)

	assignee := "mem_ghost"
	doc := &Document{
		Members: []model.Member{
			{ID: "mem_1", Name: ""}, // missing name
		},
		Trips: []TripExport{
			{
				Trip: model.Trip{Title: ""}, // missing title
				Days: []DayExport{
					{
						Day: model.Day{DayNo: 0}, // below 1
						Events: []EventExport{
							{
								Event: model.Event{Category: "teleport"}, // invalid
								Tasks: []model.Task{
									{Text: "", Status: "blocked", Priority: "urgent", AssigneeID: &assignee},
								},
							},
						},
					},
				},
				Team: []string{"mem_unknown"},
			},
		},
	}

	_, err := svc.Import(doc)
	var ie *apperr.ImportError
	if !errors.As(err, &ie) {
		t.Fatalf("err = %v, want ImportError", err)
	}
	if len(ie.Records) < 7 {
		t.Errorf("records = %d, want every problem reported at once:\n%v", len(ie.Records), ie.Records)
	}

	// Nothing may have been written.
	trips, _ := store.NewTripStore(db).List()
	if len(trips) != 0 {
		t.Errorf("trips = %d, want 0 after rejected import", len(trips))
	}
	members, _ := store.NewMemberStore(db).List(false)
	if len(members) != 0 {
		t.Errorf("members = %d, want 0 after rejected import", len(members))
	}
}

func TestImportEmptyDocument(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Import(&Document{})
	var ie *apperr.ImportError
	if !errors.As(err, &ie) {
		t.Fatalf("err = %v, want ImportError", err)
	}
}

func TestImportDuplicateDayNumbers(t *testing.T) {
	svc, _ := setupService(t)

	doc := &Document{
		Trips: []TripExport{
			{
				Trip: model.Trip{Title: "Dup days"},
				Days: []DayExport{
					{Day: model.Day{DayNo: 1}},
					{Day: model.Day{DayNo: 1}},
				},
			},
		},
	}

	_, err := svc.Import(doc)
	var ie *apperr.ImportError
	if !errors.As(err, &ie) {
		t.Fatalf("err = %v, want ImportError", err)
	}
}

func TestAssembleTripMatchesExport(t *testing.T) {
	svc, db := setupService(t)
	tripID, memberID := seedTrip(t, db)

	te, team, err := svc.AssembleTrip(tripID)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if te.Title != "Kyoto" {
		t.Errorf("title = %q", te.Title)
	}
	if len(team) != 1 || team[0].ID != memberID {
		t.Errorf("team = %v", team)
	}

	doc, _ := svc.ExportTrip(tripID)
	if len(doc.Trips[0].Days) != len(te.Days) {
		t.Error("plan and export should agree on the day graph")
	}
}
