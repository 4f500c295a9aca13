package transfer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/KenL-TW/travel-planner-pro/internal/apperr"
	"github.com/KenL-TW/travel-planner-pro/internal/model"
)

// Import validates the document and applies it in one transaction. Imported
// trips always get fresh ids; members are weak-matched against the existing
// roster (email first, then name) and reused. On any validation failure
// nothing is written and the returned error enumerates every offending
// record.
func (s *Service) Import(doc *Document) ([]string, error) {
	if err := validate(doc); err != nil {
		return nil, err
	}

	// Resolve document members against the roster before opening the
	// transaction; these are read-only lookups.
	resolved := make(map[string]string, len(doc.Members)) // doc member id -> existing roster id
	var toCreate []model.Member
	for _, m := range doc.Members {
		match, err := s.members.FindMatch(strings.TrimSpace(m.Name), strings.TrimSpace(m.Email))
		if err != nil {
			return nil, err
		}
		if match != nil {
			resolved[m.ID] = match.ID
		} else {
			toCreate = append(toCreate, m)
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	memberMap := make(map[string]string, len(doc.Members))
	for old, id := range resolved {
		memberMap[old] = id
	}
	for _, m := range toCreate {
		id := model.NewID(model.PrefixMember)
		active := 0
		if m.Active {
			active = 1
		}
		_, err := tx.Exec(
			`INSERT INTO members (member_id, name, role, email, active, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			id, strings.TrimSpace(m.Name), strings.TrimSpace(m.Role), strings.TrimSpace(m.Email), active, now,
		)
		if err != nil {
			return nil, fmt.Errorf("import member: %w", err)
		}
		memberMap[m.ID] = id
	}

	var newTripIDs []string
	for _, te := range doc.Trips {
		tripID := model.NewID(model.PrefixTrip)
		newTripIDs = append(newTripIDs, tripID)

		currency := te.Currency
		if currency == "" {
			currency = model.DefaultCurrency
		}
		_, err := tx.Exec(
			`INSERT INTO trips (trip_id, title, destination, start_date, end_date, currency, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			tripID, strings.TrimSpace(te.Title), te.Destination, te.StartDate, te.EndDate, currency, orNow(te.CreatedAt, now),
		)
		if err != nil {
			return nil, fmt.Errorf("import trip: %w", err)
		}

		// Team: explicit team list plus every assignee, so task
		// references always resolve to members on the trip.
		team := make(map[string]struct{})
		for _, old := range te.Team {
			if id, ok := memberMap[old]; ok {
				team[id] = struct{}{}
			}
		}

		// Day numbers in the document may carry gaps; they keep their
		// relative order but land as a dense 1..N sequence.
		days := make([]DayExport, len(te.Days))
		copy(days, te.Days)
		sort.Slice(days, func(i, j int) bool { return days[i].DayNo < days[j].DayNo })

		for dayIdx, de := range days {
			dayID := model.NewID(model.PrefixDay)
			_, err := tx.Exec(
				`INSERT INTO days (day_id, trip_id, day_no, date, note, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
				dayID, tripID, dayIdx+1, de.Date, de.Note, orNow(de.CreatedAt, now),
			)
			if err != nil {
				return nil, fmt.Errorf("import day: %w", err)
			}

			for _, ee := range de.Events {
				eventID := model.NewID(model.PrefixEvent)
				eventTime := ee.Time
				if eventTime == "" {
					eventTime = model.DefaultEventTime
				}
				category := ee.Category
				if category == "" {
					category = model.CategoryOther
				}
				_, err := tx.Exec(
					`INSERT INTO events (event_id, trip_id, day_id, time, title, location, category, cost, notes, tags, created_at)
					 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
					eventID, tripID, dayID, eventTime, ee.Title, ee.Location, category, ee.Cost, ee.Notes, ee.Tags, orNow(ee.CreatedAt, now),
				)
				if err != nil {
					return nil, fmt.Errorf("import event: %w", err)
				}

				for _, tk := range ee.Tasks {
					var assignee any
					if tk.AssigneeID != nil {
						id := memberMap[*tk.AssigneeID]
						assignee = id
						team[id] = struct{}{}
					}
					_, err := tx.Exec(
						`INSERT INTO tasks (task_id, trip_id, event_id, text, status, assignee_id, due_date, priority, created_at)
						 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
						model.NewID(model.PrefixTask), tripID, eventID, strings.TrimSpace(tk.Text),
						tk.Status, assignee, tk.DueDate, tk.Priority, orNow(tk.CreatedAt, now),
					)
					if err != nil {
						return nil, fmt.Errorf("import task: %w", err)
					}
				}
			}
		}

		for _, ce := range te.Checklists {
			checklistID := model.NewID(model.PrefixChecklist)
			key := ce.Key
			if key == "" {
				key = model.ChecklistKeyCustom
			}
			_, err := tx.Exec(
				`INSERT INTO checklists (checklist_id, trip_id, list_key, title, created_at) VALUES (?, ?, ?, ?, ?)`,
				checklistID, tripID, key, strings.TrimSpace(ce.Title), orNow(ce.CreatedAt, now),
			)
			if err != nil {
				return nil, fmt.Errorf("import checklist: %w", err)
			}
			for _, it := range ce.Items {
				checked := 0
				if it.Checked {
					checked = 1
				}
				_, err := tx.Exec(
					`INSERT INTO checklist_items (item_id, checklist_id, text, checked, created_at) VALUES (?, ?, ?, ?, ?)`,
					model.NewID(model.PrefixChecklistItem), checklistID, strings.TrimSpace(it.Text), checked, orNow(it.CreatedAt, now),
				)
				if err != nil {
					return nil, fmt.Errorf("import checklist item: %w", err)
				}
			}
		}

		for memberID := range team {
			_, err := tx.Exec(
				`INSERT OR IGNORE INTO trip_members (trip_id, member_id) VALUES (?, ?)`,
				tripID, memberID,
			)
			if err != nil {
				return nil, fmt.Errorf("import team member: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	s.logger.Info("import applied", "trips", len(newTripIDs), "members_created", len(toCreate))
	return newTripIDs, nil
}

func orNow(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t.UTC()
}

// validate sweeps the whole document, collecting every structural problem:
// missing required fields, invalid enum values, duplicate day numbers, and
// assignee references that do not resolve within the document.
func validate(doc *Document) error {
	ie := &apperr.ImportError{}

	if doc == nil {
		ie.Add("document", "", "", "empty document")
		return ie
	}
	if len(doc.Trips) == 0 {
		ie.Add("document", "", "trips", "at least one trip is required")
	}

	memberIDs := make(map[string]struct{}, len(doc.Members))
	for i, m := range doc.Members {
		if strings.TrimSpace(m.Name) == "" {
			ie.Add("member", m.ID, "name", fmt.Sprintf("member %d: name is required", i))
		}
		if m.ID == "" {
			ie.Add("member", "", "member_id", fmt.Sprintf("member %d: id is required", i))
			continue
		}
		if _, dup := memberIDs[m.ID]; dup {
			ie.Add("member", m.ID, "member_id", "duplicate member id")
		}
		memberIDs[m.ID] = struct{}{}
	}

	for _, te := range doc.Trips {
		if strings.TrimSpace(te.Title) == "" {
			ie.Add("trip", te.ID, "title", "title is required")
		}

		dayNos := make(map[int]struct{}, len(te.Days))
		for _, de := range te.Days {
			if de.DayNo < 1 {
				ie.Add("day", de.ID, "day_no", "day_no must be >= 1")
			}
			if _, dup := dayNos[de.DayNo]; dup {
				ie.Add("day", de.ID, "day_no", fmt.Sprintf("duplicate day_no %d", de.DayNo))
			}
			dayNos[de.DayNo] = struct{}{}

			for _, ee := range de.Events {
				if ee.Category != "" && !model.ValidCategory(ee.Category) {
					ie.Add("event", ee.ID, "category", fmt.Sprintf("invalid category %q", ee.Category))
				}
				for _, tk := range ee.Tasks {
					if strings.TrimSpace(tk.Text) == "" {
						ie.Add("task", tk.ID, "text", "text is required")
					}
					if !model.ValidStatus(tk.Status) {
						ie.Add("task", tk.ID, "status", fmt.Sprintf("invalid status %q", tk.Status))
					}
					if !model.ValidPriority(tk.Priority) {
						ie.Add("task", tk.ID, "priority", fmt.Sprintf("invalid priority %q", tk.Priority))
					}
					if tk.AssigneeID != nil {
						if _, ok := memberIDs[*tk.AssigneeID]; !ok {
							ie.Add("task", tk.ID, "assignee_id", fmt.Sprintf("assignee %q not in document members", *tk.AssigneeID))
						}
					}
				}
			}
		}

		for _, old := range te.Team {
			if _, ok := memberIDs[old]; !ok {
				ie.Add("trip", te.ID, "team", fmt.Sprintf("team member %q not in document members", old))
			}
		}

		for _, ce := range te.Checklists {
			if strings.TrimSpace(ce.Title) == "" {
				ie.Add("checklist", ce.ID, "title", "title is required")
			}
			for _, it := range ce.Items {
				if strings.TrimSpace(it.Text) == "" {
					ie.Add("checklist_item", it.ID, "text", "text is required")
				}
			}
		}
	}

	return ie.OrNil()
}
