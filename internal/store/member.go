package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/KenL-TW/travel-planner-pro/internal/model"
)

type MemberStore struct {
	db *sql.DB
}

func NewMemberStore(db *sql.DB) *MemberStore {
	return &MemberStore{db: db}
}

func scanMember(scanner interface{ Scan(...any) error }) (*model.Member, error) {
	var m model.Member
	var active int
	err := scanner.Scan(&m.ID, &m.Name, &m.Role, &m.Email, &active, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.Active = active != 0
	return &m, nil
}

const memberCols = `member_id, name, role, email, active, created_at`

func (s *MemberStore) Create(name, role, email string) (*model.Member, error) {
	id := model.NewID(model.PrefixMember)
	_, err := s.db.Exec(
		`INSERT INTO members (member_id, name, role, email, active, created_at) VALUES (?, ?, ?, ?, 1, ?)`,
		id, name, role, email, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}
	return s.GetByID(id)
}

func (s *MemberStore) GetByID(id string) (*model.Member, error) {
	row := s.db.QueryRow(`SELECT `+memberCols+` FROM members WHERE member_id = ?`, id)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (s *MemberStore) List(activeOnly bool) ([]model.Member, error) {
	query := `SELECT ` + memberCols + ` FROM members ORDER BY created_at ASC`
	if activeOnly {
		query = `SELECT ` + memberCols + ` FROM members WHERE active = 1 ORDER BY created_at ASC`
	}
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (s *MemberStore) Update(id, name, role, email string) (*model.Member, error) {
	_, err := s.db.Exec(
		`UPDATE members SET name = ?, role = ?, email = ? WHERE member_id = ?`,
		name, role, email, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update member: %w", err)
	}
	return s.GetByID(id)
}

// SetActive flips the member's active flag. Deactivated members stay in the
// roster so historical assignments keep resolving names.
func (s *MemberStore) SetActive(id string, active bool) error {
	v := 0
	if active {
		v = 1
	}
	_, err := s.db.Exec(`UPDATE members SET active = ? WHERE member_id = ?`, v, id)
	if err != nil {
		return fmt.Errorf("set member active: %w", err)
	}
	return nil
}

// FindMatch weak-matches a member against the roster, preferring email
// (case-insensitive), then exact name. Used by imports to reuse members
// instead of duplicating them.
func (s *MemberStore) FindMatch(name, email string) (*model.Member, error) {
	members, err := s.List(false)
	if err != nil {
		return nil, err
	}
	if email != "" {
		for i := range members {
			if strings.EqualFold(members[i].Email, email) {
				return &members[i], nil
			}
		}
	}
	if name != "" {
		for i := range members {
			if members[i].Name == name {
				return &members[i], nil
			}
		}
	}
	return nil, nil
}
