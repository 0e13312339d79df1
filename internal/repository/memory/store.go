// Package memory implements the repository interfaces in process. It backs
// the service and handler tests and serves as the runtime store when no
// Postgres DSN is configured. A single mutex stands in for row locks, so every
// Mutate and Delete sees the latest committed state.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/civic-desk/complaint-service/internal/domain"
	"github.com/civic-desk/complaint-service/internal/repository"
)

// Store holds every table.
type Store struct {
	mu          sync.Mutex
	seq         int64
	users       map[string]*domain.User
	departments map[string]*domain.Department
	complaints  map[string]*complaintRow
	history     []domain.StatusHistory
	messages    []domain.ComplaintMessage
	resets      map[string]*domain.PasswordResetToken
}

type complaintRow struct {
	seq  int64
	data domain.Complaint
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:       make(map[string]*domain.User),
		departments: make(map[string]*domain.Department),
		complaints:  make(map[string]*complaintRow),
		resets:      make(map[string]*domain.PasswordResetToken),
	}
}

func (s *Store) Complaints() repository.ComplaintRepository {
	return complaintRepo{s}
}

func (s *Store) History() repository.StatusHistoryRepository {
	return historyRepo{s}
}

func (s *Store) Messages() repository.ComplaintMessageRepository {
	return messageRepo{s}
}

func (s *Store) Departments() repository.DepartmentRepository {
	return departmentRepo{s}
}

func (s *Store) Users() repository.UserRepository {
	return userRepo{s}
}

func (s *Store) PasswordResets() repository.PasswordResetRepository {
	return resetRepo{s}
}

// hydrate fills the joined display columns. Caller holds s.mu.
func (s *Store) hydrate(c domain.Complaint) domain.Complaint {
	if u, ok := s.users[c.UserID]; ok {
		c.OwnerName = u.Name
	}
	if d, ok := s.departments[c.DepartmentID]; ok {
		c.DepartmentName = d.Name
	}
	return c
}

func (s *Store) departmentByName(name string) *domain.Department {
	for _, d := range s.departments {
		if d.Name == name {
			return d
		}
	}
	return nil
}

type complaintRepo struct{ s *Store }

func (r complaintRepo) Create(_ context.Context, complaint *domain.Complaint, entry *domain.StatusHistory) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[complaint.UserID]; !ok {
		return repository.ErrNotFound
	}
	dept := s.departmentByName(complaint.DepartmentName)
	if dept == nil {
		created := detachDepartment(domain.Department{ID: uuid.NewString(), Name: complaint.DepartmentName, CreatedAt: complaint.CreatedAt})
		dept = &created
		s.departments[dept.ID] = dept
	}
	complaint.ID = uuid.NewString()
	complaint.DepartmentID = dept.ID
	complaint.DepartmentName = dept.Name

	s.seq++
	s.complaints[complaint.ID] = &complaintRow{seq: s.seq, data: detachComplaint(*complaint)}

	entry.ID = uuid.NewString()
	entry.ComplaintID = complaint.ID
	s.history = append(s.history, detachHistory(*entry))
	return nil
}

func (r complaintRepo) GetByID(_ context.Context, id string) (*domain.Complaint, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.complaints[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := s.hydrate(row.data)
	return &c, nil
}

func (r complaintRepo) List(_ context.Context, filter repository.ComplaintFilter) ([]domain.Complaint, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]*complaintRow, 0, len(s.complaints))
	for _, row := range s.complaints {
		c := row.data
		if filter.UserID != nil && c.UserID != *filter.UserID {
			continue
		}
		if filter.DepartmentID != nil && c.DepartmentID != *filter.DepartmentID {
			continue
		}
		if filter.DepartmentName != nil && strings.TrimSpace(*filter.DepartmentName) != "" {
			d, ok := s.departments[c.DepartmentID]
			if !ok || d.Name != strings.TrimSpace(*filter.DepartmentName) {
				continue
			}
		}
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].data.CreatedAt.Equal(rows[j].data.CreatedAt) {
			return rows[i].data.CreatedAt.After(rows[j].data.CreatedAt)
		}
		return rows[i].seq > rows[j].seq
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(rows) {
			rows = nil
		} else {
			rows = rows[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(rows) > filter.Limit {
		rows = rows[:filter.Limit]
	}

	result := make([]domain.Complaint, 0, len(rows))
	for _, row := range rows {
		result = append(result, s.hydrate(row.data))
	}
	return result, nil
}

func (r complaintRepo) Stats(_ context.Context, filter repository.StatsFilter) (domain.ComplaintStats, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats domain.ComplaintStats
	for _, row := range s.complaints {
		c := row.data
		if filter.DepartmentID != nil && c.DepartmentID != *filter.DepartmentID {
			continue
		}
		stats.Total++
		switch c.Status {
		case domain.StatusPending:
			stats.Pending++
		case domain.StatusInProgress:
			stats.InProgress++
		case domain.StatusSolved:
			stats.Solved++
		}
		if c.UpdatedBy != nil && filter.ActorID != "" && *c.UpdatedBy == filter.ActorID {
			stats.UpdatedByMe++
		}
	}
	return stats, nil
}

func (r complaintRepo) Mutate(_ context.Context, id string, fn repository.MutateFunc) (*domain.Complaint, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.complaints[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	working := s.hydrate(row.data)
	entry, err := fn(&working)
	if err != nil {
		return nil, err
	}
	working.ID = row.data.ID
	row.data = detachComplaint(working)
	if entry != nil {
		entry.ID = uuid.NewString()
		entry.ComplaintID = row.data.ID
		s.history = append(s.history, detachHistory(*entry))
	}
	out := working
	return &out, nil
}

func (r complaintRepo) Delete(_ context.Context, id string, check repository.CheckFunc) (*domain.Complaint, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.complaints[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	current := s.hydrate(row.data)
	if check != nil {
		if err := check(&current); err != nil {
			return nil, err
		}
	}
	delete(s.complaints, id)

	history := s.history[:0]
	for _, h := range s.history {
		if h.ComplaintID != id {
			history = append(history, h)
		}
	}
	s.history = history

	messages := s.messages[:0]
	for _, m := range s.messages {
		if m.ComplaintID != id {
			messages = append(messages, m)
		}
	}
	s.messages = messages
	return &current, nil
}

type historyRepo struct{ s *Store }

func (r historyRepo) ListByComplaint(_ context.Context, complaintID string) ([]domain.StatusHistory, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []domain.StatusHistory
	for _, h := range s.history {
		if h.ComplaintID == complaintID {
			result = append(result, h)
		}
	}
	return result, nil
}

type messageRepo struct{ s *Store }

func (r messageRepo) Create(_ context.Context, msg *domain.ComplaintMessage) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.complaints[msg.ComplaintID]; !ok {
		return repository.ErrNotFound
	}
	msg.ID = uuid.NewString()
	s.messages = append(s.messages, detachMessage(*msg))
	return nil
}

func (r messageRepo) ListByComplaint(_ context.Context, complaintID string, senderRole *domain.Role) ([]domain.ComplaintMessage, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []domain.ComplaintMessage
	for _, m := range s.messages {
		if m.ComplaintID != complaintID {
			continue
		}
		if u, ok := s.users[m.SenderID]; ok {
			m.SenderName = u.Name
			m.SenderRole = u.Role
		}
		if senderRole != nil && m.SenderRole != *senderRole {
			continue
		}
		result = append(result, m)
	}
	return result, nil
}

type departmentRepo struct{ s *Store }

func (r departmentRepo) Create(_ context.Context, dept *domain.Department) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.departmentByName(dept.Name) != nil {
		return repository.ErrDuplicate
	}
	dept.ID = uuid.NewString()
	if dept.CreatedAt.IsZero() {
		dept.CreatedAt = time.Now().UTC()
	}
	stored := detachDepartment(*dept)
	s.departments[dept.ID] = &stored
	return nil
}

func (r departmentRepo) GetByID(_ context.Context, id string) (*domain.Department, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.departments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *d
	return &out, nil
}

func (r departmentRepo) GetByName(_ context.Context, name string) (*domain.Department, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.departmentByName(name)
	if d == nil {
		return nil, repository.ErrNotFound
	}
	out := *d
	return &out, nil
}

func (r departmentRepo) List(_ context.Context) ([]domain.Department, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]domain.Department, 0, len(s.departments))
	for _, d := range s.departments {
		result = append(result, *d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	if user.DepartmentID != nil {
		if _, ok := s.departments[*user.DepartmentID]; !ok {
			return repository.ErrNotFound
		}
	}
	now := time.Now().UTC()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	stored := detachUser(*user)
	s.users[user.ID] = &stored
	return nil
}

func (r userRepo) Update(_ context.Context, user *domain.User) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	user.UpdatedAt = time.Now().UTC()
	updated := *existing
	updated.Name = user.Name
	updated.PasswordHash = user.PasswordHash
	updated.Phone = user.Phone
	updated.Address = user.Address
	updated.Age = user.Age
	updated.Gender = user.Gender
	updated.ProfilePicture = user.ProfilePicture
	updated.UpdatedAt = user.UpdatedAt
	updated = detachUser(updated)
	s.users[updated.ID] = &updated
	return nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

type resetRepo struct{ s *Store }

func (r resetRepo) Create(_ context.Context, token *domain.PasswordResetToken) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.resets[token.Token]; ok {
		return repository.ErrDuplicate
	}
	token.ID = uuid.NewString()
	token.CreatedAt = time.Now().UTC()
	stored := detachToken(*token)
	s.resets[stored.Token] = &stored
	return nil
}

func (r resetRepo) GetByToken(_ context.Context, token string) (*domain.PasswordResetToken, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.resets[token]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *t
	return &out, nil
}

func (r resetRepo) Redeem(_ context.Context, id, passwordHash string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.resets {
		if t.ID != id || t.UsedAt != nil {
			continue
		}
		user, ok := s.users[t.UserID]
		if !ok {
			return repository.ErrNotFound
		}
		now := time.Now().UTC()
		updated := *user
		updated.PasswordHash = strings.Clone(passwordHash)
		updated.UpdatedAt = now
		s.users[updated.ID] = &updated
		t.UsedAt = &now
		return nil
	}
	return repository.ErrNotFound
}
