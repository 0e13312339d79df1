package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civic-desk/complaint-service/internal/domain"
)

// ComplaintFilter narrows complaint listings. DepartmentID is the scope filter
// applied for department admins; it is part of the WHERE clause, never a
// post-filter.
type ComplaintFilter struct {
	UserID         *string
	DepartmentID   *string
	DepartmentName *string
	Status         *domain.ComplaintStatus
	Limit          int
	Offset         int
}

// StatsFilter scopes dashboard counts. ActorID feeds the updated-by-me count.
type StatsFilter struct {
	DepartmentID *string
	ActorID      string
}

// MutateFunc runs against the locked current row. The returned history entry,
// if any, is committed together with the row update.
type MutateFunc func(c *domain.Complaint) (*domain.StatusHistory, error)

// CheckFunc inspects the locked row before a delete.
type CheckFunc func(c *domain.Complaint) error

// ComplaintRepository owns complaint rows and their audit trail.
type ComplaintRepository interface {
	Create(ctx context.Context, complaint *domain.Complaint, entry *domain.StatusHistory) error
	GetByID(ctx context.Context, id string) (*domain.Complaint, error)
	List(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error)
	Stats(ctx context.Context, filter StatsFilter) (domain.ComplaintStats, error)
	Mutate(ctx context.Context, id string, fn MutateFunc) (*domain.Complaint, error)
	Delete(ctx context.Context, id string, check CheckFunc) (*domain.Complaint, error)
}

type complaintRepository struct {
	pool *pgxpool.Pool
}

// NewComplaintRepository instantiates repository.
func NewComplaintRepository(pool *pgxpool.Pool) ComplaintRepository {
	return &complaintRepository{pool: pool}
}

const selectComplaint = `
        SELECT c.id, c.user_id, u.name, c.department_id, d.name, c.title, c.description,
               c.location, c.district, c.subcategory, c.status, c.admin_response,
               c.image_path, c.voice_path, c.updated_by, c.created_at, c.updated_at
        FROM complaints c
        JOIN users u ON u.id = c.user_id
        JOIN departments d ON d.id = c.department_id`

// Create resolves the department by name, creating it on first reference, and
// stores the complaint with its creation history entry in one transaction.
func (r *complaintRepository) Create(ctx context.Context, complaint *domain.Complaint, entry *domain.StatusHistory) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const upsertDepartment = `
        INSERT INTO departments (name) VALUES ($1)
        ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
        RETURNING id, name`
	if err := tx.QueryRow(ctx, upsertDepartment, complaint.DepartmentName).
		Scan(&complaint.DepartmentID, &complaint.DepartmentName); err != nil {
		return fmt.Errorf("resolve department: %w", err)
	}

	const insertComplaint = `
        INSERT INTO complaints (user_id, department_id, title, description, location, district, subcategory,
                                status, image_path, voice_path, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$11)
        RETURNING id`
	if err := tx.QueryRow(ctx, insertComplaint,
		complaint.UserID,
		complaint.DepartmentID,
		complaint.Title,
		complaint.Description,
		complaint.Location,
		complaint.District,
		complaint.Subcategory,
		complaint.Status,
		complaint.ImagePath,
		complaint.VoicePath,
		complaint.CreatedAt,
	).Scan(&complaint.ID); err != nil {
		return translate(err)
	}

	entry.ComplaintID = complaint.ID
	if err := insertHistory(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *complaintRepository) GetByID(ctx context.Context, id string) (*domain.Complaint, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	return scanComplaint(r.pool.QueryRow(ctx, selectComplaint+" WHERE c.id=$1", id))
}

func (r *complaintRepository) List(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("c.user_id=$%d", len(args)))
	}
	if filter.DepartmentID != nil {
		if !validID(*filter.DepartmentID) {
			return nil, nil
		}
		args = append(args, *filter.DepartmentID)
		clauses = append(clauses, fmt.Sprintf("c.department_id=$%d", len(args)))
	}
	if filter.DepartmentName != nil && strings.TrimSpace(*filter.DepartmentName) != "" {
		args = append(args, strings.TrimSpace(*filter.DepartmentName))
		clauses = append(clauses, fmt.Sprintf("d.name=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("c.status=$%d", len(args)))
	}

	query := selectComplaint + " WHERE " + strings.Join(clauses, " AND ") + " ORDER BY c.created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Complaint
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

func (r *complaintRepository) Stats(ctx context.Context, filter StatsFilter) (domain.ComplaintStats, error) {
	var stats domain.ComplaintStats
	args := []any{filter.ActorID}
	query := `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status='pending'),
               COUNT(*) FILTER (WHERE status='in_progress'),
               COUNT(*) FILTER (WHERE status='solved'),
               COUNT(*) FILTER (WHERE updated_by::text=$1)
        FROM complaints`
	if filter.DepartmentID != nil {
		if !validID(*filter.DepartmentID) {
			return stats, nil
		}
		args = append(args, *filter.DepartmentID)
		query += " WHERE department_id=$2"
	}
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&stats.Total,
		&stats.Pending,
		&stats.InProgress,
		&stats.Solved,
		&stats.UpdatedByMe,
	)
	return stats, err
}

// Mutate locks the complaint row, hands the current state to fn and persists
// the result. Concurrent mutations of the same complaint are serialized by the
// row lock, so fn always sees the latest committed status.
func (r *complaintRepository) Mutate(ctx context.Context, id string, fn MutateFunc) (*domain.Complaint, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	complaint, err := scanComplaint(tx.QueryRow(ctx, selectComplaint+" WHERE c.id=$1 FOR UPDATE OF c", id))
	if err != nil {
		return nil, err
	}

	entry, err := fn(complaint)
	if err != nil {
		return nil, err
	}

	const update = `
        UPDATE complaints SET title=$1, description=$2, status=$3, admin_response=$4,
            updated_by=$5, updated_at=$6
        WHERE id=$7`
	if _, err := tx.Exec(ctx, update,
		complaint.Title,
		complaint.Description,
		complaint.Status,
		complaint.AdminResponse,
		complaint.UpdatedBy,
		complaint.UpdatedAt,
		complaint.ID,
	); err != nil {
		return nil, err
	}

	if entry != nil {
		entry.ComplaintID = complaint.ID
		if err := insertHistory(ctx, tx, entry); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return complaint, nil
}

// Delete removes the complaint after check approves the locked row. History
// and messages go with it through ON DELETE CASCADE.
func (r *complaintRepository) Delete(ctx context.Context, id string, check CheckFunc) (*domain.Complaint, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	complaint, err := scanComplaint(tx.QueryRow(ctx, selectComplaint+" WHERE c.id=$1 FOR UPDATE OF c", id))
	if err != nil {
		return nil, err
	}
	if check != nil {
		if err := check(complaint); err != nil {
			return nil, err
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM complaints WHERE id=$1`, complaint.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return complaint, nil
}

func scanComplaint(row pgx.Row) (*domain.Complaint, error) {
	var c domain.Complaint
	if err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.OwnerName,
		&c.DepartmentID,
		&c.DepartmentName,
		&c.Title,
		&c.Description,
		&c.Location,
		&c.District,
		&c.Subcategory,
		&c.Status,
		&c.AdminResponse,
		&c.ImagePath,
		&c.VoicePath,
		&c.UpdatedBy,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}
