package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civic-desk/complaint-service/internal/domain"
)

// StatusHistoryRepository reads audit entries. Entries are written only by
// ComplaintRepository, inside the transaction that changes the status.
type StatusHistoryRepository interface {
	ListByComplaint(ctx context.Context, complaintID string) ([]domain.StatusHistory, error)
}

type statusHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewStatusHistoryRepository builds repository.
func NewStatusHistoryRepository(pool *pgxpool.Pool) StatusHistoryRepository {
	return &statusHistoryRepository{pool: pool}
}

func insertHistory(ctx context.Context, q querier, entry *domain.StatusHistory) error {
	const query = `
        INSERT INTO complaint_status_history (complaint_id, old_status, new_status, changed_by, note, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id`
	return translate(q.QueryRow(ctx, query,
		entry.ComplaintID,
		entry.OldStatus,
		entry.NewStatus,
		entry.ChangedBy,
		entry.Note,
		entry.Timestamp,
	).Scan(&entry.ID))
}

func (r *statusHistoryRepository) ListByComplaint(ctx context.Context, complaintID string) ([]domain.StatusHistory, error) {
	if !validID(complaintID) {
		return nil, nil
	}
	const query = `
        SELECT id, complaint_id, old_status, new_status, changed_by, note, created_at
        FROM complaint_status_history WHERE complaint_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, complaintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StatusHistory
	for rows.Next() {
		var entry domain.StatusHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.ComplaintID,
			&entry.OldStatus,
			&entry.NewStatus,
			&entry.ChangedBy,
			&entry.Note,
			&entry.Timestamp,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
