package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civic-desk/complaint-service/internal/domain"
)

// ComplaintMessageRepository manages complaint thread messages.
type ComplaintMessageRepository interface {
	Create(ctx context.Context, msg *domain.ComplaintMessage) error
	ListByComplaint(ctx context.Context, complaintID string, senderRole *domain.Role) ([]domain.ComplaintMessage, error)
}

type complaintMessageRepository struct {
	pool *pgxpool.Pool
}

// NewComplaintMessageRepository builds repository.
func NewComplaintMessageRepository(pool *pgxpool.Pool) ComplaintMessageRepository {
	return &complaintMessageRepository{pool: pool}
}

func (r *complaintMessageRepository) Create(ctx context.Context, msg *domain.ComplaintMessage) error {
	const query = `
        INSERT INTO complaint_messages (complaint_id, sender_id, body, created_at)
        VALUES ($1,$2,$3,$4)
        RETURNING id`
	return translate(r.pool.QueryRow(ctx, query,
		msg.ComplaintID,
		msg.SenderID,
		msg.Body,
		msg.CreatedAt,
	).Scan(&msg.ID))
}

func (r *complaintMessageRepository) ListByComplaint(ctx context.Context, complaintID string, senderRole *domain.Role) ([]domain.ComplaintMessage, error) {
	if !validID(complaintID) {
		return nil, nil
	}
	query := `
        SELECT m.id, m.complaint_id, m.sender_id, u.name, u.role, m.body, m.created_at
        FROM complaint_messages m JOIN users u ON u.id = m.sender_id
        WHERE m.complaint_id=$1`
	args := []any{complaintID}
	if senderRole != nil {
		args = append(args, *senderRole)
		query += " AND u.role=$2"
	}
	query += " ORDER BY m.created_at ASC, m.id ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ComplaintMessage
	for rows.Next() {
		var msg domain.ComplaintMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.ComplaintID,
			&msg.SenderID,
			&msg.SenderName,
			&msg.SenderRole,
			&msg.Body,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
