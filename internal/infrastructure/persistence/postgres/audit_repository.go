package postgres

import (
	"context"
	"fmt"

	"github.com/docbook/docbook-payments/internal/audit"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepository persists audit entries. Rows are only ever inserted;
// nothing updates or deletes them.
type AuditRepository struct {
	db *pgxpool.Pool
}

func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Insert(ctx context.Context, entry *audit.Entry) error {
	query := `
		INSERT INTO audit_logs (
			id, actor_id, actor_name, actor_role, action, module, severity, description,
			target_id, target_model, previous_data, new_data, ip_address, user_agent, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.db.Exec(ctx, query,
		entry.ID, entry.ActorID, entry.ActorName, entry.ActorRole,
		entry.Action, string(entry.Module), string(entry.Severity), entry.Description,
		entry.TargetID, entry.TargetModel,
		entry.PreviousData, entry.NewData,
		entry.IPAddress, entry.UserAgent,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepository) List(ctx context.Context, limit, offset int) ([]*audit.Entry, error) {
	query := `
		SELECT id, actor_id, actor_name, actor_role, action, module, severity, description,
		       target_id, target_model, previous_data, new_data, ip_address, user_agent, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*audit.Entry, error) {
		var e audit.Entry
		var module, severity string
		err := row.Scan(
			&e.ID, &e.ActorID, &e.ActorName, &e.ActorRole, &e.Action, &module, &severity, &e.Description,
			&e.TargetID, &e.TargetModel, &e.PreviousData, &e.NewData, &e.IPAddress, &e.UserAgent, &e.CreatedAt,
		)
		e.Module = audit.Module(module)
		e.Severity = audit.Severity(severity)
		return &e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan audit entries: %w", err)
	}
	return results, nil
}
