package repository

import (
	"context"
	"database/sql"

	"github.com/botteghino/fiscal-ticketing/internal/model"
)

// AuditRepo persists the fiscal audit trail.  Rows arrive through the
// queue consumer rather than straight from handlers, so a burst of
// emissions never blocks on audit writes.
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo constructs an AuditRepo with the given DB handle.
func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// Insert appends one audit record.  created_at defaults to the DB
// clock when the caller leaves CreatedAt zero.
func (r *AuditRepo) Insert(ctx context.Context, rec *model.AuditRecord) error {
	if rec.CreatedAt.IsZero() {
		const q = `INSERT INTO audit_records (actor_id, action, entity, entity_id, description) VALUES (?, ?, ?, ?, ?)`
		res, err := r.db.ExecContext(ctx, q, rec.ActorID, rec.Action, rec.Entity, rec.EntityID, rec.Description)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		rec.ID = uint64(id)
		return nil
	}
	const q = `INSERT INTO audit_records (actor_id, action, entity, entity_id, description, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, rec.ActorID, rec.Action, rec.Entity, rec.EntityID, rec.Description, rec.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	return nil
}

// ListRecent returns the newest audit records first.  action filters by
// exact action name when non-empty; actorID filters by actor when
// non-zero.  Both filters combine.
func (r *AuditRepo) ListRecent(ctx context.Context, action string, actorID uint64, limit int) ([]model.AuditRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := `SELECT id, actor_id, action, entity, entity_id, description, created_at FROM audit_records`
	var (
		conds []string
		args  []any
	)
	if action != "" {
		conds = append(conds, "action = ?")
		args = append(args, action)
	}
	if actorID != 0 {
		conds = append(conds, "actor_id = ?")
		args = append(args, actorID)
	}
	for i, c := range conds {
		if i == 0 {
			q += " WHERE " + c
		} else {
			q += " AND " + c
		}
	}
	q += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []model.AuditRecord
	for rows.Next() {
		var rec model.AuditRecord
		if err := rows.Scan(&rec.ID, &rec.ActorID, &rec.Action, &rec.Entity, &rec.EntityID, &rec.Description, &rec.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
