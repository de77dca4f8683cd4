package auth

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// AccessLogs is the audit trail for credential operations. Append runs
// on the base connection, never inside a saga transaction, so the
// entry survives a rollback.
type AccessLogs interface {
	Append(ctx context.Context, entry *AccessLog) error
	Recent(ctx context.Context, filter AccessLogFilter, limit int) ([]*AccessLog, error)
}

// AccessLogFilter narrows a Recent query
type AccessLogFilter struct {
	System         string
	PartyGroupCode string
	Username       string
	RealmCode      RealmCode
	Action         string
}

type accessLogs struct {
	db *bun.DB
}

var _ AccessLogs = (*accessLogs)(nil)

func NewAccessLogsRepository(db *bun.DB) AccessLogs {
	return &accessLogs{db: db}
}

func (r *accessLogs) Append(ctx context.Context, entry *AccessLog) error {
	if entry.CreatedAt == nil {
		now := time.Now()
		entry.CreatedAt = &now
	}

	_, err := r.db.NewInsert().Model(entry).Exec(ctx)
	return err
}

// Recent returns the newest entries first, bounded by limit
func (r *accessLogs) Recent(ctx context.Context, filter AccessLogFilter, limit int) ([]*AccessLog, error) {
	if limit <= 0 {
		limit = 10
	}

	var records []*AccessLog
	q := r.db.NewSelect().Model(&records)

	if filter.System != "" {
		q = q.Where("?TableAlias.system = ?", filter.System)
	}
	if filter.PartyGroupCode != "" {
		q = q.Where("?TableAlias.party_group_code = ?", filter.PartyGroupCode)
	}
	if filter.Username != "" {
		q = q.Where("?TableAlias.username = ?", filter.Username)
	}
	if filter.RealmCode != "" {
		q = q.Where("?TableAlias.realm_code = ?", filter.RealmCode)
	}
	if filter.Action != "" {
		q = q.Where("?TableAlias.action = ?", filter.Action)
	}

	if err := q.Order("id DESC").Limit(limit).Scan(ctx); err != nil {
		return nil, err
	}

	return records, nil
}
