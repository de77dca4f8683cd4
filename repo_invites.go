package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// InviteTokens verifies and consumes one-time registration tokens.
// Consumption only ever happens inside the registration transaction.
type InviteTokens interface {
	GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*InviteToken, error)
	ConsumeTx(ctx context.Context, tx bun.IDB, token string) error
}

type inviteTokens struct {
	db *bun.DB
}

var _ InviteTokens = (*inviteTokens)(nil)

func NewInviteTokensRepository(db *bun.DB) InviteTokens {
	return &inviteTokens{db: db}
}

func (r *inviteTokens) GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*InviteToken, error) {
	record := &InviteToken{}

	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.token = ?", token).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrInviteTokenInvalid
		}
		return nil, err
	}

	return record, nil
}

// ConsumeTx marks the token used. The used_at guard means a token can
// be consumed at most once; a second consume reports the conflict.
func (r *inviteTokens) ConsumeTx(ctx context.Context, tx bun.IDB, token string) error {
	now := time.Now()

	res, err := tx.NewUpdate().
		Model((*InviteToken)(nil)).
		Set("used_at = ?", now).
		Where("token = ?", token).
		Where("used_at IS NULL").
		Exec(ctx)

	if err != nil {
		return err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return ErrInviteTokenUsed
	}

	return nil
}
