package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Authentications resolves and maintains credential records
type Authentications interface {
	repository.Repository[*Authentication]

	GetByUsername(ctx context.Context, username string, authTypeCode AuthTypeCode) (*Authentication, error)
	GetByUsernameTx(ctx context.Context, tx bun.IDB, username string, authTypeCode AuthTypeCode) (*Authentication, error)
	GetLive(ctx context.Context, id uuid.UUID, username string) (*Authentication, error)
	GetLiveTx(ctx context.Context, tx bun.IDB, id uuid.UUID, username string) (*Authentication, error)
	UpsertWithRealmTx(ctx context.Context, tx bun.IDB, record *Authentication, realm *AuthenticationRealm) (*Authentication, error)
}

type authentications struct {
	repository.Repository[*Authentication]
	db *bun.DB
}

var _ Authentications = (*authentications)(nil)

func NewAuthenticationsRepository(db *bun.DB) Authentications {
	repo := repository.NewRepository[*Authentication](db, repository.ModelHandlers[*Authentication]{
		NewRecord: func() *Authentication { return &Authentication{} },
		GetID: func(a *Authentication) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Authentication, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "username"
		},
	})

	return &authentications{
		Repository: repo,
		db:         db,
	}
}

func (a *authentications) GetByUsername(ctx context.Context, username string, authTypeCode AuthTypeCode) (*Authentication, error) {
	return a.GetByUsernameTx(ctx, a.db, username, authTypeCode)
}

// GetByUsernameTx loads the credential for (username, authTypeCode)
// with its realms, the shape every realm checker expects.
func (a *authentications) GetByUsernameTx(ctx context.Context, tx bun.IDB, username string, authTypeCode AuthTypeCode) (*Authentication, error) {
	record := &Authentication{}

	err := tx.NewSelect().
		Model(record).
		Relation("Realms").
		Where("?TableAlias.username = ?", username).
		Where("?TableAlias.auth_type_code = ?", authTypeCode).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"username":       username,
					"auth_type_code": authTypeCode,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *authentications) GetLive(ctx context.Context, id uuid.UUID, username string) (*Authentication, error) {
	return a.GetLiveTx(ctx, a.db, id, username)
}

// GetLiveTx confirms the Authentication a token references still
// exists under the same username. Token validation rejects the token
// when this misses.
func (a *authentications) GetLiveTx(ctx context.Context, tx bun.IDB, id uuid.UUID, username string) (*Authentication, error) {
	record := &Authentication{}

	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.username = ?", username).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id":       id.String(),
					"username": username,
				})
		}
		return nil, err
	}

	return record, nil
}

// UpsertWithRealmTx creates or reuses the Authentication row and
// attaches a fresh realm entry. Used by registration, always inside
// the caller's transaction.
func (a *authentications) UpsertWithRealmTx(ctx context.Context, tx bun.IDB, record *Authentication, realm *AuthenticationRealm) (*Authentication, error) {
	existing, err := a.GetByUsernameTx(ctx, tx, record.Username, record.AuthTypeCode)
	found := err == nil
	if found {
		record.ID = existing.ID
	} else if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	if !found {
		if record.ID == uuid.Nil {
			record.ID = uuid.New()
		}
		if record.SignupDate == nil {
			now := time.Now()
			record.SignupDate = &now
		}
		if record, err = a.Repository.CreateTx(ctx, tx, record); err != nil {
			return nil, err
		}
	} else if record, err = a.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(record.ID.String())); err != nil {
		return nil, err
	}

	realm.ID = uuid.New()
	realm.AuthenticationID = record.ID
	if realm.CreatedAt == nil {
		now := time.Now()
		realm.CreatedAt = &now
	}

	if _, err := tx.NewInsert().Model(realm).Exec(ctx); err != nil {
		return nil, err
	}

	record.Realms = append(record.Realms, realm)
	return record, nil
}
