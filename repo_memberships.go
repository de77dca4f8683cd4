package auth

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Persons exposes the person records owned by the record store
type Persons interface {
	repository.Repository[*Person]

	GetByUserName(ctx context.Context, userName string) (*Person, error)
	GetByUserNameTx(ctx context.Context, tx bun.IDB, userName string) (*Person, error)
	AcceptTx(ctx context.Context, tx bun.IDB, person *Person) (*Person, error)
}

type persons struct {
	repository.Repository[*Person]
	db *bun.DB
}

var _ Persons = (*persons)(nil)

func NewPersonsRepository(db *bun.DB) Persons {
	repo := repository.NewRepository[*Person](db, repository.ModelHandlers[*Person]{
		NewRecord: func() *Person { return &Person{} },
		GetID: func(p *Person) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Person, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "user_name"
		},
	})

	return &persons{Repository: repo, db: db}
}

func (r *persons) GetByUserName(ctx context.Context, userName string) (*Person, error) {
	return r.GetByUserNameTx(ctx, r.db, userName)
}

func (r *persons) GetByUserNameTx(ctx context.Context, tx bun.IDB, userName string) (*Person, error) {
	record := &Person{}

	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_name = ?", userName).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"user_name": userName})
		}
		return nil, err
	}

	return record, nil
}

// AcceptTx flips the person to accepted. The status column guard in
// the WHERE clause makes the invited -> accepted transition happen at
// most once even under a concurrent redeem.
func (r *persons) AcceptTx(ctx context.Context, tx bun.IDB, person *Person) (*Person, error) {
	person.Status = PersonStatusAccepted

	res, err := tx.NewUpdate().
		Model(person).
		Column("status").
		Where("?TableAlias.id = ?", person.ID).
		Where("?TableAlias.status NOT IN (?, ?)", PersonStatusAccepted, PersonStatusVerifying).
		Exec(ctx)

	if err != nil {
		return nil, err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return nil, ErrPersonNotInvited
	}

	return person, nil
}

// PartyGroups reads tenants
type PartyGroups interface {
	GetByCode(ctx context.Context, code string) (*PartyGroup, error)
	GetByCodeTx(ctx context.Context, tx bun.IDB, code string) (*PartyGroup, error)
	ListByCodes(ctx context.Context, codes []string) ([]*PartyGroup, error)
	ListByCodesTx(ctx context.Context, tx bun.IDB, codes []string) ([]*PartyGroup, error)
}

type partyGroups struct {
	db *bun.DB
}

var _ PartyGroups = (*partyGroups)(nil)

// NewPartyGroupsRepository returns a PartyGroups store. The tenant key
// is its string code, so this one skips the uuid-keyed base repository
// and queries bun directly.
func NewPartyGroupsRepository(db *bun.DB) PartyGroups {
	return &partyGroups{db: db}
}

func (r *partyGroups) GetByCode(ctx context.Context, code string) (*PartyGroup, error) {
	return r.GetByCodeTx(ctx, r.db, code)
}

func (r *partyGroups) GetByCodeTx(ctx context.Context, tx bun.IDB, code string) (*PartyGroup, error) {
	record := &PartyGroup{}

	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.code = ?", code).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"code": code})
		}
		return nil, err
	}

	return record, nil
}

func (r *partyGroups) ListByCodes(ctx context.Context, codes []string) ([]*PartyGroup, error) {
	return r.ListByCodesTx(ctx, r.db, codes)
}

func (r *partyGroups) ListByCodesTx(ctx context.Context, tx bun.IDB, codes []string) ([]*PartyGroup, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	var records []*PartyGroup
	err := tx.NewSelect().
		Model(&records).
		Where("?TableAlias.code IN (?)", bun.In(codes)).
		Order("code ASC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

// PartyGroupSystems reads tenant system links
type PartyGroupSystems interface {
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*PartyGroupSystem, error)
	ListByIDsTx(ctx context.Context, tx bun.IDB, ids []uuid.UUID) ([]*PartyGroupSystem, error)
}

type partyGroupSystems struct {
	db *bun.DB
}

var _ PartyGroupSystems = (*partyGroupSystems)(nil)

func NewPartyGroupSystemsRepository(db *bun.DB) PartyGroupSystems {
	return &partyGroupSystems{db: db}
}

func (r *partyGroupSystems) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*PartyGroupSystem, error) {
	return r.ListByIDsTx(ctx, r.db, ids)
}

func (r *partyGroupSystems) ListByIDsTx(ctx context.Context, tx bun.IDB, ids []uuid.UUID) ([]*PartyGroupSystem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var records []*PartyGroupSystem
	err := tx.NewSelect().
		Model(&records).
		Where("?TableAlias.id IN (?)", bun.In(ids)).
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

// PersonSystems reads person/alias membership rows
type PersonSystems interface {
	ListForEntity(ctx context.Context, kind PersonSystemType, primaryKey uuid.UUID) ([]*PersonSystem, error)
	ListForEntityTx(ctx context.Context, tx bun.IDB, kind PersonSystemType, primaryKey uuid.UUID) ([]*PersonSystem, error)
}

type personSystems struct {
	db *bun.DB
}

var _ PersonSystems = (*personSystems)(nil)

func NewPersonSystemsRepository(db *bun.DB) PersonSystems {
	return &personSystems{db: db}
}

func (r *personSystems) ListForEntity(ctx context.Context, kind PersonSystemType, primaryKey uuid.UUID) ([]*PersonSystem, error) {
	return r.ListForEntityTx(ctx, r.db, kind, primaryKey)
}

// ListForEntityTx loads membership rows ordered by id so the first
// membership is deterministic. Callers join PartyGroupSystem rows
// explicitly through ListByIDsTx.
func (r *personSystems) ListForEntityTx(ctx context.Context, tx bun.IDB, kind PersonSystemType, primaryKey uuid.UUID) ([]*PersonSystem, error) {
	var records []*PersonSystem
	err := tx.NewSelect().
		Model(&records).
		Where("?TableAlias.type = ?", kind).
		Where("?TableAlias.primary_key = ?", primaryKey).
		Order("id ASC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

// Apis reads machine entities
type Apis interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Api, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Api, error)
}

type apis struct {
	db *bun.DB
}

var _ Apis = (*apis)(nil)

func NewApisRepository(db *bun.DB) Apis {
	return &apis{db: db}
}

func (r *apis) GetByID(ctx context.Context, id uuid.UUID) (*Api, error) {
	return r.GetByIDTx(ctx, r.db, id)
}

func (r *apis) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Api, error) {
	record := &Api{}

	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, err
	}

	return record, nil
}
