package auth

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories plus the transaction
// entry point. Core operations come in X/XTx pairs: the Tx variant
// takes an explicit handle, the plain variant is a thin wrapper that
// opens one at the outermost call. There is no ambient transaction
// state.
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Authentications() Authentications
	Persons() Persons
	PartyGroups() PartyGroups
	PartyGroupSystems() PartyGroupSystems
	PersonSystems() PersonSystems
	InviteTokens() InviteTokens
	Apis() Apis
	AccessLogs() AccessLogs
}

type mngr struct {
	db                *bun.DB
	authentications   Authentications
	persons           Persons
	partyGroups       PartyGroups
	partyGroupSystems PartyGroupSystems
	personSystems     PersonSystems
	inviteTokens      InviteTokens
	apis              Apis
	accessLogs        AccessLogs
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:                db,
		authentications:   NewAuthenticationsRepository(db),
		persons:           NewPersonsRepository(db),
		partyGroups:       NewPartyGroupsRepository(db),
		partyGroupSystems: NewPartyGroupSystemsRepository(db),
		personSystems:     NewPersonSystemsRepository(db),
		inviteTokens:      NewInviteTokensRepository(db),
		apis:              NewApisRepository(db),
		accessLogs:        NewAccessLogsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.authentications == nil {
		return errors.New("repository authentications should be initialized")
	}

	if m.persons == nil {
		return errors.New("repository persons should be initialized")
	}

	if m.partyGroups == nil {
		return errors.New("repository partyGroups should be initialized")
	}

	if m.partyGroupSystems == nil {
		return errors.New("repository partyGroupSystems should be initialized")
	}

	if m.personSystems == nil {
		return errors.New("repository personSystems should be initialized")
	}

	if m.inviteTokens == nil {
		return errors.New("repository inviteTokens should be initialized")
	}

	if m.apis == nil {
		return errors.New("repository apis should be initialized")
	}

	if m.accessLogs == nil {
		return errors.New("repository accessLogs should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Authentications() Authentications { return m.authentications }

func (m mngr) Persons() Persons { return m.persons }

func (m mngr) PartyGroups() PartyGroups { return m.partyGroups }

func (m mngr) PartyGroupSystems() PartyGroupSystems { return m.partyGroupSystems }

func (m mngr) PersonSystems() PersonSystems { return m.personSystems }

func (m mngr) InviteTokens() InviteTokens { return m.inviteTokens }

func (m mngr) Apis() Apis { return m.apis }

func (m mngr) AccessLogs() AccessLogs { return m.accessLogs }
