package auth_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	auth "github.com/swivelsoftware/tenant-auth"
	"github.com/uptrace/bun"
)

// assertTextCode unwraps err and checks its machine-readable code,
// leaving the human message free to change.
func assertTextCode(t *testing.T, err error, textCode string) {
	t.Helper()
	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr), "expected a coded error, got %v", err)
	assert.Equal(t, textCode, richErr.TextCode)
}

// MockConfig implements auth.Config
type MockConfig struct {
	mock.Mock
}

func (m *MockConfig) GetSigningKey() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetIssuer() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetAudience() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

func (m *MockConfig) GetAccessTokenTTL() time.Duration {
	args := m.Called()
	return args.Get(0).(time.Duration)
}

func (m *MockConfig) GetRefreshTokenTTL() time.Duration {
	args := m.Called()
	return args.Get(0).(time.Duration)
}

func (m *MockConfig) GetExtendedRefreshTokenTTL() time.Duration {
	args := m.Called()
	return args.Get(0).(time.Duration)
}

func (m *MockConfig) GetExemptDomain() string {
	args := m.Called()
	return args.String(0)
}

func newMockConfig() *MockConfig {
	cfg := new(MockConfig)
	cfg.On("GetSigningKey").Return("test-signing-key")
	cfg.On("GetIssuer").Return("test-issuer")
	cfg.On("GetAudience").Return([]string{"test:audience"})
	cfg.On("GetAccessTokenTTL").Return(10 * time.Minute)
	cfg.On("GetRefreshTokenTTL").Return(24 * time.Hour)
	cfg.On("GetExtendedRefreshTokenTTL").Return(30 * 24 * time.Hour)
	cfg.On("GetExemptDomain").Return("swivelsoftware.com")
	return cfg
}

const testPassword = "correct-horse-battery"

var (
	testHashOnce sync.Once
	testHash     string
)

// hashedTestPassword hashes testPassword once; the cost factor makes
// per-test hashing too slow.
func hashedTestPassword() string {
	testHashOnce.Do(func() {
		hash, err := auth.HashPassword(testPassword)
		if err != nil {
			panic(err)
		}
		testHash = hash
	})
	return testHash
}

// testLogger records log lines so assertions can check what was
// reported internally without anything reaching the outside.
type testLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *testLogger) record(level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, level+" "+fmt.Sprintf(format, args...))
}

func (l *testLogger) Debug(format string, args ...any) { l.record("DBG", format, args...) }
func (l *testLogger) Info(format string, args ...any)  { l.record("INF", format, args...) }
func (l *testLogger) Warn(format string, args ...any)  { l.record("WRN", format, args...) }
func (l *testLogger) Error(format string, args ...any) { l.record("ERR", format, args...) }

func (l *testLogger) lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

// fakeStore is the in-memory state behind the fake repositories. The
// fakes ignore the bun handle they receive; transactional behavior is
// emulated by snapshot and restore in RunInTx.
type fakeStore struct {
	authentications   map[string]*auth.Authentication
	persons           map[string]*auth.Person
	partyGroups       map[string]*auth.PartyGroup
	partyGroupSystems []*auth.PartyGroupSystem
	personSystems     []*auth.PersonSystem
	invites           map[string]*auth.InviteToken
	apis              map[uuid.UUID]*auth.Api
	logs              []*auth.AccessLog
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		authentications: map[string]*auth.Authentication{},
		persons:         map[string]*auth.Person{},
		partyGroups:     map[string]*auth.PartyGroup{},
		invites:         map[string]*auth.InviteToken{},
		apis:            map[uuid.UUID]*auth.Api{},
	}
}

func authKey(username, authTypeCode string) string {
	return username + "|" + authTypeCode
}

func (s *fakeStore) snapshot() *fakeStore {
	cp := newFakeStore()

	for k, v := range s.authentications {
		rec := *v
		rec.Realms = make([]*auth.AuthenticationRealm, len(v.Realms))
		for i, realm := range v.Realms {
			r := *realm
			rec.Realms[i] = &r
		}
		cp.authentications[k] = &rec
	}

	for k, v := range s.persons {
		rec := *v
		cp.persons[k] = &rec
	}

	for k, v := range s.partyGroups {
		rec := *v
		cp.partyGroups[k] = &rec
	}

	cp.partyGroupSystems = append(cp.partyGroupSystems, s.partyGroupSystems...)
	cp.personSystems = append(cp.personSystems, s.personSystems...)

	for k, v := range s.invites {
		rec := *v
		cp.invites[k] = &rec
	}

	for k, v := range s.apis {
		rec := *v
		cp.apis[k] = &rec
	}

	cp.logs = append(cp.logs, s.logs...)

	return cp
}

func (s *fakeStore) restore(snap *fakeStore) {
	s.authentications = snap.authentications
	s.persons = snap.persons
	s.partyGroups = snap.partyGroups
	s.partyGroupSystems = snap.partyGroupSystems
	s.personSystems = snap.personSystems
	s.invites = snap.invites
	s.apis = snap.apis
	// audit entries live on the base connection, they never roll back
}

// fakeRepositoryManager implements auth.RepositoryManager over the
// fake store.
type fakeRepositoryManager struct {
	store *fakeStore
}

func newFakeRepositoryManager() *fakeRepositoryManager {
	return &fakeRepositoryManager{store: newFakeStore()}
}

func (m *fakeRepositoryManager) Validate() error { return nil }
func (m *fakeRepositoryManager) MustValidate()   {}

func (m *fakeRepositoryManager) RunInTx(ctx context.Context, _ *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	snap := m.store.snapshot()
	if err := f(ctx, bun.Tx{}); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

func (m *fakeRepositoryManager) Authentications() auth.Authentications {
	return &fakeAuthentications{store: m.store}
}

func (m *fakeRepositoryManager) Persons() auth.Persons {
	return &fakePersons{store: m.store}
}

func (m *fakeRepositoryManager) PartyGroups() auth.PartyGroups {
	return &fakePartyGroups{store: m.store}
}

func (m *fakeRepositoryManager) PartyGroupSystems() auth.PartyGroupSystems {
	return &fakePartyGroupSystems{store: m.store}
}

func (m *fakeRepositoryManager) PersonSystems() auth.PersonSystems {
	return &fakePersonSystems{store: m.store}
}

func (m *fakeRepositoryManager) InviteTokens() auth.InviteTokens {
	return &fakeInviteTokens{store: m.store}
}

func (m *fakeRepositoryManager) Apis() auth.Apis {
	return &fakeApis{store: m.store}
}

func (m *fakeRepositoryManager) AccessLogs() auth.AccessLogs {
	return &fakeAccessLogs{store: m.store}
}

type fakeAuthentications struct {
	auth.Authentications
	store *fakeStore
}

func (f *fakeAuthentications) GetByUsername(ctx context.Context, username string, authTypeCode auth.AuthTypeCode) (*auth.Authentication, error) {
	return f.GetByUsernameTx(ctx, nil, username, authTypeCode)
}

func (f *fakeAuthentications) GetByUsernameTx(_ context.Context, _ bun.IDB, username string, authTypeCode auth.AuthTypeCode) (*auth.Authentication, error) {
	if rec, ok := f.store.authentications[authKey(username, authTypeCode)]; ok {
		return rec, nil
	}
	return nil, repository.NewRecordNotFound()
}

func (f *fakeAuthentications) GetLive(ctx context.Context, id uuid.UUID, username string) (*auth.Authentication, error) {
	return f.GetLiveTx(ctx, nil, id, username)
}

func (f *fakeAuthentications) GetLiveTx(_ context.Context, _ bun.IDB, id uuid.UUID, username string) (*auth.Authentication, error) {
	for _, rec := range f.store.authentications {
		if rec.ID == id && rec.Username == username {
			return rec, nil
		}
	}
	return nil, repository.NewRecordNotFound()
}

func (f *fakeAuthentications) UpsertWithRealmTx(_ context.Context, _ bun.IDB, record *auth.Authentication, realm *auth.AuthenticationRealm) (*auth.Authentication, error) {
	key := authKey(record.Username, record.AuthTypeCode)
	if existing, ok := f.store.authentications[key]; ok {
		record = existing
	} else {
		if record.ID == uuid.Nil {
			record.ID = uuid.New()
		}
		f.store.authentications[key] = record
	}

	realm.ID = uuid.New()
	realm.AuthenticationID = record.ID
	if realm.CreatedAt == nil {
		now := time.Now()
		realm.CreatedAt = &now
	}
	record.Realms = append(record.Realms, realm)

	return record, nil
}

type fakePersons struct {
	auth.Persons
	store *fakeStore
}

func (f *fakePersons) GetByUserName(ctx context.Context, userName string) (*auth.Person, error) {
	return f.GetByUserNameTx(ctx, nil, userName)
}

func (f *fakePersons) GetByUserNameTx(_ context.Context, _ bun.IDB, userName string) (*auth.Person, error) {
	if rec, ok := f.store.persons[userName]; ok {
		return rec, nil
	}
	return nil, repository.NewRecordNotFound()
}

func (f *fakePersons) AcceptTx(_ context.Context, _ bun.IDB, person *auth.Person) (*auth.Person, error) {
	rec, ok := f.store.persons[person.UserName]
	if !ok || rec.Status == auth.PersonStatusAccepted || rec.Status == auth.PersonStatusVerifying {
		return nil, auth.ErrPersonNotInvited
	}
	rec.Status = auth.PersonStatusAccepted
	person.Status = auth.PersonStatusAccepted
	return rec, nil
}

type fakePartyGroups struct {
	auth.PartyGroups
	store *fakeStore
}

func (f *fakePartyGroups) GetByCode(ctx context.Context, code string) (*auth.PartyGroup, error) {
	return f.GetByCodeTx(ctx, nil, code)
}

func (f *fakePartyGroups) GetByCodeTx(_ context.Context, _ bun.IDB, code string) (*auth.PartyGroup, error) {
	if rec, ok := f.store.partyGroups[code]; ok {
		return rec, nil
	}
	return nil, repository.NewRecordNotFound()
}

func (f *fakePartyGroups) ListByCodes(ctx context.Context, codes []string) ([]*auth.PartyGroup, error) {
	return f.ListByCodesTx(ctx, nil, codes)
}

func (f *fakePartyGroups) ListByCodesTx(_ context.Context, _ bun.IDB, codes []string) ([]*auth.PartyGroup, error) {
	var out []*auth.PartyGroup
	seen := map[string]bool{}
	for _, code := range codes {
		if seen[code] {
			continue
		}
		seen[code] = true
		if rec, ok := f.store.partyGroups[code]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fakePartyGroupSystems struct {
	auth.PartyGroupSystems
	store *fakeStore
}

func (f *fakePartyGroupSystems) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*auth.PartyGroupSystem, error) {
	return f.ListByIDsTx(ctx, nil, ids)
}

func (f *fakePartyGroupSystems) ListByIDsTx(_ context.Context, _ bun.IDB, ids []uuid.UUID) ([]*auth.PartyGroupSystem, error) {
	wanted := map[uuid.UUID]bool{}
	for _, id := range ids {
		wanted[id] = true
	}

	var out []*auth.PartyGroupSystem
	for _, rec := range f.store.partyGroupSystems {
		if wanted[rec.ID] {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fakePersonSystems struct {
	auth.PersonSystems
	store *fakeStore
}

func (f *fakePersonSystems) ListForEntity(ctx context.Context, kind auth.PersonSystemType, primaryKey uuid.UUID) ([]*auth.PersonSystem, error) {
	return f.ListForEntityTx(ctx, nil, kind, primaryKey)
}

func (f *fakePersonSystems) ListForEntityTx(_ context.Context, _ bun.IDB, kind auth.PersonSystemType, primaryKey uuid.UUID) ([]*auth.PersonSystem, error) {
	var out []*auth.PersonSystem
	for _, rec := range f.store.personSystems {
		if rec.Type == kind && rec.PrimaryKey == primaryKey {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fakeInviteTokens struct {
	auth.InviteTokens
	store *fakeStore
}

func (f *fakeInviteTokens) GetByTokenTx(_ context.Context, _ bun.IDB, token string) (*auth.InviteToken, error) {
	if rec, ok := f.store.invites[token]; ok {
		return rec, nil
	}
	return nil, auth.ErrInviteTokenInvalid
}

func (f *fakeInviteTokens) ConsumeTx(_ context.Context, _ bun.IDB, token string) error {
	rec, ok := f.store.invites[token]
	if !ok || rec.UsedAt != nil {
		return auth.ErrInviteTokenUsed
	}
	now := time.Now()
	rec.UsedAt = &now
	return nil
}

type fakeApis struct {
	auth.Apis
	store *fakeStore
}

func (f *fakeApis) GetByID(ctx context.Context, id uuid.UUID) (*auth.Api, error) {
	return f.GetByIDTx(ctx, nil, id)
}

func (f *fakeApis) GetByIDTx(_ context.Context, _ bun.IDB, id uuid.UUID) (*auth.Api, error) {
	if rec, ok := f.store.apis[id]; ok {
		return rec, nil
	}
	return nil, repository.NewRecordNotFound()
}

type fakeAccessLogs struct {
	auth.AccessLogs
	store *fakeStore
}

func (f *fakeAccessLogs) Append(_ context.Context, entry *auth.AccessLog) error {
	entry.ID = int64(len(f.store.logs) + 1)
	f.store.logs = append(f.store.logs, entry)
	return nil
}

func (f *fakeAccessLogs) Recent(_ context.Context, filter auth.AccessLogFilter, limit int) ([]*auth.AccessLog, error) {
	if limit <= 0 {
		limit = 10
	}

	var out []*auth.AccessLog
	for i := len(f.store.logs) - 1; i >= 0 && len(out) < limit; i-- {
		entry := f.store.logs[i]
		if filter.Username != "" && entry.Username != filter.Username {
			continue
		}
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		if filter.System != "" && entry.System != filter.System {
			continue
		}
		if filter.PartyGroupCode != "" && entry.PartyGroupCode != filter.PartyGroupCode {
			continue
		}
		if filter.RealmCode != "" && entry.RealmCode != filter.RealmCode {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

// countingResolver wraps a resolver so tests can assert how often the
// membership joins actually ran.
type countingResolver struct {
	inner auth.PayloadResolver
	calls int
}

func (r *countingResolver) Resolve(ctx context.Context, payload *auth.TokenPayload) (*auth.TokenPayload, error) {
	r.calls++
	return r.inner.Resolve(ctx, payload)
}
