package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AuthService is the credential side of the package: password login,
// invite-token registration, and refresh-token exchange. Token
// validation lives in TokenLifecycle.
type AuthService struct {
	repos      RepositoryManager
	tokens     TokenService
	checkerFor func(password, system string) RealmChecker
	logger     Logger
	nowFn      func() time.Time
}

func NewAuthService(repos RepositoryManager, tokens TokenService, cfg Config) *AuthService {
	exemptDomain := ""
	if cfg != nil {
		exemptDomain = cfg.GetExemptDomain()
	}

	return &AuthService{
		repos:  repos,
		tokens: tokens,
		checkerFor: func(password, system string) RealmChecker {
			return LocalRealmChecker(password, system, exemptDomain)
		},
		logger: defLogger{},
		nowFn:  time.Now,
	}
}

func (s *AuthService) WithLogger(logger Logger) *AuthService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithRealmChecker swaps the credential check, e.g. for a federated
// realm. The factory binds the presented secret per attempt.
func (s *AuthService) WithRealmChecker(factory func(password, system string) RealmChecker) *AuthService {
	if factory != nil {
		s.checkerFor = factory
	}
	return s
}

// WithClock overrides the time source
func (s *AuthService) WithClock(nowFn func() time.Time) *AuthService {
	if nowFn != nil {
		s.nowFn = nowFn
	}
	return s
}

// Login exchanges a username/password pair for tokens. Every internal
// failure mode surfaces as the same ErrLoginFailed so callers cannot
// probe which part of the credential was wrong.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	var result *LoginResult

	err := s.repos.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = s.LoginTx(ctx, tx, req)
		return txErr
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryInternal {
			s.logger.Error("Login failed", "user", req.Username, "error", err)
		}
		return nil, ErrLoginFailed
	}

	return result, nil
}

func (s *AuthService) LoginTx(ctx context.Context, tx bun.IDB, req LoginRequest) (*LoginResult, error) {
	if err := req.Validate(); err != nil {
		s.logger.Warn("Login rejected malformed request", "error", err)
		return nil, ErrLoginFailed
	}

	authTypeCode := req.AuthTypeCode
	if authTypeCode == "" {
		authTypeCode = AuthTypeLocal
	}

	authentication, err := s.repos.Authentications().GetByUsernameTx(ctx, tx, req.Username, authTypeCode)
	if err != nil {
		if IsNotFound(err) {
			s.logger.Warn("Login unknown credential", "user", req.Username, "auth_type", authTypeCode)
			return nil, ErrLoginFailed
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "login credential lookup failed")
	}

	person, partyGroup, err := s.loadMembershipContext(ctx, tx, req.Username)
	if err != nil {
		return nil, err
	}

	status, err := s.checkerFor(req.Password, req.System)(ctx, authentication, partyGroup)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "realm check failed")
	}

	switch status {
	case RealmPass:
	case RealmExpired:
		s.logger.Warn("Login password expired under tenant policy", "user", req.Username)
		return nil, ErrLoginFailed
	default:
		s.logger.Warn("Login no realm matched", "user", req.Username)
		return nil, ErrLoginFailed
	}

	return s.generateTokenTx(ctx, tx, authentication, person, req.RememberMe, req.Meta)
}

// loadMembershipContext resolves the Person behind a username and the
// tenant their first membership points at. Both may be absent: an
// account without memberships still logs in, it just carries no
// customer.
func (s *AuthService) loadMembershipContext(ctx context.Context, tx bun.IDB, username string) (*Person, *PartyGroup, error) {
	person, err := s.repos.Persons().GetByUserNameTx(ctx, tx, username)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil, nil
		}
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "person lookup failed")
	}

	code, err := s.customerForPersonTx(ctx, tx, person)
	if err != nil {
		return nil, nil, err
	}

	if code == "" {
		return person, nil, nil
	}

	partyGroup, err := s.repos.PartyGroups().GetByCodeTx(ctx, tx, code)
	if err != nil {
		if IsNotFound(err) {
			return person, nil, nil
		}
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "party group lookup failed")
	}

	return person, partyGroup, nil
}

// customerForPersonTx picks the tenant of the person's first
// membership row, id order, which is also the tenant stamped into the
// customer claim at issuance.
func (s *AuthService) customerForPersonTx(ctx context.Context, tx bun.IDB, person *Person) (string, error) {
	if person == nil {
		return "", nil
	}

	memberships, err := s.repos.PersonSystems().ListForEntityTx(ctx, tx, PersonSystemPerson, person.ID)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "membership lookup failed")
	}

	if len(memberships) == 0 {
		return "", nil
	}

	ids := make([]uuid.UUID, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.SystemID)
	}

	links, err := s.repos.PartyGroupSystems().ListByIDsTx(ctx, tx, ids)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "party group system lookup failed")
	}

	byID := make(map[uuid.UUID]*PartyGroupSystem, len(links))
	for _, link := range links {
		byID[link.ID] = link
	}

	for _, m := range memberships {
		if link, ok := byID[m.SystemID]; ok {
			return link.PartyGroupCode, nil
		}
	}

	return "", nil
}

// generateTokenTx mints the access/refresh pair for a verified
// credential, stamping the entity claims and the customer selected at
// issuance.
func (s *AuthService) generateTokenTx(ctx context.Context, tx bun.IDB, authentication *Authentication, person *Person, rememberMe bool, meta RequestMeta) (*LoginResult, error) {
	base := AccessClaims{
		AuthenticationID: authentication.ID.String(),
		AuthTypeCode:     authentication.AuthTypeCode,
		Username:         authentication.Username,
	}

	if person != nil {
		base.EntityType = EntityPerson
		base.EntityID = person.ID.String()
		base.IsSuperAdmin = person.IsSuperAdmin
		if person.AliasID != nil {
			base.AliasID = person.AliasID.String()
		}

		customer, err := s.customerForPersonTx(ctx, tx, person)
		if err != nil {
			return nil, err
		}
		base.Customer = customer
	}

	issuedAt := meta.Time
	if issuedAt.IsZero() {
		issuedAt = s.nowFn()
	}

	accessToken, expiresAt, err := s.tokens.IssueAccessToken(base, issuedAt)
	if err != nil {
		return nil, err
	}

	refreshToken, _, err := s.tokens.IssueRefreshToken(base, issuedAt, rememberMe)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AuthenticationID: base.AuthenticationID,
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		Expiry:           expiresAt.UnixMilli(),
		User:             base.Username,
		Customer:         base.Customer,
	}, nil
}

// Register redeems an invite token inside one transaction: verify the
// token binding, consume it, create the credential, flip the person to
// accepted, and issue tokens. Exactly one audit row is written per
// attempt, success or failure, and it survives a rollback.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*LoginResult, error) {
	var result *LoginResult
	var partyGroupCode string

	err := s.repos.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, partyGroupCode, txErr = s.RegisterTx(ctx, tx, req)
		return txErr
	})

	s.appendRegisterAudit(ctx, req, partyGroupCode, err)

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryInternal {
			s.logger.Error("Register failed", "user", req.Username, "error", err)
		} else {
			s.logger.Warn("Register rejected", "user", req.Username, "error", err)
		}
		return nil, ErrCannotRegister
	}

	return result, nil
}

// RegisterTx runs the registration saga on the given handle. It
// returns the tenant code once resolved so the caller can audit a
// partially progressed attempt.
func (s *AuthService) RegisterTx(ctx context.Context, tx bun.IDB, req RegisterRequest) (*LoginResult, string, error) {
	if err := req.Validate(); err != nil {
		return nil, "", goerrors.Wrap(err, goerrors.CategoryValidation, "invalid register request")
	}

	invite, err := s.repos.InviteTokens().GetByTokenTx(ctx, tx, req.Token)
	if err != nil {
		return nil, "", err
	}

	if invite.Used() {
		return nil, "", ErrInviteTokenUsed
	}

	if !invite.MatchesUserName(req.Username) {
		return nil, "", ErrInviteTokenMismatch
	}

	if err := s.repos.InviteTokens().ConsumeTx(ctx, tx, req.Token); err != nil {
		return nil, "", err
	}

	person, err := s.repos.Persons().GetByUserNameTx(ctx, tx, req.Username)
	if err != nil {
		if IsNotFound(err) {
			return nil, "", ErrPersonNotInvited
		}
		return nil, "", goerrors.Wrap(err, goerrors.CategoryInternal, "person lookup failed")
	}

	if person.Status == PersonStatusAccepted || person.Status == PersonStatusVerifying {
		return nil, "", ErrPersonNotInvited
	}

	partyGroupCode, err := s.partyGroupCodeForSystemTx(ctx, tx, person, req.System)
	if err != nil {
		return nil, "", err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, partyGroupCode, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	record := &Authentication{
		Username:     req.Username,
		AuthTypeCode: AuthTypeLocal,
	}
	if id, err := hashid.NewUUID(req.Username); err == nil {
		record.ID = id
	}

	realm := &AuthenticationRealm{
		RealmCode:    RealmLocal,
		PasswordHash: hash,
		Profile:      req.RealmProfile(),
	}

	authentication, err := s.repos.Authentications().UpsertWithRealmTx(ctx, tx, record, realm)
	if err != nil {
		return nil, partyGroupCode, goerrors.Wrap(err, goerrors.CategoryConflict, "could not create credential")
	}

	if person, err = s.repos.Persons().AcceptTx(ctx, tx, person); err != nil {
		return nil, partyGroupCode, err
	}

	result, err := s.generateTokenTx(ctx, tx, authentication, person, false, req.Meta)
	if err != nil {
		return nil, partyGroupCode, err
	}

	if result.Customer == "" {
		result.Customer = partyGroupCode
	}

	return result, partyGroupCode, nil
}

// partyGroupCodeForSystemTx finds the tenant whose membership covers
// the named system for the person being registered.
func (s *AuthService) partyGroupCodeForSystemTx(ctx context.Context, tx bun.IDB, person *Person, system string) (string, error) {
	memberships, err := s.repos.PersonSystems().ListForEntityTx(ctx, tx, PersonSystemPerson, person.ID)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "membership lookup failed")
	}

	ids := make([]uuid.UUID, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.SystemID)
	}

	if len(ids) > 0 {
		links, err := s.repos.PartyGroupSystems().ListByIDsTx(ctx, tx, ids)
		if err != nil {
			return "", goerrors.Wrap(err, goerrors.CategoryInternal, "party group system lookup failed")
		}

		for _, link := range links {
			if link.System == system {
				return link.PartyGroupCode, nil
			}
		}
	}

	return "", ErrSystemNotConfigured.Clone().WithMetadata(map[string]any{
		"user":   person.UserName,
		"system": system,
	})
}

// appendRegisterAudit writes the single audit row for a register
// attempt on the base connection, so the entry outlives the saga
// rollback.
func (s *AuthService) appendRegisterAudit(ctx context.Context, req RegisterRequest, partyGroupCode string, attemptErr error) {
	now := s.nowFn()
	entry := &AccessLog{
		System:         req.System,
		PartyGroupCode: partyGroupCode,
		Username:       req.Username,
		RealmCode:      RealmLocal,
		IP:             req.Meta.IP,
		Success:        attemptErr == nil,
		Action:         "register",
		CreatedAt:      &now,
	}

	if err := s.repos.AccessLogs().Append(ctx, entry); err != nil {
		s.logger.Error("Register audit append failed", "user", req.Username, "error", err)
	}
}

// RefreshLogin exchanges a valid refresh token for a fresh access
// token, re-confirming the Authentication is still live first. The
// refresh token itself is returned unrotated.
func (s *AuthService) RefreshLogin(ctx context.Context, refreshToken string, meta RequestMeta) (*LoginResult, error) {
	claims, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	authID, err := claims.AuthenticationUUID()
	if err != nil {
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message)
	}

	authentication, err := s.repos.Authentications().GetLive(ctx, authID, claims.Username)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrAuthenticationNotFound
		}
		return nil, err
	}

	issuedAt := meta.Time
	if issuedAt.IsZero() {
		issuedAt = s.nowFn()
	}

	accessToken, expiresAt, err := s.tokens.IssueAccessToken(claimSeed(claims, authentication), issuedAt)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AuthenticationID: authentication.ID.String(),
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		Expiry:           expiresAt.UnixMilli(),
		User:             authentication.Username,
		Customer:         claims.Customer,
	}, nil
}

// ReissueAccessToken mints a replacement access token straight from a
// live Authentication, carrying forward the entity claims of the old
// token. Used by proactive renewal when no refresh token was sent.
func (s *AuthService) ReissueAccessToken(ctx context.Context, authentication *Authentication, prior *AccessClaims) (string, error) {
	select {
	case <-ctx.Done():
		return "", goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during token reissue")
	default:
	}

	token, _, err := s.tokens.IssueAccessToken(claimSeed(prior, authentication), s.nowFn())
	return token, err
}

// claimSeed rebuilds the custom claim fields from prior claims, taking
// identity from the live record so a renamed credential invalidates
// stale tokens at the next lookup.
func claimSeed(prior *AccessClaims, authentication *Authentication) AccessClaims {
	return AccessClaims{
		AuthenticationID: authentication.ID.String(),
		AuthTypeCode:     authentication.AuthTypeCode,
		Username:         authentication.Username,
		EntityType:       prior.EntityType,
		EntityID:         prior.EntityID,
		AliasID:          prior.AliasID,
		Customer:         prior.Customer,
		IsSuperAdmin:     prior.IsSuperAdmin,
	}
}
