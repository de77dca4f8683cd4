package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// TokenService signs and validates the tokens crossing the boundary
type TokenService interface {
	IssueAccessToken(base AccessClaims, issuedAt time.Time) (string, time.Time, error)
	IssueRefreshToken(base AccessClaims, issuedAt time.Time, extended bool) (string, time.Time, error)
	SignClaims(claims *AccessClaims) (string, error)
	Validate(tokenString string) (*AccessClaims, error)
	ValidateRefresh(tokenString string) (*AccessClaims, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey  []byte
	accessTTL   time.Duration
	refreshTTL  time.Duration
	extendedTTL time.Duration
	issuer      string
	audience    jwt.ClaimStrings
	logger      Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(cfg Config, logger Logger) TokenService {
	if logger == nil {
		logger = defLogger{}
	}

	accessTTL := cfg.GetAccessTokenTTL()
	if accessTTL <= 0 {
		accessTTL = time.Minute
	}

	refreshTTL := cfg.GetRefreshTokenTTL()
	if refreshTTL <= 0 {
		refreshTTL = 24 * time.Hour
	}

	extendedTTL := cfg.GetExtendedRefreshTokenTTL()
	if extendedTTL <= 0 {
		extendedTTL = refreshTTL
	}

	return &TokenServiceImpl{
		signingKey:  []byte(cfg.GetSigningKey()),
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
		extendedTTL: extendedTTL,
		issuer:      cfg.GetIssuer(),
		audience:    cfg.GetAudience(),
		logger:      logger,
	}
}

// IssueAccessToken mints a short-lived access token from the given
// claim seed. The registered claims are owned by the service; callers
// only provide the custom claim fields.
func (ts *TokenServiceImpl) IssueAccessToken(base AccessClaims, issuedAt time.Time) (string, time.Time, error) {
	return ts.issue(base, issuedAt, TokenKindAccess, ts.accessTTL)
}

// IssueRefreshToken mints a refresh token; extended applies the
// remember-me lifetime.
func (ts *TokenServiceImpl) IssueRefreshToken(base AccessClaims, issuedAt time.Time, extended bool) (string, time.Time, error) {
	ttl := ts.refreshTTL
	if extended {
		ttl = ts.extendedTTL
	}
	return ts.issue(base, issuedAt, TokenKindRefresh, ttl)
}

func (ts *TokenServiceImpl) issue(base AccessClaims, issuedAt time.Time, kind TokenKind, ttl time.Duration) (string, time.Time, error) {
	if base.AuthenticationID == "" {
		return "", time.Time{}, goerrors.New("claims are missing the authentication id", goerrors.CategoryBadInput)
	}

	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}

	expiresAt := issuedAt.Add(ttl)

	var aud jwt.ClaimStrings
	if len(ts.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(ts.audience))
		copy(aud, ts.audience)
	}

	claims := base
	claims.Kind = kind
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    ts.issuer,
		Subject:   base.Username,
		Audience:  aud,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := ts.SignClaims(&claims)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}

// SignClaims signs arbitrary claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *AccessClaims) (string, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string, returning structured claims
func (ts *TokenServiceImpl) Validate(tokenString string) (*AccessClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	if claims, ok := token.Claims.(*AccessClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode or validate claims")
	return nil, ErrTokenMalformed
}

// ValidateRefresh validates a token and requires the refresh kind,
// so an access token can never be replayed as a refresh token.
func (ts *TokenServiceImpl) ValidateRefresh(tokenString string) (*AccessClaims, error) {
	claims, err := ts.Validate(tokenString)
	if err != nil {
		return nil, err
	}

	if !claims.IsRefresh() {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
