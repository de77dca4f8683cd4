package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-print"
)

// ValidateRequest is what the transport layer hands over for each
// bearer token presentation.
type ValidateRequest struct {
	// Token is the raw bearer access token
	Token string
	// RefreshToken is the x-refresh-token header value, when present
	RefreshToken string
	// Meta carries per-request details used during renewal
	Meta RequestMeta
}

// renewalWindow is the fraction of a token's lifetime left at which a
// replacement gets minted proactively.
const renewalWindow = 0.1

// TokenLifecycle validates bearer tokens, renews them before expiry,
// and resolves them into full authorization contexts, consulting the
// decoded-payload cache on the way.
type TokenLifecycle struct {
	repos    RepositoryManager
	cache    DecodedPayloadCache
	resolver PayloadResolver
	tokens   TokenService
	service  *AuthService
	logger   Logger
	debug    bool
	nowFn    func() time.Time
}

func NewTokenLifecycle(repos RepositoryManager, cache DecodedPayloadCache, resolver PayloadResolver, tokens TokenService, service *AuthService) *TokenLifecycle {
	return &TokenLifecycle{
		repos:    repos,
		cache:    cache,
		resolver: resolver,
		tokens:   tokens,
		service:  service,
		logger:   defLogger{},
		nowFn:    time.Now,
	}
}

func (l *TokenLifecycle) WithLogger(logger Logger) *TokenLifecycle {
	if logger != nil {
		l.logger = logger
	}
	return l
}

// WithClock overrides the time source
func (l *TokenLifecycle) WithClock(nowFn func() time.Time) *TokenLifecycle {
	if nowFn != nil {
		l.nowFn = nowFn
	}
	return l
}

// WithDebug enables payload dumps on resolution
func (l *TokenLifecycle) WithDebug(debug bool) *TokenLifecycle {
	l.debug = debug
	return l
}

// Validate turns a presented token into an authorization context. Any
// failure anywhere collapses into ErrUnauthenticated with the cause
// logged; a fault here must never abort the surrounding request flow.
func (l *TokenLifecycle) Validate(ctx context.Context, req ValidateRequest) (*TokenPayload, error) {
	payload, err := l.validate(ctx, req)
	if err != nil {
		l.logger.Error("token validation rejected", "error", err)
		return nil, ErrUnauthenticated
	}

	return payload, nil
}

func (l *TokenLifecycle) validate(ctx context.Context, req ValidateRequest) (*TokenPayload, error) {
	claims, err := l.tokens.Validate(req.Token)
	if err != nil {
		return nil, err
	}

	if claims.IsRefresh() {
		// refresh tokens are exchange-only, never bearer credentials
		return nil, ErrTokenMalformed
	}

	now := l.nowFn()
	realIssueTime := claims.IssuedAtTime().UnixMilli()
	realExpiryTime := claims.ExpiresAtTime().UnixMilli()
	totalIssueTime := realExpiryTime - realIssueTime // constant for any token of the same policy

	authID, err := claims.AuthenticationUUID()
	if err != nil {
		return nil, err
	}

	authentication, err := l.repos.Authentications().GetLive(ctx, authID, claims.Username)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrAuthenticationNotFound
		}
		return nil, err
	}

	newAccessToken := l.maybeRenew(ctx, req, claims, authentication, now, realExpiryTime, totalIssueTime)

	cacheKey := fmt.Sprintf("jwt-%s-%s-%s-%d", claims.AuthTypeCode, claims.AuthenticationID, claims.Username, realIssueTime)

	if saved, ok := l.cache.Get(ctx, cacheKey); ok {
		if newAccessToken != "" {
			saved.AccessToken = newAccessToken
		}
		l.logger.Debug("decoded payload served from cache", "key", cacheKey)
		return saved, nil
	}

	payload, err := claims.Payload()
	if err != nil {
		return nil, err
	}

	if payload, err = l.resolver.Resolve(ctx, payload); err != nil {
		return nil, err
	}

	payload.AccessToken = newAccessToken
	if payload.AccessToken == "" {
		payload.AccessToken = req.Token
	}
	payload.IssuedAt = realIssueTime

	if l.debug {
		l.logger.Debug("resolved payload", "payload", print.MaybePrettyJSON(payload))
	}

	if err := l.cache.Save(ctx, cacheKey, payload, time.UnixMilli(realExpiryTime)); err != nil {
		l.logger.Warn("decoded payload cache save failed", "key", cacheKey, "error", err)
	}

	return payload, nil
}

// maybeRenew mints a replacement access token once the presented one
// is inside the final tenth of its lifetime. Renewal is best-effort:
// a failure is logged and the request proceeds under the old claims.
func (l *TokenLifecycle) maybeRenew(ctx context.Context, req ValidateRequest, claims *AccessClaims, authentication *Authentication, now time.Time, realExpiryTime, totalIssueTime int64) string {
	remaining := realExpiryTime - now.UnixMilli()
	if float64(remaining) >= float64(totalIssueTime)*renewalWindow {
		return ""
	}

	if req.RefreshToken != "" {
		result, err := l.service.RefreshLogin(ctx, req.RefreshToken, req.Meta)
		if err != nil {
			l.logger.Warn("token renewal via refresh token failed", "user", claims.Username, "error", err)
			return ""
		}
		l.logger.Debug("access token renewed by refresh token", "user", claims.Username)
		return result.AccessToken
	}

	token, err := l.service.ReissueAccessToken(ctx, authentication, claims)
	if err != nil {
		l.logger.Warn("token renewal from live authentication failed", "user", claims.Username, "error", err)
		return ""
	}

	l.logger.Debug("access token renewed from live authentication", "user", claims.Username)
	return token
}
