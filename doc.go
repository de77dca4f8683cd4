// Package auth implements multi-tenant session tokens: JWT issuance and
// validation, proactive token renewal, payload resolution, and the
// invite-token registration saga.
//
// Token lifecycle:
//   - TokenService signs and verifies the access/refresh pair. Access
//     tokens are short-lived; once one enters the final tenth of its
//     lifetime, TokenLifecycle mints a replacement during validation and
//     hands it back through the resolved payload.
//   - TokenLifecycle.Validate collapses every fault into an anonymous
//     outcome. The cause is logged, never surfaced, so a bad token can
//     not distinguish between expiry, tampering, and a deleted account.
//
// Payload resolution:
//   - Resolver expands the minimal claims of a token into a full
//     TokenPayload: tenants, per-system memberships, and third-party
//     codes. Resolution dispatches on the entity kind (person or api)
//     through a closed function table.
//   - DecodedPayloadCache keys resolved payloads by token issue instant
//     so repeated requests under the same token skip the membership
//     joins. Memory and Redis implementations are provided; cache
//     failures degrade to a miss.
//
// Credentials:
//   - AuthService handles password login against per-realm credentials,
//     refresh-token exchange, and registration. Registration redeems a
//     single-use invite token, creates the credential, and accepts the
//     person inside one transaction, writing exactly one audit row per
//     attempt.
//   - RealmChecker decides whether a presented credential passes,
//     expired, or failed. LocalRealmChecker applies the tenant's
//     password-expiry policy with an exempt internal mail domain.
package auth
