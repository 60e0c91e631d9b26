// Package auth holds the authentication and authorization core of the
// MovieLens API: credential storage, token issuance, token verification and
// role gating.
//
// Credentials:
//   - Users are persisted through Bun. Usernames and emails are unique and the
//     database enforces it, so concurrent creates resolve to one winner and a
//     DuplicateUsername or DuplicateEmail error for the rest.
//   - Secrets are hashed with bcrypt using a random salt per call. The
//     plaintext never leaves the Hasher.
//
// Tokens:
//   - TokenService issues HS256 tokens carrying {sub, roles, iat, exp}. The
//     signing secret is injected through TokenConfig and never read from
//     package state.
//   - Verify takes the raw Authorization header and walks a fixed sequence of
//     checks: header present, "Bearer " prefix, signature, expiry.
//
// Gate:
//   - RequireRole composes after Verify. It passes verifier failures through
//     untouched and only adds the InsufficientRole check.
package auth
