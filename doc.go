// Package chirp implements a small social backend: accounts with a
// follower/following graph, tweets with likes, and a news article feed
// with comments, all behind a JWT authentication core.
//
// Authentication:
//   - Passwords are hashed with bcrypt (per-call salt, configurable cost).
//   - TokenService issues and validates HS256 session tokens bound to one
//     account. Tokens are stateless; expiry is the only deactivation, there
//     is no revocation list.
//   - middleware/jwtware extracts the raw token from the configured
//     transport location (Authorization header or HTTP-only cookie, never
//     both), validates it, and attaches the verified claims to the request
//     context. Handlers enforce ownership against those claims only.
//
// Persistence is Bun over SQLite/Postgres; repositories expose idempotent
// set toggles for follows and likes, and account deletion cascades to the
// account's tweets, likes, follows, and comments in one transaction.
package chirp
