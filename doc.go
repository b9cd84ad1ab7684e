// Package auth implements the credential lifecycle for cookie-based JWT
// sessions: registration via signed activation tokens, login and social
// auth issuing access+refresh pairs, refresh rotation, and revocation.
//
// Token classes:
//   - Access, refresh, and activation tokens are signed with independent
//     secrets and TTLs. A purpose claim baked into every token stops a
//     token of one class from being replayed as another.
//
// Session authority:
//   - Possession of a valid token is necessary but not sufficient. Every
//     authenticated request and every refresh re-checks the session cache
//     (SessionStore); a missing snapshot means the session was revoked or
//     idled out, regardless of what the token says. Logout is a cache
//     delete, which invalidates both outstanding tokens at once.
//
// Authorization:
//   - Roles are re-derived from the cached snapshot on each request, never
//     from token claims, so promotions and demotions apply mid-session.
//     Gate provides RequireAuthenticated and RequireRoles middleware for
//     go-router applications.
package auth
