// Package tripauth implements authentication and session lifecycle management
// for the Tourgether trip-planning backend.
//
// Tokens and sessions:
//   - TokenService issues and validates two kinds of HS256 credentials: a
//     short-lived access token carrying the account email and role claims, and
//     a longer-lived refresh token carrying nothing but a random identifier.
//     Validation fails closed; an expired or tampered token is simply invalid.
//   - SessionStore maps a server-generated session id to its refresh token and
//     an owner email to its active session id, both with TTLs matching the
//     refresh token validity. Revocation is deletion, never a blacklist.
//   - SessionCoordinator ties the two together per request: it authenticates
//     from an Authorization header or cookies, silently refreshes an expired
//     access token while the session is still valid, and handles login
//     completion and logout.
//
// Phone verification:
//   - Verifier issues one-time 6-digit codes with a short TTL and a SetNX
//     rate-limit marker so concurrent requests cannot double-issue. A matched
//     code is consumed exactly once.
//   - AccountStateMachine moves an account from pending to active once the
//     phone is verified and the profile completeness predicate holds. The
//     predicate is re-checked on every profile mutation, so either side may
//     finish last.
//
// The social subpackage bridges external OAuth2 logins (Google, Kakao, Naver)
// into local accounts and decides per request origin, browser or native app,
// how issued credentials are delivered.
package tripauth
