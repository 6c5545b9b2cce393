// Package http provides HTTP handlers and middleware for the room booking API.
//
// The router exposes the following endpoints:
//   - POST /sessions: issues a session token for an allow-listed email and
//     password. The token is returned in the body, the `X-Session-Token`
//     header and a `session_token` cookie.
//   - POST /login-links: requests a single-use emailed sign-in link. Always
//     returns 204 so responses cannot be used to probe the allow-list.
//   - POST /login-links/redeem: exchanges a link token for a session,
//     provisioning the account on first use.
//   - DELETE /sessions/current: revokes the caller's session and clears the
//     cookie. DELETE /sessions/{token} lets administrators revoke any session.
//   - GET /rooms, POST /rooms, GET/PUT/DELETE /rooms/{id}: room catalog
//     endpoints exchanging the `roomDTO` payload defined in room_handler.go.
//     Listing and reading are public; mutations require an administrator.
//   - GET /rooms/{id}/timeline?date=YYYY-MM-DD: the rendered day view with
//     pixel offsets for each visible reservation.
//   - GET /availability?start=&end=&min_capacity=: per-room availability
//     verdicts for a half-open interval. Public.
//   - GET /reservations, POST /reservations, GET/DELETE /reservations/{id}:
//     reservation endpoints exchanging the `reservationDTO` payload defined
//     in reservation_handler.go. Overlaps are rejected with 409.
//   - POST /reservations/series: creates a weekly series bounded by a count
//     or stop date. The series commits entirely or not at all; conflicts are
//     reported with the offending week numbers.
//   - GET /allowlist, POST /allowlist, DELETE /allowlist/{email}:
//     administrator controlled sign-in allow-list.
//   - GET /users, POST /users, GET/PUT/DELETE /users/{id}: administrator
//     controlled user management endpoints.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
