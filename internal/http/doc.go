// Package http exposes the meeting scheduler over JSON/HTTP.
//
// The router exposes the following endpoints:
//   - GET /health: liveness plus a store ping. Never requires an API key.
//   - GET /metrics: Prometheus exposition when metrics are configured.
//   - GET /users, POST /users, GET /users/{id}, PUT /users/{id}: user profiles
//     exchanging the `userDTO` payload defined in user_handler.go.
//   - POST /users/{id}/availability: adds an availability window, optionally
//     recurring through an RRULE `recurrence_pattern`.
//   - GET /meetings, POST /meetings, GET /meetings/{id}: meetings exchanging the
//     `meetingDTO` payload defined in meeting_handler.go. Creation responds with
//     the detected conflicts, which never block the meeting.
//   - GET /meetings/{id}/ics: the meeting as a text/calendar document.
//   - POST /meetings/{id}/status, POST /meetings/{id}/participants/{userID}:
//     lifecycle transitions and participation records.
//   - POST /schedule/find-optimal-slots (`?format=ics` for calendar output),
//     POST /schedule/detect-conflicts, GET /schedule/optimize/{userID}.
//   - GET /analytics/meeting-patterns/{userID}?period_days=30,
//     POST /analytics/workload-balance, POST /analytics/effectiveness/{meetingID}.
//   - POST /agenda: agenda skeleton for a topic.
//   - GET /stats: aggregate counts.
//
// Errors are rendered as {"message": ..., "errors": {field: message}} with the
// status derived from application.ErrorKind.
package http
