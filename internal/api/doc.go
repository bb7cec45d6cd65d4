// Package api is the single point of contact between callers and the
// insightdash REST surface.
//
// The package has three layers:
//
//   - Transport: one HTTP request, bearer token attached when available,
//     JSON envelope decoded. Failures are logged and returned as
//     *TransportError. There are no retries at this level.
//   - Upload: a separate multipart path that runs as a cancellable task
//     and streams byte-level progress while the body is in flight.
//   - Client: one method per resource/action pair, each a thin wrapper
//     over Transport. No validation, caching or retry happens here; those
//     belong to internal/query.
//
// Every remote endpoint answers with the standard envelope:
//
//	{"data": T, "status": "success"|"error", "message": "..."}
package api
