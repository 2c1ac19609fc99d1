// Package api is the HTTP client for the knowledge DAG backend.
//
// The backend owns persistence, ordering and conflict resolution. This
// client only mirrors its routes: project CRUD, chapter/section/node/edge
// editing, full-sequence reorders, free-form node positions, graph analysis
// and export.
//
// Reorders always send the complete ordered id array for a container, never
// an incremental move. Use [project.Move] to compute it from a drag gesture.
//
// # Errors
//
// Non-2xx responses become structured errors from pkg/errors:
//
//   - 404 is NOT_FOUND
//   - 400 and 422 are INVALID_INPUT (the backend's "detail" text is kept)
//   - 5xx and transport failures are NETWORK_ERROR, marked retryable
//
// Safe (GET) requests are retried according to the client's
// [httputil.Policy]. Mutations are sent once.
//
// [project.Move]: github.com/matzehuels/kdag/pkg/project.Move
package api
