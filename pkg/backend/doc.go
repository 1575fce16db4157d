// Package backend is the HTTP client for the external recommendation and
// analysis service.
//
// The service exposes two endpoints under its base URL (default
// http://127.0.0.1:8000/api):
//
//	GET {base}/recommend?type=user|repo&name=...&find=user|repo[&count=N]
//	GET {base}/analyze?node_a=...&node_b=...
//
// OpenChain treats the service as opaque: recommendation bodies are passed
// through verbatim, and analysis bodies are reduced to their "analysis"
// field.
//
// # Errors
//
// Every call is bounded by a deadline. Failures are reported as
// [errors.Error] values:
//
//   - [errors.ErrCodeBackend]: the service answered with a non-2xx status; the
//     cause is a [*StatusError] carrying the status and the service's detail
//   - [errors.ErrCodeTimeout]: the deadline expired
//   - [errors.ErrCodeNetwork]: the request could not be completed
//
// # Network Preference
//
// Outbound connections try IPv4 first and fall back to the requested network,
// since the service commonly listens on 127.0.0.1 only.
package backend
