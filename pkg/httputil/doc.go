// Package httputil provides the HTTP plumbing shared by the backend client
// and the project gateway.
//
// # Retry
//
// [Retry] runs an operation with exponential backoff. Only errors marked
// with [RetryableError] are retried; everything else returns immediately:
//
//	err := httputil.Retry(ctx, 3, 200*time.Millisecond, func() error {
//	    return client.Do(ctx, req)
//	})
//
// [Policy] bundles the attempt count and delays so callers can carry them
// through configuration.
//
// # Status mapping
//
// [CheckStatus] turns a non-2xx response into a structured error:
//
//   - 404 becomes NOT_FOUND
//   - 400 and 422 become INVALID_INPUT
//   - 5xx becomes a retryable NETWORK_ERROR
//
// Transport failures should be wrapped with [NetworkError], which is also
// retryable.
package httputil
