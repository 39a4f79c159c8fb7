// Package httputil provides HTTP helpers shared by the registry clients.
//
// # Retry
//
// [Retry] re-runs an operation while it fails with a [RetryableError]:
//
//	err := httputil.Retry(ctx, 3, time.Second, func() error {
//	    resp, err := http.Get(url)
//	    if err != nil {
//	        return &httputil.RetryableError{Err: err}
//	    }
//	    ...
//	})
//
// Any other error stops the loop immediately. The delay doubles after each
// failed attempt and the wait is abandoned as soon as ctx is cancelled.
//
// [RetryAfter] reads a 429/503 Retry-After header so callers can honour the
// registry's requested pause before the next attempt.
package httputil
