package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/warp/payroll-stream/generic"
)

// CallerHeader carries the identity of the account making the request. It is
// set by the fronting gateway after authentication.
const CallerHeader = "X-Caller-ID"

type callerKey struct{}

var errMissingCaller = errors.New("missing " + CallerHeader + " header")

// Caller moves the caller identity header into the request context.
func Caller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(CallerHeader))
		if id != "" {
			r = r.WithContext(context.WithValue(r.Context(), callerKey{}, generic.Identity(id)))
		}
		next.ServeHTTP(w, r)
	})
}

// CallerFrom returns the caller identity stored by Caller.
func CallerFrom(ctx context.Context) (generic.Identity, error) {
	id, ok := ctx.Value(callerKey{}).(generic.Identity)
	if !ok || id.IsZero() {
		return "", errMissingCaller
	}
	return id, nil
}
