package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/plantcare/internal/common"
)

// Kind classifies a failed remote call.
type Kind int

const (
	KindTimeout Kind = iota + 1
	KindServerError
	KindRateLimited
	KindNotFound
	KindUnauthorized
	KindBadRequest
	// KindUnavailable means the server could not be reached at all.
	KindUnavailable
)

var (
	ErrTimeout      = errors.New("remote timeout")
	ErrServerError  = errors.New("remote server error")
	ErrRateLimited  = errors.New("rate limited")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
	ErrUnavailable  = errors.New("server unavailable")
)

func (k Kind) sentinel() error {
	switch k {
	case KindTimeout:
		return ErrTimeout
	case KindServerError:
		return ErrServerError
	case KindRateLimited:
		return ErrRateLimited
	case KindNotFound:
		return ErrNotFound
	case KindUnauthorized:
		return ErrUnauthorized
	case KindBadRequest:
		return ErrBadRequest
	case KindUnavailable:
		return ErrUnavailable
	}
	return nil
}

func (k Kind) String() string {
	if s := k.sentinel(); s != nil {
		return s.Error()
	}
	return "unknown"
}

// RemoteError is returned by every HTTPClient method when the call failed
// on the remote side or in transport. Match kinds with errors.Is against
// the Err* sentinels.
type RemoteError struct {
	Kind   Kind
	Status int
	// RetryAfter is the server-requested back-off for KindRateLimited.
	RetryAfter time.Duration
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Kind == KindRateLimited && e.RetryAfter > 0 {
		fmt.Fprintf(&b, ", retry after %s", e.RetryAfter)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *RemoteError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the same call later can succeed.
func (e *RemoteError) Retryable() bool {
	switch e.Kind {
	case KindNotFound, KindUnauthorized, KindBadRequest:
		return false
	}
	return true
}

// statusError classifies a non-2xx response.
func statusError(status int, header http.Header, message string, now time.Time) *RemoteError {
	e := &RemoteError{Status: status, Message: message}
	switch {
	case status == http.StatusNotFound:
		e.Kind = KindNotFound
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		e.Kind = KindUnauthorized
	case status == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
		e.RetryAfter = parseRetryAfter(header.Get(common.RetryAfterHeader), now)
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		e.Kind = KindTimeout
	case status >= 500:
		e.Kind = KindServerError
	default:
		e.Kind = KindBadRequest
	}
	return e
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// transportError classifies a failure to get any response. Cancellation by
// the caller is returned as the bare context error.
func transportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &RemoteError{Kind: KindTimeout, Err: err}
	}
	return &RemoteError{Kind: KindUnavailable, Err: err}
}
