package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"
)

var (
	// ErrTransport marks a fetch that never produced a response.
	ErrTransport = errors.New("sensor unreachable")
	// ErrStatus marks a response with a non-2xx status.
	ErrStatus = errors.New("unexpected status code")
	// ErrDecode marks a 2xx response whose body is not a reading.
	ErrDecode = errors.New("undecodable sensor payload")
	// ErrCircuitOpen marks a fetch refused by the circuit breaker.
	ErrCircuitOpen = errors.New("circuit breaker open")

	errNoHTTPClient = errors.New("http client not configured")
)

// doRequest executes a single request through the circuit breaker.
// Retrying is left to the caller's schedule.
func doRequest(
	ctx context.Context,
	client *http.Client,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if client == nil {
		return nil, errNoHTTPClient
	}

	req, err := buildRequest()
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := client.Do(req)
		if execErr != nil {
			// Drop the URL, which may carry credentials, and keep the cause.
			var urlErr *url.Error
			if errors.As(execErr, &urlErr) {
				execErr = urlErr.Err
			}
			return nil, fmt.Errorf("%w: %w", ErrTransport, execErr)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			return nil, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		return nil, err
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return resp, nil
}

// redactor replaces spellings of endpoint left in error messages once URL errors are unwrapped.
func redactor(endpoint string) *strings.Replacer {
	pairs := []string{endpoint, "<redacted>"}
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		if s := u.String(); s != endpoint {
			pairs = append(pairs, s, "<redacted>")
		}
		pairs = append(pairs, u.Host, "<redacted>")
		if h := u.Hostname(); h != u.Host {
			pairs = append(pairs, h, "<redacted>")
		}
	}
	return strings.NewReplacer(pairs...)
}

// redactedError keeps the error chain for errors.Is while hiding the endpoint.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }

func (e *redactedError) Unwrap() error { return e.err }

func redact(r *strings.Replacer, err error) error {
	if err == nil {
		return nil
	}
	return &redactedError{msg: r.Replace(err.Error()), err: err}
}
