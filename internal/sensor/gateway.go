package sensor

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/i474232898/dht-data/internal/metrics"
)

// ErrForbidden is returned when a submission carries the wrong shared secret.
var ErrForbidden = errors.New("invalid shared secret")

// Gateway authenticates external submissions before handing them to the writer.
type Gateway struct {
	service *Service
	secret  string
}

// NewGateway creates a Gateway that accepts submissions carrying secret.
func NewGateway(service *Service, secret string) *Gateway {
	return &Gateway{
		service: service,
		secret:  secret,
	}
}

// Submit forwards r when supplied matches the shared secret.
// A rejected submission never reaches the ingestion channel.
func (g *Gateway) Submit(ctx context.Context, r Reading, supplied string) error {
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(g.secret)) != 1 {
		metrics.Submissions.WithLabelValues("forbidden").Inc()
		return ErrForbidden
	}
	if err := g.service.Submit(ctx, r); err != nil {
		metrics.Submissions.WithLabelValues("error").Inc()
		return err
	}
	metrics.Submissions.WithLabelValues("accepted").Inc()
	return nil
}
