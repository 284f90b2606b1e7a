package policies

import (
	"context"
	"errors"
	"io"

	"github.com/arad71/Vendor-saas-mvp/internal/domain/shared/events"
)

var ErrUnauthorized = errors.New("policies: credential rejected")

// EventPublisher pushes drained domain events to the message broker.
// Publishing is best-effort: callers log failures and never fail the
// originating request over them.
type EventPublisher interface {
	Publish(ctx context.Context, event events.DomainEvent) error
}

// ObjectStorage stores listing images and documents.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// Identity is the caller resolved from a request credential.
type Identity struct {
	ID   string
	Role string
}

// TokenVerifier turns a bearer credential into an Identity or fails with
// ErrUnauthorized. The core trusts the resulting ID as the requester.
type TokenVerifier interface {
	Verify(token string) (Identity, error)
}
