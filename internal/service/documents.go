package service

import (
	"context"

	"github.com/noah-isme/gema-grader/pkg/extract"
)

// DocumentLoader resolves document sources to plain text.
type DocumentLoader interface {
	Load(ctx context.Context, source string) (extract.Document, error)
	LoadAll(ctx context.Context, sources []string) ([]extract.Document, []extract.Failure)
}

// EventPublisher delivers domain events. *nats.Conn satisfies it.
type EventPublisher interface {
	Publish(subject string, data []byte) error
}
