// Package events publishes domain events after their writes commit.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const SubjectBlogCreated = "blogs.created"

type BlogCreated struct {
	BlogID    string    `json:"blog_id"`
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"` // description with markup stripped
	Tags      []string  `json:"tags"`
	Draft     bool      `json:"draft"`
	CreatedAt time.Time `json:"created_at"`
}

type Publisher interface {
	BlogCreated(ctx context.Context, evt BlogCreated) error
}

// Noop drops every event. Used when no event bus is configured.
type Noop struct{}

func (Noop) BlogCreated(context.Context, BlogCreated) error { return nil }

type NATSPublisher struct {
	nc *nats.Conn
}

func Connect(url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("blogging-backend"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return &NATSPublisher{nc: nc}, nil
}

func (p *NATSPublisher) BlogCreated(_ context.Context, evt BlogCreated) error {
	data, err := encode(evt)
	if err != nil {
		return err
	}
	return p.nc.Publish(SubjectBlogCreated, data)
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
}

func encode(evt BlogCreated) ([]byte, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", SubjectBlogCreated, err)
	}
	return data, nil
}
