// Package events publishes file lifecycle notifications.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Event names, appended to the configured subject prefix.
const (
	FileUploaded = "uploaded"
	FileDeleted  = "deleted"
	FileReaped   = "reaped"
)

// FileEvent is the payload of every file lifecycle notification.
type FileEvent struct {
	GrantID  string    `json:"grant_id"`
	FileName string    `json:"file_name,omitempty"`
	FileType string    `json:"file_type,omitempty"`
	FileSize int64     `json:"file_size,omitempty"`
	Actor    string    `json:"actor,omitempty"`
	At       time.Time `json:"at"`
}

// Publisher emits events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, name string, event FileEvent) error
}

// Noop drops every event.
type Noop struct{}

// Publish does nothing.
func (Noop) Publish(context.Context, string, FileEvent) error { return nil }

type natsConn interface {
	Publish(subject string, data []byte) error
}

// NATS publishes JSON events as plain core NATS messages.
type NATS struct {
	conn   natsConn
	prefix string
}

// NewNATS wraps an established connection. Subjects take the form prefix.name.
func NewNATS(conn *nats.Conn, prefix string) *NATS {
	return &NATS{conn: conn, prefix: prefix}
}

// Publish marshals event and sends it on prefix.name.
func (n *NATS) Publish(ctx context.Context, name string, event FileEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := name
	if n.prefix != "" {
		subject = n.prefix + "." + name
	}
	if err := n.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Connect dials NATS with unlimited reconnects, logging connection state changes.
func Connect(url string, log *zap.Logger) (*nats.Conn, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opts := []nats.Option{
		nats.Name("backoffice-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			log.Info("nats connection closed")
		}),
	}
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return conn, nil
}
