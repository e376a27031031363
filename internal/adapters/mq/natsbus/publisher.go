// Package natsbus fans leaderboard updates out over NATS.
package natsbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/okian/battle64/internal/domain/types"
	"github.com/okian/battle64/pkg/logger"
)

// Header names attached to every published update.
const (
	HeaderEventID = "Battle64-Event"
	HeaderVersion = "Battle64-Version"
)

// ErrNoEvent is returned for updates without an event id.
var ErrNoEvent = errors.New("update has no event id")

// Config holds connection settings.
type Config struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConfig returns settings for a local server.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		SubjectPrefix: "battle64.leaderboard",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// conn is the subset of *nats.Conn the publisher needs.
type conn interface {
	PublishMsg(msg *nats.Msg) error
	Drain() error
}

// Publisher publishes each update to <prefix>.<eventID>.
type Publisher struct {
	nc     conn
	prefix string
	logger logger.Logger
}

// Connect dials NATS and returns a publisher.
func Connect(cfg Config, l logger.Logger) (*Publisher, error) {
	if l == nil {
		l = logger.Nop()
	}
	ctx := context.Background()
	opts := []nats.Option{
		nats.Name("battle64"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			l.Error(ctx, "NATS disconnected", logger.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			l.Info(ctx, "NATS reconnected", logger.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			l.Error(ctx, "NATS error", logger.Error(err))
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return newPublisher(nc, cfg.SubjectPrefix, l), nil
}

func newPublisher(nc conn, prefix string, l logger.Logger) *Publisher {
	if l == nil {
		l = logger.Nop()
	}
	return &Publisher{nc: nc, prefix: strings.TrimSuffix(prefix, "."), logger: l}
}

// Name implements the service broadcaster contract.
func (p *Publisher) Name() string { return "nats" }

// Subject returns the subject updates for eventID are published on.
func (p *Publisher) Subject(eventID string) string {
	if p.prefix == "" {
		return eventID
	}
	return p.prefix + "." + eventID
}

// Broadcast publishes update as JSON.
func (p *Publisher) Broadcast(_ context.Context, update types.Update) error { //nolint:gocritic // hugeParam: matches the broadcaster contract
	if update.EventID == "" {
		return ErrNoEvent
	}
	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}

	msg := nats.NewMsg(p.Subject(update.EventID))
	msg.Data = data
	msg.Header.Set(HeaderEventID, update.EventID)
	msg.Header.Set(HeaderVersion, strconv.FormatUint(update.Version, 10))

	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	return nil
}

// Close drains pending publishes and closes the connection.
func (p *Publisher) Close() error {
	return p.nc.Drain()
}
