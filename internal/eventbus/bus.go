// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/nexusaudit/internal/audit"
	"github.com/tomtom215/nexusaudit/internal/logging"
)

// TopicAuditRecords carries every stored audit record.
const TopicAuditRecords = "audit.records"

// Message metadata keys.
const (
	MetadataAction   = "action"
	MetadataSeverity = "severity"
)

// ErrBusClosed is returned by PublishRecord after Close.
var ErrBusClosed = errors.New("event bus closed")

// NATSConfig configures the NATS transport.
type NATSConfig struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
	CloseTimeout  time.Duration
}

// DefaultNATSConfig returns production defaults.
func DefaultNATSConfig(url string) NATSConfig {
	return NATSConfig{
		URL:           url,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		CloseTimeout:  10 * time.Second,
	}
}

// Bus publishes audit records and hands out the matching subscriber. It
// implements audit.Publisher.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	cb         *gobreaker.CircuitBreaker[struct{}]
	logger     watermill.LoggerAdapter
	transport  string

	mu     sync.RWMutex
	closed bool
}

// NewLogger returns the Watermill logger adapter backed by zerolog.
func NewLogger() watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logging.NewSlogLogger())
}

// NewInProcessBus creates a bus over a Go channel Pub/Sub. Records
// published while nothing is subscribed are discarded.
func NewInProcessBus(logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = NewLogger()
	}
	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, logger)
	return newBus(pubSub, pubSub, "gochannel", logger)
}

// NewNATSBus creates a bus over core NATS. Every instance receives every
// record, so each one can notify its own WebSocket clients.
func NewNATSBus(cfg NATSConfig, logger watermill.LoggerAdapter) (*Bus, error) {
	if logger == nil {
		logger = NewLogger()
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.URL,
		SubscribersCount: 1,
		CloseTimeout:     cfg.CloseTimeout,
		AckWaitTimeout:   30 * time.Second,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}

	return newBus(pub, sub, "nats", logger), nil
}

func newBus(pub message.Publisher, sub message.Subscriber, transport string, logger watermill.LoggerAdapter) *Bus {
	settings := gobreaker.Settings{
		Name:        "event-bus-" + transport,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Event bus circuit breaker state changed")
		},
	}
	return &Bus{
		publisher:  pub,
		subscriber: sub,
		cb:         gobreaker.NewCircuitBreaker[struct{}](settings),
		logger:     logger,
		transport:  transport,
	}
}

// PublishRecord publishes r to TopicAuditRecords. The record id is the
// message UUID.
func (b *Bus) PublishRecord(ctx context.Context, r *audit.Record) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", r.ID, err)
	}

	msg := message.NewMessage(r.ID, payload)
	msg.Metadata.Set(MetadataAction, string(r.Action))
	msg.Metadata.Set(MetadataSeverity, string(r.Severity))
	msg.SetContext(ctx)

	_, err = b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.publisher.Publish(TopicAuditRecords, msg)
	})
	if err != nil {
		return fmt.Errorf("publish record %s: %w", r.ID, err)
	}
	return nil
}

// Subscriber returns the subscriber side of the bus.
func (b *Bus) Subscriber() message.Subscriber {
	return b.subscriber
}

// Transport names the underlying Pub/Sub ("gochannel" or "nats").
func (b *Bus) Transport() string {
	return b.transport
}

// Close closes the publisher and subscriber.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	if err := b.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}
	// gochannel uses one value for both sides.
	if any(b.subscriber) != any(b.publisher) {
		if err := b.subscriber.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close subscriber: %w", err))
		}
	}
	return errors.Join(errs...)
}
