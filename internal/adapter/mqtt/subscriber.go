// Package mqtt ingests measurements published by noise sensors over MQTT.
package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/noise-trust-service/internal/config"
	"github.com/couchcryptid/noise-trust-service/internal/domain"
	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	qos               = 1
	disconnectQuiesce = 250 // milliseconds
	bufferFactor      = 4
)

// Subscriber buffers publishes from a topic filter and hands them out in
// batches. It implements pipeline.BatchExtractor.
type Subscriber struct {
	client        paho.Client
	topic         string
	flushInterval time.Duration
	messages      chan domain.RawEvent
	done          chan struct{}
	logger        *slog.Logger
}

// NewSubscriber connects to the broker and subscribes to the configured topic
// filter. A single-level wildcard in the filter marks the location id segment.
func NewSubscriber(cfg *config.Config, logger *slog.Logger) (*Subscriber, error) {
	s := newSubscriber(cfg.MQTTTopic, cfg.BatchFlushInterval, cfg.BatchSize*bufferFactor, logger)

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.MQTTBroker)
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
	})
	// Resubscribe on every (re)connect.
	opts.SetOnConnectHandler(func(c paho.Client) {
		token := c.Subscribe(s.topic, qos, s.handleMessage)
		if token.Wait() && token.Error() != nil {
			logger.Error("mqtt subscribe failed", "topic", s.topic, "error", token.Error())
			return
		}
		logger.Info("mqtt subscribed", "topic", s.topic)
	})

	s.client = paho.NewClient(opts)
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to mqtt broker: %w", token.Error())
	}
	return s, nil
}

func newSubscriber(topic string, flushInterval time.Duration, buffer int, logger *slog.Logger) *Subscriber {
	if buffer <= 0 {
		buffer = 1
	}
	return &Subscriber{
		topic:         topic,
		flushInterval: flushInterval,
		messages:      make(chan domain.RawEvent, buffer),
		done:          make(chan struct{}),
		logger:        logger,
	}
}

// ExtractBatch collects up to batchSize messages, returning early when the
// flush interval elapses. The interval starts on entry, so an idle broker
// yields an empty batch with a nil error once per interval.
func (s *Subscriber) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error) {
	var timeout <-chan time.Time
	if s.flushInterval > 0 {
		timer := time.NewTimer(s.flushInterval)
		defer timer.Stop()
		timeout = timer.C
	}

	batch := make([]domain.RawEvent, 0, batchSize)
	for len(batch) < batchSize {
		select {
		case <-ctx.Done():
			if len(batch) > 0 {
				return batch, nil
			}
			return nil, ctx.Err()
		case <-timeout:
			return batch, nil
		case raw := <-s.messages:
			batch = append(batch, raw)
		}
	}
	return batch, nil
}

// Close disconnects from the broker and releases blocked handlers.
func (s *Subscriber) Close() error {
	close(s.done)
	if s.client != nil {
		s.client.Disconnect(disconnectQuiesce)
	}
	return nil
}

func (s *Subscriber) handleMessage(_ paho.Client, msg paho.Message) {
	raw := domain.RawEvent{
		Key:       []byte(msg.Topic()),
		Value:     msg.Payload(),
		Headers:   map[string]string{},
		Topic:     msg.Topic(),
		Timestamp: time.Now().UTC(),
	}
	if id := locationFromTopic(s.topic, msg.Topic()); id != "" {
		raw.Headers[domain.HeaderLocationID] = id
	}

	select {
	case s.messages <- raw:
	case <-s.done:
		s.logger.Debug("dropping mqtt message after close", "topic", msg.Topic())
	}
}

// locationFromTopic returns the topic segment matched by the first "+" in the
// filter, or "" when the filter has no single-level wildcard or does not match.
func locationFromTopic(filter, topic string) string {
	fs := strings.Split(filter, "/")
	ts := strings.Split(topic, "/")
	for i, f := range fs {
		if f == "#" {
			return ""
		}
		if i >= len(ts) {
			return ""
		}
		if f == "+" {
			return ts[i]
		}
		if f != ts[i] {
			return ""
		}
	}
	return ""
}
