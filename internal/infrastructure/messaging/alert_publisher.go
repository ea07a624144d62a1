package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"amp-whale-tracker/internal/domain/entity"
	"amp-whale-tracker/internal/domain/service"
	"amp-whale-tracker/internal/infrastructure/config"
	"amp-whale-tracker/internal/infrastructure/logger"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSAlertPublisher publishes whale alerts to NATS JetStream
type NATSAlertPublisher struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	config *config.AlertsConfig
	logger *logger.Logger
}

// NewNATSAlertPublisher creates a new NATS alert publisher
func NewNATSAlertPublisher(cfg *config.AlertsConfig, logger *logger.Logger) *NATSAlertPublisher {
	return &NATSAlertPublisher{
		config: cfg,
		logger: logger.WithComponent("alert-publisher"),
	}
}

var _ service.AlertPublisher = (*NATSAlertPublisher)(nil)

// Connect connects to NATS server and ensures the alert stream exists
func (p *NATSAlertPublisher) Connect(ctx context.Context) error {
	if !p.config.Enabled {
		p.logger.Info("Alerts are disabled, skipping NATS connection")
		return nil
	}

	p.logger.Info("Connecting to NATS server", zap.String("url", p.config.NATS.URL))

	opts := []nats.Option{
		nats.Name("whale-tracker"),
		nats.Timeout(p.config.NATS.ConnectTimeout),
		nats.ReconnectWait(p.config.NATS.ReconnectDelay),
		nats.MaxReconnects(p.config.NATS.ReconnectAttempts),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			p.logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			p.logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			p.logger.Info("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(p.config.NATS.URL, opts...)
	if err != nil {
		p.logger.Error("Failed to connect to NATS", zap.Error(err))
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	p.conn = conn

	// Try JetStream first, if not available fall back to core NATS
	js, err := conn.JetStream()
	if err != nil {
		p.logger.Warn("JetStream not available, using core NATS", zap.Error(err))
		return nil
	}

	if err := p.ensureStream(js); err != nil {
		p.logger.Warn("Failed to ensure alert stream, using core NATS", zap.Error(err))
		return nil
	}

	p.js = js
	p.logger.Info("Successfully connected to NATS JetStream",
		zap.String("stream", p.config.NATS.StreamName))
	return nil
}

// ensureStream creates the alert stream when it does not exist yet
func (p *NATSAlertPublisher) ensureStream(js nats.JetStreamContext) error {
	if _, err := js.StreamInfo(p.config.NATS.StreamName); err == nil {
		return nil
	}

	_, err := js.AddStream(&nats.StreamConfig{
		Name:     p.config.NATS.StreamName,
		Subjects: []string{fmt.Sprintf("%s.>", p.config.NATS.SubjectPrefix)},
		Storage:  nats.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	p.logger.Info("Created alert stream", zap.String("stream", p.config.NATS.StreamName))
	return nil
}

// PublishAlert publishes a whale alert. It is a no-op while alerts are
// disabled or the connection is down.
func (p *NATSAlertPublisher) PublishAlert(ctx context.Context, alert *entity.WhaleAlert) error {
	if !p.config.Enabled || p.conn == nil {
		return nil
	}

	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	subject := fmt.Sprintf("%s.alerts", p.config.NATS.SubjectPrefix)

	if p.js != nil {
		if _, err := p.js.Publish(subject, data, nats.Context(ctx)); err != nil {
			return fmt.Errorf("failed to publish alert: %w", err)
		}
	} else {
		if err := p.conn.Publish(subject, data); err != nil {
			return fmt.Errorf("failed to publish alert: %w", err)
		}
	}

	p.logger.Debug("Published whale alert",
		zap.String("id", alert.ID),
		zap.String("tx_hash", alert.TransactionHash),
		zap.Float64("eth_amount", alert.EthAmount))
	return nil
}

// Disconnect disconnects from NATS server
func (p *NATSAlertPublisher) Disconnect() error {
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
		p.js = nil
	}
	p.logger.Info("Disconnected from NATS")
	return nil
}

// IsConnected checks if connected to NATS
func (p *NATSAlertPublisher) IsConnected() bool {
	return p.conn != nil && p.conn.IsConnected()
}
