package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"demovoice-server/pkg/metrics"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

// ResultMessage is the payload published after a processing run completes.
type ResultMessage struct {
	SessionID     string                 `json:"session_id"`
	Script        string                 `json:"script"`
	AudioFile     string                 `json:"audio_file,omitempty"`
	AudioFallback bool                   `json:"audio_fallback"`
	Success       bool                   `json:"success"`
	Error         string                 `json:"error,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// AMQPConfig holds AMQP client configuration
type AMQPConfig struct {
	URL          string
	QueueName    string
	ExchangeName string
	RoutingKey   string
	Durable      bool
	AutoDelete   bool
}

// AMQPClient handles AMQP connections and result publishing
type AMQPClient struct {
	logger    *logrus.Logger
	config    AMQPConfig
	conn      *amqp.Connection
	channel   *amqp.Channel
	connected bool
	connMutex sync.RWMutex
	stopChan  chan struct{}
}

// NewAMQPClient creates a new AMQP client
func NewAMQPClient(logger *logrus.Logger, config AMQPConfig) *AMQPClient {
	if config.RoutingKey == "" {
		config.RoutingKey = config.QueueName
	}
	config.Durable = true
	config.AutoDelete = false

	return &AMQPClient{
		logger:   logger,
		config:   config,
		stopChan: make(chan struct{}),
	}
}

// Connect establishes a connection to the AMQP server
func (c *AMQPClient) Connect() error {
	c.connMutex.Lock()
	defer c.connMutex.Unlock()

	if c.connected {
		return nil
	}

	if c.config.URL == "" || c.config.QueueName == "" {
		c.logger.Warn("AMQP_URL or AMQP_QUEUE_NAME not set, AMQP functionality will be disabled")
		return fmt.Errorf("AMQP URL or queue name not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connChan := make(chan struct {
		conn *amqp.Connection
		err  error
	}, 1)

	go func() {
		conn, err := amqp.Dial(c.config.URL)
		select {
		case <-ctx.Done():
			if conn != nil {
				conn.Close()
			}
			return
		case connChan <- struct {
			conn *amqp.Connection
			err  error
		}{conn, err}:
		}
	}()

	var conn *amqp.Connection
	var err error
	select {
	case result := <-connChan:
		conn = result.conn
		err = result.err
	case <-ctx.Done():
		metrics.RecordAMQPConnectionError("timeout")
		return fmt.Errorf("connection to AMQP server timed out after 5 seconds")
	}

	if err != nil {
		metrics.RecordAMQPConnectionError("dial")
		return fmt.Errorf("failed to connect to AMQP server: %w", err)
	}

	c.conn = conn

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		metrics.RecordAMQPConnectionError("channel")
		return fmt.Errorf("failed to open AMQP channel: %w", err)
	}
	c.channel = channel

	_, err = channel.QueueDeclare(
		c.config.QueueName,
		c.config.Durable,
		c.config.AutoDelete,
		false, // Exclusive
		false, // No-wait
		nil,   // Arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		metrics.RecordAMQPConnectionError("queue_declare")
		return fmt.Errorf("failed to declare AMQP queue: %w", err)
	}

	c.connected = true
	metrics.SetAMQPConnectionStatus(true)
	c.logger.WithFields(logrus.Fields{
		"url":   c.config.URL,
		"queue": c.config.QueueName,
	}).Info("Connected to AMQP server")

	// New stop channel in case this is a reconnect
	c.stopChan = make(chan struct{})

	go c.monitorConnection()

	return nil
}

// Disconnect closes the AMQP connection
func (c *AMQPClient) Disconnect() {
	c.connMutex.Lock()
	defer c.connMutex.Unlock()

	if !c.connected {
		return
	}

	close(c.stopChan)

	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}

	c.connected = false
	metrics.SetAMQPConnectionStatus(false)
	c.logger.Info("Disconnected from AMQP server")
}

// IsConnected returns the connection status
func (c *AMQPClient) IsConnected() bool {
	c.connMutex.RLock()
	defer c.connMutex.RUnlock()
	return c.connected
}

// PublishResult publishes a processing result to the AMQP queue.
// Publishing is best-effort: failures are reported to the caller but must
// never take down a pipeline run that already completed.
func (c *AMQPClient) PublishResult(result ResultMessage) error {
	defer func() {
		if r := recover(); r != nil {
			c.logger.WithFields(logrus.Fields{
				"session_id": result.SessionID,
				"recover":    r,
			}).Error("Recovered from panic in AMQP PublishResult")
		}
	}()

	if !c.IsConnected() {
		metrics.RecordAMQPPublish(c.config.QueueName, "not_connected")
		return fmt.Errorf("not connected to AMQP server")
	}

	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now()
	}

	bodyBytes, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result to JSON: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	publishChan := make(chan error, 1)
	go func() {
		c.connMutex.RLock()
		defer c.connMutex.RUnlock()

		if !c.connected || c.channel == nil {
			select {
			case <-ctx.Done():
				return
			case publishChan <- fmt.Errorf("lost AMQP connection before publishing"):
			}
			return
		}

		err := c.channel.Publish(
			c.config.ExchangeName,
			c.config.RoutingKey,
			false, // Mandatory
			false, // Immediate
			amqp.Publishing{
				ContentType:  "application/json",
				Body:         bodyBytes,
				DeliveryMode: amqp.Persistent,
				Timestamp:    time.Now(),
				// Expire stale results to prevent queue buildup
				Expiration: "43200000", // 12 hours in milliseconds
			},
		)

		select {
		case <-ctx.Done():
			return
		case publishChan <- err:
		}
	}()

	select {
	case err := <-publishChan:
		if err != nil {
			metrics.RecordAMQPPublish(c.config.QueueName, "error")
			return fmt.Errorf("failed to publish result to AMQP: %w", err)
		}
	case <-ctx.Done():
		metrics.RecordAMQPPublish(c.config.QueueName, "timeout")
		return fmt.Errorf("publishing to AMQP timed out after 200ms")
	}

	metrics.RecordAMQPPublish(c.config.QueueName, "success")
	c.logger.WithField("session_id", result.SessionID).Debug("Published processing result to AMQP")
	return nil
}

// monitorConnection watches the AMQP connection and reconnects if it closes
func (c *AMQPClient) monitorConnection() {
	closeChan := make(chan *amqp.Error)

	c.connMutex.RLock()
	if c.conn != nil {
		c.conn.NotifyClose(closeChan)
	}
	c.connMutex.RUnlock()

	for {
		select {
		case <-c.stopChan:
			return
		case closeErr := <-closeChan:
			c.connMutex.Lock()
			c.connected = false
			c.connMutex.Unlock()
			metrics.SetAMQPConnectionStatus(false)

			c.logger.WithError(closeErr).Warn("AMQP connection closed, attempting to reconnect")

			for attempt := 1; attempt <= 10; attempt++ {
				c.logger.WithField("attempt", attempt).Info("Reconnecting to AMQP server")

				err := c.Connect()
				if err == nil {
					c.logger.Info("Successfully reconnected to AMQP server")
					return
				}

				c.logger.WithError(err).WithField("attempt", attempt).Error("Failed to reconnect to AMQP server")

				// Exponential backoff capped at 30 seconds
				backoff := time.Duration(1<<uint(attempt-1)) * time.Second
				if backoff > 30*time.Second {
					backoff = 30 * time.Second
				}

				time.Sleep(backoff)
			}
			return
		}
	}
}
