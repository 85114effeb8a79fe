package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	coremon "github.com/kilianp07/gridrepair/core/monitoring"
	coremqtt "github.com/kilianp07/gridrepair/core/mqtt"
	"github.com/kilianp07/gridrepair/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
// QoS keys are "order", "summary" and "ack".
type Config struct {
	Enabled     bool            `json:"enabled" koanf:"enabled"`
	Broker      string          `json:"broker" koanf:"broker"`
	ClientID    string          `json:"client_id" koanf:"client_id"`
	Username    string          `json:"username" koanf:"username"`
	Password    string          `json:"password" koanf:"password"`
	TopicPrefix string          `json:"topic_prefix" koanf:"topic_prefix"`
	UseTLS      bool            `json:"use_tls" koanf:"use_tls"`
	ClientCert  string          `json:"client_cert" koanf:"client_cert"`
	ClientKey   string          `json:"client_key" koanf:"client_key"`
	CABundle    string          `json:"ca_bundle" koanf:"ca_bundle"`
	AuthMethod  string          `json:"auth_method" koanf:"auth_method"`
	QoS         map[string]byte `json:"qos" koanf:"qos"`
	LWTTopic    string          `json:"lwt_topic" koanf:"lwt_topic"`
	LWTPayload  string          `json:"lwt_payload" koanf:"lwt_payload"`
	LWTQoS      byte            `json:"lwt_qos" koanf:"lwt_qos"`
	LWTRetain   bool            `json:"lwt_retain" koanf:"lwt_retain"`
	MaxRetries  int             `json:"max_retries" koanf:"max_retries"`
	BackoffMS   int             `json:"backoff_ms" koanf:"backoff_ms"`
	AckTimeoutS int             `json:"ack_timeout_s" koanf:"ack_timeout_s"`
	TLSConfig   *tls.Config     `json:"-" koanf:"-"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "gridrepair"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "gridrepair"
	}
	c.TopicPrefix = strings.TrimSuffix(c.TopicPrefix, "/")
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

// Validate checks an enabled configuration.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Broker == "" {
		return fmt.Errorf("mqtt: broker is required")
	}
	for k, q := range c.QoS {
		if q > 2 {
			return fmt.Errorf("mqtt: qos %s=%d out of range", k, q)
		}
	}
	return nil
}

// OrderTopic returns the topic of a phase.
func (c Config) OrderTopic(phase int) string {
	return c.TopicPrefix + "/phase/" + strconv.Itoa(phase)
}

// SummaryTopic returns the retained summary topic.
func (c Config) SummaryTopic() string { return c.TopicPrefix + "/summary" }

// AckTopic returns the topic crews acknowledge orders on.
func (c Config) AckTopic() string { return c.TopicPrefix + "/ack" }

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// PahoClient implements the dispatch Client using Eclipse Paho.
type PahoClient struct {
	cli pahoClient
	cfg Config

	mu       sync.Mutex
	ackChans map[string]chan struct{}
	logger   logger.Logger
	backoff  time.Duration
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoClient connects to the MQTT broker and subscribes to the ack topic.
func NewPahoClient(cfg Config) (*PahoClient, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_client")
	pc := &PahoClient{
		cfg:      cfg,
		ackChans: make(map[string]chan struct{}),
		logger:   log,
		backoff:  time.Duration(cfg.BackoffMS) * time.Millisecond,
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if token := c.Subscribe(cfg.AckTopic(), pc.qos("ack"), pc.onAck); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	pc.cli = c
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

func (p *PahoClient) qos(kind string) byte {
	return p.cfg.QoS[kind]
}

func (p *PahoClient) onAck(_ paho.Client, msg paho.Message) {
	var m struct {
		OrderID string `json:"order_id"`
	}
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		p.logger.Errorf("failed to decode ack: %v", err)
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if ch, ok := p.ackChans[m.OrderID]; ok {
		select {
		case ch <- struct{}{}:
		default:
		}
		p.logger.Debugf("received ack %s", m.OrderID)
	}
}

// publish retries with exponential backoff.
func (p *PahoClient) publish(topic string, qos byte, retained bool, payload []byte) error {
	var err error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		token := p.cli.Publish(topic, qos, retained, payload)
		token.Wait()
		if err = token.Error(); err == nil {
			return nil
		}
		p.logger.Errorf("publish %s attempt %d failed: %v", topic, attempt+1, err)
		if attempt < p.cfg.MaxRetries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	return err
}

// SendOrder publishes a work order on its phase topic and registers it for
// acknowledgment tracking.
func (p *PahoClient) SendOrder(msg coremqtt.OrderMessage) (string, error) {
	if msg.OrderID == "" {
		msg.OrderID = uuid.NewString()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	// registered first so an ack racing the publish token is not lost
	p.mu.Lock()
	p.ackChans[msg.OrderID] = make(chan struct{}, 1)
	p.mu.Unlock()

	topic := p.cfg.OrderTopic(msg.Task.Phase)
	if err := p.publish(topic, p.qos("order"), false, payload); err != nil {
		p.mu.Lock()
		delete(p.ackChans, msg.OrderID)
		p.mu.Unlock()
		coremon.CaptureException(err, map[string]string{
			"module":      "mqtt",
			"run_id":      msg.RunID,
			"building_id": msg.Task.BuildingID,
			"segment_id":  msg.Task.SegmentID,
		})
		return "", err
	}
	p.logger.Debugf("sent order %s to %s", msg.OrderID, topic)
	return msg.OrderID, nil
}

// PublishSummary publishes the retained schedule summary.
func (p *PahoClient) PublishSummary(msg coremqtt.SummaryMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := p.publish(p.cfg.SummaryTopic(), p.qos("summary"), true, payload); err != nil {
		coremon.CaptureException(err, map[string]string{"module": "mqtt", "run_id": msg.RunID})
		return err
	}
	return nil
}

// WaitForAck blocks until an ack for the given order is received or timeout.
func (p *PahoClient) WaitForAck(orderID string, timeout time.Duration) (bool, error) {
	p.mu.Lock()
	ch := p.ackChans[orderID]
	p.mu.Unlock()
	if ch == nil {
		return false, fmt.Errorf("%w: %s", coremqtt.ErrUnknownOrder, orderID)
	}
	defer func() {
		p.mu.Lock()
		delete(p.ackChans, orderID)
		p.mu.Unlock()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ch:
		return true, nil
	case <-timer.C:
		return false, fmt.Errorf("%w: %s", coremqtt.ErrAckTimeout, orderID)
	}
}

// AckTimeout returns the configured wait per order, zero when disabled.
func (p *PahoClient) AckTimeout() time.Duration {
	return time.Duration(p.cfg.AckTimeoutS) * time.Second
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
