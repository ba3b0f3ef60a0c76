package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	coremetrics "github.com/kilianp07/evpack/core/metrics"
	coremqtt "github.com/kilianp07/evpack/core/mqtt"
	"github.com/kilianp07/evpack/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker      string          `json:"broker"`
	ClientID    string          `json:"client_id"`
	Username    string          `json:"username"`
	Password    string          `json:"password"`
	TopicPrefix string          `json:"topic_prefix"`
	Retain      bool            `json:"retain"`
	UseTLS      bool            `json:"use_tls"`
	ClientCert  string          `json:"client_cert"`
	ClientKey   string          `json:"client_key"`
	CABundle    string          `json:"ca_bundle"`
	AuthMethod  string          `json:"auth_method"`
	QoS         map[string]byte `json:"qos"`
	LWTTopic    string          `json:"lwt_topic"`
	LWTPayload  string          `json:"lwt_payload"`
	LWTQoS      byte            `json:"lwt_qos"`
	LWTRetain   bool            `json:"lwt_retain"`
	MaxRetries  int             `json:"max_retries"`
	BackoffMS   int             `json:"backoff_ms"`
	TLSConfig   *tls.Config     `json:"-"`
}

// pahoClient is the subset of paho.Client used by the Publisher.
type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Publisher publishes drive cycle diagnostics and run summaries as JSON.
// It implements the metrics sink interfaces.
type Publisher struct {
	cli        pahoClient
	topics     coremqtt.Topics
	qos        map[string]byte
	retain     bool
	logger     logger.Logger
	maxRetries int
	backoff    time.Duration
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPublisher connects to the MQTT broker.
func NewPublisher(cfg Config) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt broker is required")
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_publisher")
	p := &Publisher{
		topics:     coremqtt.NewTopics(cfg.TopicPrefix),
		qos:        cfg.QoS,
		retain:     cfg.Retain,
		logger:     log,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
	}
	if p.maxRetries <= 0 {
		p.maxRetries = 3
	}
	if p.backoff <= 0 {
		p.backoff = 100 * time.Millisecond
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if token := c.Publish(p.topics.Status(), p.qosFor("status"), true, "online"); token.Wait() && token.Error() != nil {
			log.Errorf("status publish error: %v", token.Error())
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
	p.cli = c
	return p, nil
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
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}
	return cfg, nil
}

func (p *Publisher) qosFor(kind string) byte {
	if q, ok := p.qos[kind]; ok {
		return q
	}
	return 0
}

// publish marshals v and publishes it, retrying with exponential backoff.
func (p *Publisher) publish(topic, kind string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	qos := p.qosFor(kind)
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, qos, p.retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Debugf("published %s to %s", kind, topic)
			return nil
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < p.maxRetries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	return fmt.Errorf("%w: %s: %v", coremqtt.ErrPublishFailed, topic, publishErr)
}

// diagnosticsMessage omits absent values instead of encoding NaN, which JSON
// cannot represent.
type diagnosticsMessage struct {
	RunID                string   `json:"run_id"`
	PackID               string   `json:"pack_id"`
	Cycle                int      `json:"cycle"`
	Healing              string   `json:"healing"`
	MilesDriven          float64  `json:"miles_driven"`
	TotalConsumedKWh     float64  `json:"total_consumed_kWh"`
	CapacityLossKWh      float64  `json:"capacity_loss_kWh"`
	Efficiency           *float64 `json:"efficiency,omitempty"`
	RemainingCapacityKWh *float64 `json:"remaining_capacity_kWh,omitempty"`
	CycleCount           float64  `json:"cycle_count"`
	Timestamp            int64    `json:"timestamp"`
}

// RecordDriveCycles publishes one message per drive cycle.
func (p *Publisher) RecordDriveCycles(evs []coremetrics.DriveCycleEvent) error {
	for _, ev := range evs {
		d := ev.Diagnostics
		msg := diagnosticsMessage{
			RunID:            ev.RunID,
			PackID:           ev.PackID,
			Cycle:            ev.Cycle,
			Healing:          ev.Healing,
			MilesDriven:      d.MilesDriven,
			TotalConsumedKWh: d.TotalConsumedKWh,
			CapacityLossKWh:  d.CapacityLossKWh,
			CycleCount:       d.CycleCount,
			Timestamp:        ev.Time.UnixMilli(),
		}
		if d.HasEfficiency() {
			v := d.Efficiency
			msg.Efficiency = &v
		}
		if d.HasRemainingCapacity() {
			v := d.RemainingCapacityKWh
			msg.RemainingCapacityKWh = &v
		}
		if err := p.publish(p.topics.Diagnostics(ev.RunID, ev.PackID), "diagnostics", msg); err != nil {
			return err
		}
	}
	return nil
}

// RecordEfficiencySummary publishes the efficiency summary of a run.
func (p *Publisher) RecordEfficiencySummary(ev coremetrics.EfficiencySummaryEvent) error {
	msg := struct {
		RunID     string `json:"run_id"`
		Timestamp int64  `json:"timestamp"`
		Summary   any    `json:"summary"`
	}{ev.RunID, ev.Time.UnixMilli(), ev.Summary}
	return p.publish(p.topics.EfficiencySummary(ev.RunID), "summary", msg)
}

// RecordHealthSummary publishes a healing analysis.
func (p *Publisher) RecordHealthSummary(ev coremetrics.HealthSummaryEvent) error {
	msg := struct {
		RunID     string `json:"run_id"`
		Source    string `json:"source"`
		Timestamp int64  `json:"timestamp"`
		Summary   any    `json:"summary"`
	}{ev.RunID, ev.Source, ev.Time.UnixMilli(), ev.Summary}
	return p.publish(p.topics.HealthSummary(ev.RunID), "summary", msg)
}

// RecordRun publishes the outcome of a run.
func (p *Publisher) RecordRun(ev coremetrics.RunEvent) error {
	msg := struct {
		RunID      string `json:"run_id"`
		Seed       int64  `json:"seed"`
		Packs      int    `json:"packs"`
		Cycles     int    `json:"cycles"`
		DurationMS int64  `json:"duration_ms"`
		Failed     bool   `json:"failed"`
		Timestamp  int64  `json:"timestamp"`
	}{ev.RunID, ev.Seed, ev.Packs, ev.Cycles, ev.Duration.Milliseconds(), ev.Failed, ev.Time.UnixMilli()}
	return p.publish(p.topics.Run(ev.RunID), "run", msg)
}

// Close marks the publisher offline and disconnects.
func (p *Publisher) Close() error {
	if p.cli == nil || !p.cli.IsConnected() {
		return nil
	}
	token := p.cli.Publish(p.topics.Status(), p.qosFor("status"), true, "offline")
	token.WaitTimeout(time.Second)
	p.cli.Disconnect(250)
	return nil
}
