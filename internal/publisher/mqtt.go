package publisher

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/energyinsight/energyinsight/internal/config"
	"github.com/energyinsight/energyinsight/pkg/models"
)

// Publisher pushes summary figures to an MQTT broker so home-automation
// dashboards can pick them up as sensor states
type Publisher struct {
	client      mqtt.Client
	topicPrefix string
}

// New creates a publisher and connects to the broker
func New(cfg config.MQTTConfig) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("MQTT publishing is not enabled in config")
	}
	if cfg.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required when enabled")
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.Broker))
	opts.SetClientID("energyinsight")
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}

	return &Publisher{client: client, topicPrefix: cfg.TopicPrefix}, nil
}

// statePayload is the retained JSON published per stat
type statePayload struct {
	Value     float64 `json:"value"`
	Unit      string  `json:"unit"`
	Trend     string  `json:"trend,omitempty"`
	UpdatedAt string  `json:"updated_at"`
}

// PublishSummary publishes each stat card as a retained state topic
func (p *Publisher) PublishSummary(summary *models.Summary) error {
	now := time.Now().UTC().Format(time.RFC3339)
	for _, stat := range summary.Stats {
		payload, err := json.Marshal(statePayload{
			Value:     stat.Value,
			Unit:      stat.Unit,
			Trend:     stat.Trend,
			UpdatedAt: now,
		})
		if err != nil {
			return fmt.Errorf("encoding payload: %w", err)
		}

		topic := fmt.Sprintf("%s/%s", p.topicPrefix, topicSlug(stat.Title))
		if token := p.client.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
			return fmt.Errorf("publishing %s: %w", topic, token.Error())
		}
	}
	return nil
}

// Close disconnects from the MQTT broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

func topicSlug(title string) string {
	slug := strings.ToLower(title)
	slug = strings.NewReplacer(" ", "_", "₂", "2").Replace(slug)
	var b strings.Builder
	for _, r := range slug {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
