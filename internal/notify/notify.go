package notify

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"hardhat-shell/internal/model"
)

// Notifier publishes violation detections to an MQTT broker so site-level
// alerting can pick them up. A nil *Notifier is valid and publishes nothing;
// the broker is optional infrastructure.
type Notifier struct {
	client    mqtt.Client
	baseTopic string
	log       *zap.Logger
}

type Config struct {
	Host      string
	Port      int
	Username  string
	Password  string
	ClientID  string
	BaseTopic string
}

// NewFromEnv builds a notifier from MQTT_* variables. With MQTT_HOST unset
// it returns (nil, nil): notifications are simply off.
func NewFromEnv(log *zap.Logger) (*Notifier, error) {
	host := os.Getenv("MQTT_HOST")
	if host == "" {
		return nil, nil
	}

	cfg := Config{
		Host:      host,
		Port:      getenvInt("MQTT_PORT", 1883),
		Username:  os.Getenv("MQTT_USERNAME"),
		Password:  os.Getenv("MQTT_PASSWORD"),
		ClientID:  getenv("MQTT_CLIENT_ID", "hardhat-shell"),
		BaseTopic: getenv("MQTT_BASE_TOPIC", "hardhat"),
	}
	return New(cfg, log)
}

func New(cfg Config, log *zap.Logger) (*Notifier, error) {
	if log == nil {
		log = zap.NewNop()
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(5 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	cli := mqtt.NewClient(opts)
	token := cli.Connect()
	if ok := token.WaitTimeout(10 * time.Second); !ok {
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	return &Notifier{client: cli, baseTopic: cfg.BaseTopic, log: log}, nil
}

// ViolationDetected publishes the detection. Compliance results are the
// caller's to filter; this publishes whatever it is given.
func (n *Notifier) ViolationDetected(d model.Detection) {
	if n == nil {
		return
	}

	payload, err := json.Marshal(d)
	if err != nil {
		n.log.Warn("violation payload marshal failed", zap.Error(err))
		return
	}

	topic := n.baseTopic + "/violations"
	token := n.client.Publish(topic, 1, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		n.log.Warn("violation publish failed", zap.String("topic", topic), zap.Error(err))
	}
}

func (n *Notifier) Close() {
	if n == nil || n.client == nil {
		return
	}
	if n.client.IsConnected() {
		n.client.Disconnect(250)
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			return x
		}
	}
	return def
}
