package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
	"github.com/sx-tools/siriusx-to-mqtt/pkg/config"
	"github.com/sx-tools/siriusx-to-mqtt/pkg/daq"
	"github.com/sx-tools/siriusx-to-mqtt/pkg/output"
)

const (
	DefaultServer   = "tcp://localhost:1883"
	DefaultClientID = "siriusx-client"
	DefaultTopic    = "siriusx/channel/%d"
)

type MQTTOutput struct {
	client mqtt.Client
	topic  string
	logger *logrus.Logger
}

func NewMQTT(cfg config.MQTTConfig, logger *logrus.Logger) (output.Output, error) {
	server := cfg.Server
	if server == "" {
		server = DefaultServer
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = DefaultClientID
	}

	opts := mqtt.NewClientOptions().
		AddBroker(server).
		SetClientID(clientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetKeepAlive(60 * time.Second).
		SetConnectTimeout(5 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.WithError(err).Warn("MQTT connection lost")
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	logger.WithField("server", server).Info("MQTT output connected")

	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	return &MQTTOutput{client: client, topic: topic, logger: logger}, nil
}

func (m *MQTTOutput) Publish(frames []daq.Frame) error {
	for _, f := range frames {
		topic := m.topic
		if strings.Contains(topic, "%d") {
			topic = fmt.Sprintf(topic, f.Channel)
		}
		b, err := json.Marshal(f)
		if err != nil {
			return err
		}
		token := m.client.Publish(topic, 0, false, b)
		token.Wait()
		if token.Error() != nil {
			return fmt.Errorf("mqtt publish: %w", token.Error())
		}
	}
	return nil
}

func (m *MQTTOutput) Close() error {
	if m.client != nil {
		m.client.Disconnect(250)
	}
	return nil
}
