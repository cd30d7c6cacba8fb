package ingest

import (
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// #region mqtt
// NewMQTTClient connects to cfg.MQTTBroker.
func NewMQTTClient(cfg Config) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)
	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.MQTTBroker, token.Error())
	}
	return c, nil
}

// MQTTHandler stores each message. The last topic level is the fallback
// user, so devices can publish to estimator/events/<user>.
func (i *Ingester) MQTTHandler() mqtt.MessageHandler {
	return func(_ mqtt.Client, m mqtt.Message) {
		topic := m.Topic()
		user := topic[strings.LastIndex(topic, "/")+1:]
		n, err := i.Handle(user, m.Payload())
		i.metrics.ObserveIngest("mqtt", n, err)
		if err != nil {
			i.log.Warn("dropping message", "topic", topic, "error", err)
		}
	}
}

// SubscribeMQTT routes cfg.MQTTTopic through the ingester.
func (i *Ingester) SubscribeMQTT(c mqtt.Client, cfg Config) error {
	token := c.Subscribe(cfg.MQTTTopic, cfg.MQTTQoS, i.MQTTHandler())
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", cfg.MQTTTopic, token.Error())
	}
	return nil
}

// #endregion mqtt
