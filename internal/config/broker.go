package config

import "os"

// BrokerConfig configures RabbitMQ. An empty URL disables publishing and
// the consumer.
type BrokerConfig struct {
	URL             string
	ConsumerEnabled bool
	LogDir          string
}

// LoadBrokerConfig reads RABBITMQ_URL, falling back to AMQP_URL.
func LoadBrokerConfig() BrokerConfig {
	url := os.Getenv("RABBITMQ_URL")
	if url == "" {
		url = os.Getenv("AMQP_URL")
	}
	return BrokerConfig{
		URL:             url,
		ConsumerEnabled: envBool("EVENTS_CONSUMER_ENABLED", true),
		LogDir:          envStr("EVENTS_LOG_DIR", "logs"),
	}
}
