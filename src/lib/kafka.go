package lib

import (
	"encoding/json"
	"log"
	"os"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

const EVENTS_TOPIC = "payment-events"

var kafkaProducer *kafka.Producer

func GetKafkaProducer() *kafka.Producer {
	if kafkaProducer != nil {
		return kafkaProducer
	}
	broker := os.Getenv("KAFKA_BROKER")
	if broker == "" {
		return nil
	}
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": broker,
		"client.id":         "brpay-api",
		"acks":              "all",
	})
	if err != nil {
		log.Printf("[kafka] Error creating producer: %s\n", err.Error())
		return nil
	}
	kafkaProducer = p
	return p
}

// KafkaPublishEvent produces a payment event to the audit topic. Fire and
// forget: a broker outage must never fail the payment request that caused the
// event.
func KafkaPublishEvent(payload map[string]any) {
	p := GetKafkaProducer()
	if p == nil {
		return
	}
	value, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[kafka] Error marshaling event payload: %s\n", err.Error())
		return
	}
	topic := EVENTS_TOPIC
	err = p.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          value,
	}, nil)
	if err != nil {
		log.Printf("[kafka] Error producing event: %s\n", err.Error())
	}
}
