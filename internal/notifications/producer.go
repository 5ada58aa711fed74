package notifications

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"busly/pkg/logger"

	"github.com/IBM/sarama"
)

// KafkaProducerConfig contains configuration for the seat event producer.
type KafkaProducerConfig struct {
	Brokers         []string
	SeatsTopic      string
	RetryMax        int
	TimeoutMs       int
	RequiredAcks    sarama.RequiredAcks
	CompressionType sarama.CompressionCodec
}

// DefaultKafkaProducerConfig returns a default producer configuration.
func DefaultKafkaProducerConfig() *KafkaProducerConfig {
	return &KafkaProducerConfig{
		Brokers:         []string{"localhost:9092"},
		SeatsTopic:      "seat-events",
		RetryMax:        3,
		TimeoutMs:       10000,
		RequiredAcks:    sarama.WaitForAll,
		CompressionType: sarama.CompressionSnappy,
	}
}

// KafkaBroadcaster publishes seat events to Kafka, partitioned by trip so
// per-trip ordering is preserved for subscribers.
type KafkaBroadcaster struct {
	producer sarama.SyncProducer
	config   *KafkaProducerConfig
}

// NewKafkaBroadcaster creates a Kafka-backed broadcaster.
func NewKafkaBroadcaster(config *KafkaProducerConfig) (*KafkaBroadcaster, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = config.RequiredAcks
	saramaConfig.Producer.Compression = config.CompressionType
	saramaConfig.Producer.Retry.Max = config.RetryMax
	saramaConfig.Producer.Timeout = time.Duration(config.TimeoutMs) * time.Millisecond
	saramaConfig.Producer.Idempotent = true
	saramaConfig.Net.MaxOpenRequests = 1
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &KafkaBroadcaster{
		producer: producer,
		config:   config,
	}, nil
}

func (b *KafkaBroadcaster) SeatsLocked(ctx context.Context, seatsByTrip map[int64][]int64) error {
	return b.publish(&SeatEvent{Type: EventSeatsLocked, SeatsByTrip: seatsByTrip, OccurredAt: time.Now()})
}

func (b *KafkaBroadcaster) SeatsUnlocked(ctx context.Context, seatsByTrip map[int64][]int64) error {
	return b.publish(&SeatEvent{Type: EventSeatsUnlocked, SeatsByTrip: seatsByTrip, OccurredAt: time.Now()})
}

func (b *KafkaBroadcaster) SeatBooked(ctx context.Context, bookingID string, seatsByTrip map[int64][]int64) error {
	return b.publish(&SeatEvent{Type: EventSeatBooked, BookingID: bookingID, SeatsByTrip: seatsByTrip, OccurredAt: time.Now()})
}

func (b *KafkaBroadcaster) publish(event *SeatEvent) error {
	messageBytes, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal seat event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic:     b.config.SeatsTopic,
		Key:       sarama.StringEncoder(partitionKey(event)),
		Value:     sarama.ByteEncoder(messageBytes),
		Timestamp: event.OccurredAt,
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
			{Key: []byte("producer"), Value: []byte("busly-core")},
		},
	}

	if _, _, err := b.producer.SendMessage(message); err != nil {
		return fmt.Errorf("failed to publish seat event: %w", err)
	}
	return nil
}

// partitionKey picks one trip id as the hash key; multi-trip events land on
// the partition of the lowest trip.
func partitionKey(event *SeatEvent) string {
	var min int64
	for tripID := range event.SeatsByTrip {
		if min == 0 || tripID < min {
			min = tripID
		}
	}
	return strconv.FormatInt(min, 10)
}

// Close closes the Kafka producer.
func (b *KafkaBroadcaster) Close() error {
	if b.producer != nil {
		if err := b.producer.Close(); err != nil {
			return fmt.Errorf("failed to close Kafka producer: %w", err)
		}
	}
	return nil
}

// LogBroadcaster is the degraded mode used when Kafka is absent: events are
// logged and dropped.
type LogBroadcaster struct {
	log *logger.Logger
}

// NewLogBroadcaster creates a log-only broadcaster.
func NewLogBroadcaster(log *logger.Logger) *LogBroadcaster {
	if log == nil {
		log = logger.GetDefault()
	}
	return &LogBroadcaster{log: log}
}

func (b *LogBroadcaster) SeatsLocked(ctx context.Context, seatsByTrip map[int64][]int64) error {
	b.log.InfoContext(ctx, "seat event (no broker)", "type", EventSeatsLocked, "seats_by_trip", seatsByTrip)
	return nil
}

func (b *LogBroadcaster) SeatsUnlocked(ctx context.Context, seatsByTrip map[int64][]int64) error {
	b.log.InfoContext(ctx, "seat event (no broker)", "type", EventSeatsUnlocked, "seats_by_trip", seatsByTrip)
	return nil
}

func (b *LogBroadcaster) SeatBooked(ctx context.Context, bookingID string, seatsByTrip map[int64][]int64) error {
	b.log.InfoContext(ctx, "seat event (no broker)", "type", EventSeatBooked, "booking_id", bookingID, "seats_by_trip", seatsByTrip)
	return nil
}

func (b *LogBroadcaster) Close() error { return nil }
