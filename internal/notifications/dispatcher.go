package notifications

import (
	"context"
	"sync"
	"time"

	"carequeue/internal/shared/config"
	"carequeue/pkg/logger"

	"github.com/IBM/sarama"
	"github.com/cockroachdb/errors"
)

// Dispatcher hands notifications to the delivery pipeline.
type Dispatcher interface {
	Dispatch(ctx context.Context, n *Notification) error
	Close() error
}

// KafkaDispatcher publishes notifications to a Kafka topic.
type KafkaDispatcher struct {
	producer sarama.SyncProducer
	topic    string
	log      *logger.Logger
}

// NewSaramaConfig returns the producer settings used for notification topics.
func NewSaramaConfig(cfg config.KafkaConfig) *sarama.Config {
	sc := sarama.NewConfig()
	sc.ClientID = cfg.ClientID
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Compression = sarama.CompressionSnappy
	sc.Producer.Retry.Max = cfg.MaxRetry
	sc.Producer.Timeout = 10 * time.Second
	sc.Producer.Idempotent = true
	sc.Net.MaxOpenRequests = 1
	sc.Producer.Partitioner = sarama.NewHashPartitioner
	return sc
}

// NewKafkaDispatcher connects a sync producer to the configured brokers.
func NewKafkaDispatcher(cfg config.KafkaConfig, log *logger.Logger) (*KafkaDispatcher, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, NewSaramaConfig(cfg))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Kafka producer")
	}
	return NewKafkaDispatcherWithProducer(producer, cfg.Topic, log), nil
}

func NewKafkaDispatcherWithProducer(producer sarama.SyncProducer, topic string, log *logger.Logger) *KafkaDispatcher {
	if log == nil {
		log = logger.GetDefault()
	}
	return &KafkaDispatcher{producer: producer, topic: topic, log: log}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, n *Notification) error {
	payload, err := n.ToJSON()
	if err != nil {
		return errors.Wrap(err, "failed to marshal notification")
	}

	msg := &sarama.ProducerMessage{
		Topic:     d.topic,
		Key:       sarama.StringEncoder(n.PartitionKey()),
		Value:     sarama.ByteEncoder(payload),
		Headers:   headers(n),
		Timestamp: n.CreatedAt,
	}

	partition, offset, err := d.producer.SendMessage(msg)
	if err != nil {
		return errors.Wrapf(err, "failed to publish %s notification", n.Type)
	}

	d.log.DebugContext(ctx, "notification published",
		"topic", d.topic, "partition", partition, "offset", offset,
		"type", n.Type, "recipient_id", n.RecipientID)
	return nil
}

func headers(n *Notification) []sarama.RecordHeader {
	h := []sarama.RecordHeader{
		{Key: []byte("notification_id"), Value: []byte(n.ID.String())},
		{Key: []byte("notification_type"), Value: []byte(n.Type)},
		{Key: []byte("priority"), Value: []byte(n.Priority)},
		{Key: []byte("recipient_id"), Value: []byte(n.RecipientID.String())},
		{Key: []byte("daycare_id"), Value: []byte(n.DaycareID.String())},
		{Key: []byte("producer"), Value: []byte("carequeue")},
	}
	if n.OfferID != nil {
		h = append(h, sarama.RecordHeader{Key: []byte("offer_id"), Value: []byte(n.OfferID.String())})
	}
	if n.ExpiresAt != nil {
		h = append(h, sarama.RecordHeader{Key: []byte("expires_at"), Value: []byte(n.ExpiresAt.Format(time.RFC3339))})
	}
	return h
}

func (d *KafkaDispatcher) Close() error {
	if d.producer == nil {
		return nil
	}
	return errors.Wrap(d.producer.Close(), "failed to close Kafka producer")
}

// LogDispatcher writes notifications to the log; used when Kafka is disabled.
type LogDispatcher struct {
	log *logger.Logger
}

func NewLogDispatcher(log *logger.Logger) *LogDispatcher {
	if log == nil {
		log = logger.GetDefault()
	}
	return &LogDispatcher{log: log}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, n *Notification) error {
	d.log.InfoContext(ctx, "notification",
		"type", n.Type, "recipient_id", n.RecipientID, "subject", n.Subject)
	return nil
}

func (d *LogDispatcher) Close() error { return nil }

// MemoryDispatcher records notifications in memory.
type MemoryDispatcher struct {
	mu   sync.Mutex
	sent []*Notification
	Err  error
}

func NewMemoryDispatcher() *MemoryDispatcher {
	return &MemoryDispatcher{}
}

func (d *MemoryDispatcher) Dispatch(_ context.Context, n *Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return d.Err
	}
	d.sent = append(d.sent, n)
	return nil
}

func (d *MemoryDispatcher) Close() error { return nil }

// Sent returns a copy of what has been dispatched.
func (d *MemoryDispatcher) Sent() []*Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Notification(nil), d.sent...)
}

// OfType filters Sent by type.
func (d *MemoryDispatcher) OfType(t NotificationType) []*Notification {
	var out []*Notification
	for _, n := range d.Sent() {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}
