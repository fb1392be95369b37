package hendelse

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Publisher delivers hendelser to downstream consumers. Swap implementations
// without touching the services that emit.
type Publisher interface {
	Publiser(ctx context.Context, hendelse Hendelse) error
	Close()
}

// KafkaPublisher produces hendelser to a Kafka topic, keyed by deltaker id so
// all events for one deltaker stay ordered within a partition.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("ny kafka-klient: %w", err)
	}
	return &KafkaPublisher{client: client, topic: topic}, nil
}

func (p *KafkaPublisher) Publiser(ctx context.Context, h Hendelse) error {
	value, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("marshal hendelse: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(h.DeltakerID.String()),
		Value: value,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("publiser hendelse: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() {
	p.client.Close()
}

// MemoryPublisher captures hendelser in memory for tests and local runs
// without a broker.
type MemoryPublisher struct {
	mu        sync.Mutex
	hendelser []Hendelse
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publiser(_ context.Context, h Hendelse) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hendelser = append(p.hendelser, h)
	return nil
}

func (p *MemoryPublisher) Close() {}

// Hendelser returns a copy of everything published so far.
func (p *MemoryPublisher) Hendelser() []Hendelse {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Hendelse{}, p.hendelser...)
}
