package repository

import (
	"context"
	"fmt"
	"time"

	"ToneFX/internal/domain/models"
	pkgkafka "ToneFX/pkg/kafka"
	applogger "ToneFX/pkg/logger"
	"ToneFX/pkg/util"
)

// signalEvent is the wire shape handed to the backtest engine: one message
// per trading date carrying both books.
type signalEvent struct {
	Date  string   `json:"date"`
	Long  []string `json:"long"`
	Short []string `json:"short"`
}

// KafkaSignalPublisher implements SignalPublisher over the shared producer.
// Messages are keyed by date so one date's books always land in order on
// the same partition.
type KafkaSignalPublisher struct {
	producer *pkgkafka.Producer
	topic    string
	logger   *applogger.Logger
}

func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string, logger *applogger.Logger) *KafkaSignalPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic, logger: logger}
}

func (p *KafkaSignalPublisher) PublishSignals(ctx context.Context, long, short *models.SignalMatrix) error {
	if long == nil || short == nil {
		return fmt.Errorf("nil signal matrix")
	}
	if len(long.Dates) != len(short.Dates) {
		return fmt.Errorf("long and short books cover different dates: %d vs %d",
			len(long.Dates), len(short.Dates))
	}

	start := time.Now()
	messages := make([]pkgkafka.Message, 0, len(long.Dates))
	for i, d := range long.Dates {
		ev := signalEvent{
			Date:  d.Format(util.DateLayout),
			Long:  membersOf(long, i),
			Short: membersOf(short, i),
		}
		messages = append(messages, pkgkafka.Message{
			Key:   []byte(ev.Date),
			Value: ev,
		})
	}

	if err := p.producer.PublishBatch(ctx, p.topic, messages); err != nil {
		return fmt.Errorf("publish signals: %w", err)
	}
	if p.logger != nil {
		p.logger.Info("signals published",
			applogger.String("topic", p.topic),
			applogger.Int("dates", len(messages)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

func (p *KafkaSignalPublisher) Close() error {
	return p.producer.Close()
}

func membersOf(m *models.SignalMatrix, row int) []string {
	out := make([]string, 0, 8)
	for j, on := range m.Cells[row] {
		if on {
			out = append(out, m.Currencies[j])
		}
	}
	return out
}
