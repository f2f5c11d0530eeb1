package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// JournalEntry 訊息生命週期轉換的一筆記錄
type JournalEntry struct {
	MessageID string    `json:"message_id"`
	Event     string    `json:"event"` // sent / delivered / read
	Sender    string    `json:"sender,omitempty"`
	Receiver  string    `json:"receiver,omitempty"`
	At        time.Time `json:"at"`
}

// EventJournal 訊息生命週期日誌，best-effort，不影響投遞路徑
type EventJournal interface {
	Append(ctx context.Context, entry JournalEntry) error
}

type kafkaEventJournal struct {
	writer *kafka.Writer
}

// NewKafkaEventJournal create an EventJournal backed by a kafka topic
func NewKafkaEventJournal(writer *kafka.Writer) EventJournal {
	return &kafkaEventJournal{writer: writer}
}

func (j *kafkaEventJournal) Append(ctx context.Context, entry JournalEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return j.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(entry.MessageID),
		Value: data,
	})
}
