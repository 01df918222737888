package events

import (
	"context"
	"errors"
	"testing"

	json "github.com/goccy/go-json"
	sdk "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DivyanshMauryaaa/testgem/internal/store"
)

type fakeWriter struct {
	messages []sdk.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...sdk.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublishKeysByRecord(t *testing.T) {
	w := &fakeWriter{}
	k := &Kafka{writer: w}

	err := k.Publish(context.Background(), Event{
		Type:     RecordDeleted,
		Kind:     store.KindNotes,
		RecordID: "note-1",
		UserID:   "user-1",
	})
	require.NoError(t, err)
	require.Len(t, w.messages, 1)
	assert.Equal(t, "note-1", string(w.messages[0].Key))

	var got Event
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &got))
	assert.Equal(t, RecordDeleted, got.Type)
	assert.Equal(t, store.KindNotes, got.Kind)
	assert.Equal(t, "user-1", got.UserID)
	assert.NotEmpty(t, got.ID)
	assert.False(t, got.At.IsZero())

	require.NoError(t, k.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublishError(t *testing.T) {
	k := &Kafka{writer: &fakeWriter{err: errors.New("broker down")}}
	err := k.Publish(context.Background(), Event{Type: RecordCreated, RecordID: "x"})
	assert.ErrorContains(t, err, "record.created")
}

func TestNewKafkaValidates(t *testing.T) {
	_, err := NewKafka(nil, "topic")
	assert.Error(t, err)
	_, err = NewKafka([]string{"localhost:9092"}, "")
	assert.Error(t, err)

	k, err := NewKafka([]string{"localhost:9092"}, "testgem.records")
	require.NoError(t, err)
	assert.NoError(t, k.Close())
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.Publish(context.Background(), Event{}))
	assert.NoError(t, p.Close())
}
