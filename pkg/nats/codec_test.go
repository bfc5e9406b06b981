package nats

import (
	"encoding/json"
	"testing"
	"time"

	"studyrag-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ev := events.BaseEvent{Type: events.TypeQuizGenerated, Data: map[string]interface{}{"quiz_id": "q1"}, OccurredAt: at}
	body, err := json.Marshal(envelope{Type: ev.Type, OccurredAt: ev.OccurredAt, Data: ev.Data})
	require.NoError(t, err)

	got, err := decode(Subject(ev.Type), body)
	require.NoError(t, err)
	assert.Equal(t, events.TypeQuizGenerated, got.EventType())
	assert.Equal(t, "q1", got.Payload()["quiz_id"])
	assert.True(t, at.Equal(got.Timestamp()))
}

func TestDecodeBarePayload(t *testing.T) {
	got, err := decode("events.summary.generated", []byte(`{"summary_id":"s1"}`))
	require.NoError(t, err)
	assert.Equal(t, events.TypeSummaryGenerated, got.EventType())
	assert.Equal(t, "s1", got.Payload()["summary_id"])
	assert.False(t, got.Timestamp().IsZero())
}

func TestDecodeGarbage(t *testing.T) {
	_, err := decode("events.x", []byte("not json"))
	assert.Error(t, err)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "events.quiz.generated", Subject(events.TypeQuizGenerated))
}
