package events

import (
	"context"
	"time"
)

// Event types published on the bus. Subjects are "events.<type>".
const (
	TypeDocumentIngested = "document.ingested"
	TypeSummaryGenerated = "summary.generated"
	TypeQuizGenerated    = "quiz.generated"
	TypeQuizFailed       = "quiz.failed"
)

// Event defines the contract for all system events.
type Event interface {
	EventType() string
	Payload() map[string]interface{}
	Timestamp() time.Time
}

// Publisher sends events to whatever bus is configured.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string { return e.Type }

func (e BaseEvent) Payload() map[string]interface{} { return e.Data }

func (e BaseEvent) Timestamp() time.Time { return e.OccurredAt }

func New(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now().UTC()}
}

func DocumentIngested(topicID, documentID string, chunks int) BaseEvent {
	return New(TypeDocumentIngested, map[string]interface{}{
		"topic_id":    topicID,
		"document_id": documentID,
		"chunks":      chunks,
	})
}

func SummaryGenerated(topicID, summaryID, path string, generationCalls int) BaseEvent {
	return New(TypeSummaryGenerated, map[string]interface{}{
		"topic_id":         topicID,
		"summary_id":       summaryID,
		"path":             path,
		"generation_calls": generationCalls,
	})
}

func QuizGenerated(topicID, quizID string, questions int) BaseEvent {
	return New(TypeQuizGenerated, map[string]interface{}{
		"topic_id":  topicID,
		"quiz_id":   quizID,
		"questions": questions,
	})
}

func QuizFailed(topicID, quizID, reason string) BaseEvent {
	return New(TypeQuizFailed, map[string]interface{}{
		"topic_id": topicID,
		"quiz_id":  quizID,
		"reason":   reason,
	})
}
