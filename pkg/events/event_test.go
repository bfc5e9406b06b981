package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		event    BaseEvent
		wantType string
		wantKey  string
	}{
		{"ingested", DocumentIngested("t", "d", 4), TypeDocumentIngested, "chunks"},
		{"summary", SummaryGenerated("t", "s", "stuff", 3), TypeSummaryGenerated, "summary_id"},
		{"quiz", QuizGenerated("t", "q", 10), TypeQuizGenerated, "questions"},
		{"quiz failed", QuizFailed("t", "q", "empty context"), TypeQuizFailed, "reason"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.event.EventType())
			assert.Contains(t, tt.event.Payload(), tt.wantKey)
			assert.Equal(t, "t", tt.event.Payload()["topic_id"])
			assert.False(t, tt.event.Timestamp().IsZero())
		})
	}
}
