package dto

import (
	"time"

	"studyrag-be/pkg/rag/chat"
	"studyrag-be/pkg/rag/summarize"

	"github.com/google/uuid"
)

type CreateTopicRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
}

type TopicResponse struct {
	Id          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type PageText struct {
	Page int    `json:"page" validate:"gte=0"`
	Text string `json:"text"`
}

type IngestDocumentRequest struct {
	TopicId  uuid.UUID  `json:"topic_id" validate:"required"`
	FileName string     `json:"file_name" validate:"required,max=512"`
	Pages    []PageText `json:"pages" validate:"required,min=1,dive"`
}

type IngestDocumentResponse struct {
	Id     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

// DocumentIngestMessage is the payload of the ingestion queue.
type DocumentIngestMessage struct {
	DocumentId uuid.UUID  `json:"document_id"`
	TopicId    uuid.UUID  `json:"topic_id"`
	FileName   string     `json:"file_name"`
	Pages      []PageText `json:"pages"`
}

type SetDocumentActiveRequest struct {
	Id       uuid.UUID
	IsActive *bool `json:"is_active" validate:"required"`
}

type SetDocumentActiveResponse struct {
	Id            uuid.UUID `json:"id"`
	IsActive      bool      `json:"is_active"`
	ChunksUpdated int64     `json:"chunks_updated"`
}

type ChatAnswerRequest struct {
	SessionId   string           `json:"session_id"`
	TopicId     uuid.UUID        `json:"topic_id" validate:"required"`
	DocumentId  *uuid.UUID       `json:"document_id"`
	Question    string           `json:"question" validate:"required"`
	Preferences chat.Preferences `json:"preferences"`
}

type ChatAnswerResponse struct {
	SessionId      string            `json:"session_id"`
	Answer         string            `json:"answer"`
	Contexts       []chat.ContextRef `json:"contexts"`
	EmptyContext   bool              `json:"empty_context"`
	RerankStrategy string            `json:"rerank_strategy,omitempty"`
}

type SummarizeTopicRequest struct {
	TopicId     uuid.UUID
	Preferences summarize.Preferences `json:"preferences"`
}

type TopicSummaryResponse struct {
	Id          uuid.UUID              `json:"id"`
	TopicId     uuid.UUID              `json:"topic_id"`
	Short       string                 `json:"short"`
	Long        string                 `json:"long"`
	KeyConcepts string                 `json:"key_concepts"`
	Path        string                 `json:"path"`
	Stats       map[string]interface{} `json:"stats"`
	CreatedAt   time.Time              `json:"created_at"`
}

type GenerateQuizRequest struct {
	TopicId    uuid.UUID `json:"topic_id" validate:"required"`
	Scope      string    `json:"scope"`
	Count      int       `json:"count" validate:"omitempty,gte=1,lte=50"`
	Difficulty string    `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Mode       string    `json:"mode" validate:"omitempty,oneof=multiquery hyde both"`
}

type QuizOptionResponse struct {
	OptionId  string `json:"option_id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

type QuizQuestionResponse struct {
	Id      uuid.UUID            `json:"id"`
	Prompt  string               `json:"prompt"`
	Options []QuizOptionResponse `json:"options"`
}

type QuizResponse struct {
	Id           uuid.UUID              `json:"id"`
	TopicId      uuid.UUID              `json:"topic_id"`
	Status       string                 `json:"status"`
	Difficulty   string                 `json:"difficulty"`
	Length       int                    `json:"length"`
	Scope        string                 `json:"scope"`
	Mode         string                 `json:"mode"`
	ContextDocs  int                    `json:"context_docs"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Questions    []QuizQuestionResponse `json:"questions"`
	CreatedAt    time.Time              `json:"created_at"`
}
