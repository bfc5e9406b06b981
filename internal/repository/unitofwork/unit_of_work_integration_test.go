package unitofwork_test

import (
	"context"
	"log"
	"os"
	"testing"

	"studyrag-be/internal/entity"
	"studyrag-be/internal/model"
	"studyrag-be/internal/repository/contract"
	"studyrag-be/internal/repository/specification"
	"studyrag-be/internal/repository/unitofwork"
	"studyrag-be/pkg/database"
	"studyrag-be/pkg/embedding"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTx connects to DB_CONNECTION_STRING and returns a unit of work inside
// a transaction that is rolled back when the test ends.
func openTx(t *testing.T) unitofwork.UnitOfWork {
	t.Helper()
	if err := godotenv.Load("../../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}
	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(dsn, database.Options{})
	require.NoError(t, err)
	require.NoError(t, database.EnsureVectorExtension(db))
	require.NoError(t, db.AutoMigrate(
		&model.Topic{}, &model.Document{}, &model.Chunk{},
		&model.TopicSummary{}, &model.Quiz{}, &model.QuizQuestion{}, &model.QuizOption{},
	))

	ctx := context.Background()
	uow := unitofwork.NewRepositoryFactory(db).NewUnitOfWork(ctx)
	require.NoError(t, uow.Begin(ctx))
	assert.ErrorIs(t, uow.Begin(ctx), unitofwork.ErrTxActive)
	t.Cleanup(func() { _ = uow.Rollback() })
	return uow
}

func axis(i int) []float32 {
	v := make([]float32, embedding.Dimension)
	v[i] = 1
	return v
}

func TestChunkLifecycle(t *testing.T) {
	uow := openTx(t)
	ctx := context.Background()

	topic := &entity.Topic{Id: uuid.New(), Name: "Biology", UserId: uuid.New()}
	require.NoError(t, uow.TopicRepository().Create(ctx, topic))
	doc := &entity.Document{Id: uuid.New(), TopicId: topic.Id, FileName: "cells.pdf", Status: model.DocumentStatusPending, IsActive: true}
	require.NoError(t, uow.DocumentRepository().Create(ctx, doc))

	chunks := []*entity.Chunk{
		{Id: uuid.New(), TopicId: topic.Id, DocumentId: doc.Id, FileName: doc.FileName, Page: 1, ChunkIndex: 0, Content: "mitosis", Embedding: axis(0), IsActive: true},
		{Id: uuid.New(), TopicId: topic.Id, DocumentId: doc.Id, FileName: doc.FileName, Page: 2, ChunkIndex: 1, Content: "ribosomes", Embedding: axis(1), IsActive: true},
	}
	require.NoError(t, uow.ChunkRepository().CreateBulk(ctx, chunks))

	found, err := uow.TopicRepository().FindOne(ctx, specification.ByID{ID: topic.Id}, specification.UserOwnedBy{UserID: topic.UserId})
	require.NoError(t, err)
	require.NotNil(t, found)

	scored, err := uow.ChunkRepository().SearchSimilarWithScore(ctx, axis(1), 5, contract.ChunkSearch{TopicId: topic.Id, OnlyActive: true})
	require.NoError(t, err)
	require.Len(t, scored, 2)
	assert.Equal(t, "ribosomes", scored[0].Chunk.Content)
	assert.InDelta(t, 1.0, scored[0].Similarity, 1e-6)
	assert.InDelta(t, 0.0, scored[1].Similarity, 1e-6)

	n, err := uow.ChunkRepository().SetActiveByDocumentId(ctx, doc.Id, false)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	active, err := uow.ChunkRepository().Count(ctx, specification.ByTopicID{TopicID: topic.Id}, specification.ActiveOnly{})
	require.NoError(t, err)
	assert.Zero(t, active)

	ordered, err := uow.ChunkRepository().FindAll(ctx, specification.ByTopicID{TopicID: topic.Id}, specification.ChunkReadingOrder{})
	require.NoError(t, err)
	assert.Equal(t, []string{"mitosis", "ribosomes"}, []string{ordered[0].Content, ordered[1].Content})
}

func TestQuizQuestionsReplace(t *testing.T) {
	uow := openTx(t)
	ctx := context.Background()

	topic := &entity.Topic{Id: uuid.New(), Name: "Biology", UserId: uuid.New()}
	require.NoError(t, uow.TopicRepository().Create(ctx, topic))
	quiz := &entity.Quiz{Id: uuid.New(), TopicId: topic.Id, Status: model.QuizStatusProcessing, Difficulty: "medium", Length: 2}
	require.NoError(t, uow.QuizRepository().Create(ctx, quiz))

	question := func(prompt string) entity.QuizQuestion {
		return entity.QuizQuestion{Prompt: prompt, Options: []entity.QuizOption{
			{Label: "B", Text: "wrong"},
			{Label: "A", Text: "right", IsCorrect: true},
		}}
	}
	require.NoError(t, uow.QuizRepository().ReplaceQuestions(ctx, quiz.Id, []entity.QuizQuestion{question("first"), question("second")}))
	require.NoError(t, uow.QuizRepository().ReplaceQuestions(ctx, quiz.Id, []entity.QuizQuestion{question("only")}))

	quiz.Status = model.QuizStatusReady
	require.NoError(t, uow.QuizRepository().Update(ctx, quiz))

	got, err := uow.QuizRepository().FindOne(ctx, specification.ByID{ID: quiz.Id}, specification.WithQuestions{})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.QuizStatusReady, got.Status)
	require.Len(t, got.Questions, 1)
	assert.Equal(t, "only", got.Questions[0].Prompt)
	assert.Equal(t, "A", got.Questions[0].Options[0].Label)
}
