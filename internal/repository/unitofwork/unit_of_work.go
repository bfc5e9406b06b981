package unitofwork

import (
	"context"

	"studyrag-be/internal/repository/contract"
)

// UnitOfWork hands out repositories bound to one connection. Between Begin
// and Commit or Rollback they share a transaction.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	TopicRepository() contract.TopicRepository
	DocumentRepository() contract.DocumentRepository
	ChunkRepository() contract.ChunkRepository
	SummaryRepository() contract.SummaryRepository
	QuizRepository() contract.QuizRepository
}

type RepositoryFactory interface {
	NewUnitOfWork(ctx context.Context) UnitOfWork
}
