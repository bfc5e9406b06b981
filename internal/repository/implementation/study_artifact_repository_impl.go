package implementation

import (
	"context"
	"errors"

	"studyrag-be/internal/entity"
	"studyrag-be/internal/mapper"
	"studyrag-be/internal/model"
	"studyrag-be/internal/repository/contract"
	"studyrag-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SummaryRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SummaryMapper
}

func NewSummaryRepository(db *gorm.DB) contract.SummaryRepository {
	return &SummaryRepositoryImpl{db: db, mapper: mapper.NewSummaryMapper()}
}

func (r *SummaryRepositoryImpl) Create(ctx context.Context, summary *entity.TopicSummary) error {
	m := r.mapper.ToModel(summary)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*summary = *r.mapper.ToEntity(m)
	return nil
}

func (r *SummaryRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.TopicSummary, error) {
	var m model.TopicSummary
	if err := applySpecifications(r.db.WithContext(ctx), specs...).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

type QuizRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.QuizMapper
}

func NewQuizRepository(db *gorm.DB) contract.QuizRepository {
	return &QuizRepositoryImpl{db: db, mapper: mapper.NewQuizMapper()}
}

func (r *QuizRepositoryImpl) Create(ctx context.Context, quiz *entity.Quiz) error {
	m := r.mapper.ToModel(quiz)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	quiz.Id = m.Id
	quiz.CreatedAt = m.CreatedAt
	return nil
}

func (r *QuizRepositoryImpl) Update(ctx context.Context, quiz *entity.Quiz) error {
	m := r.mapper.ToModel(quiz)
	return r.db.WithContext(ctx).Omit("Questions").Save(m).Error
}

func (r *QuizRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Quiz, error) {
	var m model.Quiz
	if err := applySpecifications(r.db.WithContext(ctx), specs...).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

// ReplaceQuestions expects to run inside a unit of work transaction.
func (r *QuizRepositoryImpl) ReplaceQuestions(ctx context.Context, quizId uuid.UUID, questions []entity.QuizQuestion) error {
	db := r.db.WithContext(ctx)
	old := db.Model(&model.QuizQuestion{}).Select("id").Where("quiz_id = ?", quizId)
	if err := db.Where("question_id IN (?)", old).Delete(&model.QuizOption{}).Error; err != nil {
		return err
	}
	if err := db.Where("quiz_id = ?", quizId).Delete(&model.QuizQuestion{}).Error; err != nil {
		return err
	}
	if len(questions) == 0 {
		return nil
	}

	rows := make([]model.QuizQuestion, len(questions))
	for i, q := range questions {
		qid := q.Id
		if qid == uuid.Nil {
			qid = uuid.New()
		}
		opts := make([]model.QuizOption, len(q.Options))
		for j, o := range q.Options {
			oid := o.Id
			if oid == uuid.Nil {
				oid = uuid.New()
			}
			opts[j] = model.QuizOption{Id: oid, QuestionId: qid, Label: o.Label, Text: o.Text, IsCorrect: o.IsCorrect}
		}
		rows[i] = model.QuizQuestion{Id: qid, QuizId: quizId, OrderIndex: i, Prompt: q.Prompt, Options: opts}
	}
	return db.Create(&rows).Error
}
