package service

import (
	"context"
	"sort"
	"sync"

	"studyrag-be/internal/entity"
	"studyrag-be/internal/repository/contract"
	"studyrag-be/internal/repository/specification"
	"studyrag-be/internal/repository/unitofwork"
	"studyrag-be/pkg/events"

	"github.com/google/uuid"
)

// store is an in-memory backing for every repository a unit of work hands
// out. Specifications are matched by type, not by SQL.
type store struct {
	mu        sync.Mutex
	topics    map[uuid.UUID]*entity.Topic
	documents map[uuid.UUID]*entity.Document
	chunks    []*entity.Chunk
	summaries []*entity.TopicSummary
	quizzes   map[uuid.UUID]*entity.Quiz
	questions map[uuid.UUID][]entity.QuizQuestion

	begins, commits, rollbacks int
	failChunkUpdate            error
}

func newStore() *store {
	return &store{
		topics:    map[uuid.UUID]*entity.Topic{},
		documents: map[uuid.UUID]*entity.Document{},
		quizzes:   map[uuid.UUID]*entity.Quiz{},
		questions: map[uuid.UUID][]entity.QuizQuestion{},
	}
}

func (s *store) addTopic(userId uuid.UUID) *entity.Topic {
	t := &entity.Topic{Id: uuid.New(), Name: "Biology", UserId: userId}
	s.topics[t.Id] = t
	return t
}

func (s *store) NewUnitOfWork(context.Context) unitofwork.UnitOfWork { return &fakeUoW{s: s} }

type fakeUoW struct{ s *store }

func (u *fakeUoW) Begin(context.Context) error { u.s.begins++; return nil }
func (u *fakeUoW) Commit() error               { u.s.commits++; return nil }
func (u *fakeUoW) Rollback() error             { u.s.rollbacks++; return nil }

func (u *fakeUoW) TopicRepository() contract.TopicRepository       { return topicRepo{u.s} }
func (u *fakeUoW) DocumentRepository() contract.DocumentRepository { return documentRepo{u.s} }
func (u *fakeUoW) ChunkRepository() contract.ChunkRepository       { return chunkRepo{u.s} }
func (u *fakeUoW) SummaryRepository() contract.SummaryRepository   { return summaryRepo{u.s} }
func (u *fakeUoW) QuizRepository() contract.QuizRepository         { return quizRepo{u.s} }

// criteria collects the filters the fakes understand.
type criteria struct {
	id, user, topic, document uuid.UUID
	activeOnly                bool
}

func match(specs []specification.Specification) criteria {
	var c criteria
	for _, spec := range specs {
		switch v := spec.(type) {
		case specification.ByID:
			c.id = v.ID
		case specification.UserOwnedBy:
			c.user = v.UserID
		case specification.ByTopicID:
			c.topic = v.TopicID
		case specification.ByDocumentID:
			c.document = v.DocumentID
		case specification.ActiveOnly:
			c.activeOnly = true
		}
	}
	return c
}

type topicRepo struct{ s *store }

func (r topicRepo) Create(_ context.Context, t *entity.Topic) error {
	r.s.topics[t.Id] = t
	return nil
}

func (r topicRepo) Update(_ context.Context, t *entity.Topic) error {
	r.s.topics[t.Id] = t
	return nil
}

func (r topicRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.s.topics, id)
	return nil
}

func (r topicRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Topic, error) {
	all, _ := r.FindAll(ctx, specs...)
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func (r topicRepo) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.Topic, error) {
	c := match(specs)
	var out []*entity.Topic
	for _, t := range r.s.topics {
		if c.id != uuid.Nil && t.Id != c.id {
			continue
		}
		if c.user != uuid.Nil && t.UserId != c.user {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type documentRepo struct{ s *store }

func (r documentRepo) Create(_ context.Context, d *entity.Document) error {
	r.s.documents[d.Id] = d
	return nil
}

func (r documentRepo) Update(_ context.Context, d *entity.Document) error {
	r.s.documents[d.Id] = d
	return nil
}

func (r documentRepo) FindOne(_ context.Context, specs ...specification.Specification) (*entity.Document, error) {
	c := match(specs)
	for _, d := range r.s.documents {
		if c.id == uuid.Nil || d.Id == c.id {
			return d, nil
		}
	}
	return nil, nil
}

func (r documentRepo) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.Document, error) {
	c := match(specs)
	var out []*entity.Document
	for _, d := range r.s.documents {
		if c.topic != uuid.Nil && d.TopicId != c.topic {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

type chunkRepo struct{ s *store }

func (r chunkRepo) CreateBulk(_ context.Context, chunks []*entity.Chunk) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.chunks = append(r.s.chunks, chunks...)
	return nil
}

func (r chunkRepo) DeleteByDocumentId(_ context.Context, documentId uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.chunks[:0]
	for _, c := range r.s.chunks {
		if c.DocumentId != documentId {
			kept = append(kept, c)
		}
	}
	r.s.chunks = kept
	return nil
}

func (r chunkRepo) SetActiveByDocumentId(_ context.Context, documentId uuid.UUID, active bool) (int64, error) {
	if r.s.failChunkUpdate != nil {
		return 0, r.s.failChunkUpdate
	}
	var n int64
	for _, c := range r.s.chunks {
		if c.DocumentId == documentId {
			c.IsActive = active
			n++
		}
	}
	return n, nil
}

func (r chunkRepo) filter(c criteria) []*entity.Chunk {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Chunk
	for _, ch := range r.s.chunks {
		if c.topic != uuid.Nil && ch.TopicId != c.topic {
			continue
		}
		if c.document != uuid.Nil && ch.DocumentId != c.document {
			continue
		}
		if c.activeOnly && !ch.IsActive {
			continue
		}
		out = append(out, ch)
	}
	return out
}

func (r chunkRepo) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.Chunk, error) {
	return r.filter(match(specs)), nil
}

func (r chunkRepo) Count(_ context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.filter(match(specs)))), nil
}

// SearchSimilarWithScore scores chunks by position; the fakes have no vectors.
func (r chunkRepo) SearchSimilarWithScore(_ context.Context, _ []float32, limit int, search contract.ChunkSearch) ([]*contract.ScoredChunk, error) {
	found := r.filter(criteria{topic: search.TopicId, document: search.DocumentId, activeOnly: search.OnlyActive})
	var out []*contract.ScoredChunk
	for i, c := range found {
		if i == limit {
			break
		}
		out = append(out, &contract.ScoredChunk{Chunk: c, Similarity: 1 - float64(i)*0.1})
	}
	return out, nil
}

type summaryRepo struct{ s *store }

func (r summaryRepo) Create(_ context.Context, summary *entity.TopicSummary) error {
	r.s.summaries = append(r.s.summaries, summary)
	return nil
}

func (r summaryRepo) FindOne(_ context.Context, specs ...specification.Specification) (*entity.TopicSummary, error) {
	c := match(specs)
	for i := len(r.s.summaries) - 1; i >= 0; i-- {
		if r.s.summaries[i].TopicId == c.topic {
			return r.s.summaries[i], nil
		}
	}
	return nil, nil
}

type quizRepo struct{ s *store }

func (r quizRepo) Create(_ context.Context, q *entity.Quiz) error {
	cp := *q
	r.s.quizzes[q.Id] = &cp
	return nil
}

func (r quizRepo) Update(_ context.Context, q *entity.Quiz) error {
	cp := *q
	cp.Questions = nil
	r.s.quizzes[q.Id] = &cp
	return nil
}

func (r quizRepo) FindOne(_ context.Context, specs ...specification.Specification) (*entity.Quiz, error) {
	q, ok := r.s.quizzes[match(specs).id]
	if !ok {
		return nil, nil
	}
	cp := *q
	cp.Questions = r.s.questions[q.Id]
	return &cp, nil
}

func (r quizRepo) ReplaceQuestions(_ context.Context, quizId uuid.UUID, questions []entity.QuizQuestion) error {
	r.s.questions[quizId] = questions
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type recordingQueue struct{ payloads [][]byte }

func (q *recordingQueue) Publish(_ context.Context, payload []byte) error {
	q.payloads = append(q.payloads, payload)
	return nil
}
