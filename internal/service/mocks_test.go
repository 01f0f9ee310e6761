package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/briefly-app/briefly/internal/domain"
	"github.com/briefly-app/briefly/internal/llm"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockLLMClient is a mock of llm.Client
type MockLLMClient struct {
	mock.Mock
}

func (m *MockLLMClient) Call(ctx context.Context, req llm.Request) (*llm.Response, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.Response), args.Error(1)
}

// MockSummarizer is a mock of llm.Summarizer
type MockSummarizer struct {
	mock.Mock
}

func (m *MockSummarizer) Summarize(ctx context.Context, doc string) (string, error) {
	args := m.Called(ctx, doc)
	return args.String(0), args.Error(1)
}

// memStore is an in-memory store backing the unit-of-work fake. Repository
// behavior (not-found mapping, pending-handoff rejection, versioning)
// mirrors the real implementations so orchestrator tests exercise the same
// contracts.
type memStore struct {
	sessions map[uuid.UUID]*domain.InterviewSession
	messages []domain.Message
	handoffs map[uuid.UUID]*domain.Handoff
	projects map[uuid.UUID]*domain.Project
}

func newMemStore() *memStore {
	return &memStore{
		sessions: make(map[uuid.UUID]*domain.InterviewSession),
		handoffs: make(map[uuid.UUID]*domain.Handoff),
		projects: make(map[uuid.UUID]*domain.Project),
	}
}

type memSnapshot struct {
	Sessions map[uuid.UUID]*domain.InterviewSession
	Messages []domain.Message
	Handoffs []handoffRecord
	Projects map[uuid.UUID]*domain.Project
}

// handoffRecord carries the token hash, which Handoff's JSON tags hide
type handoffRecord struct {
	Handoff *domain.Handoff
	Hash    string
}

func (s *memStore) snapshot() []byte {
	snap := memSnapshot{
		Sessions: s.sessions,
		Messages: s.messages,
		Projects: s.projects,
	}
	for _, h := range s.handoffs {
		snap.Handoffs = append(snap.Handoffs, handoffRecord{Handoff: h, Hash: h.InviteTokenHash})
	}
	b, err := json.Marshal(snap)
	if err != nil {
		panic(err)
	}
	return b
}

func (s *memStore) restore(b []byte) {
	var snap memSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		panic(err)
	}
	s.sessions = snap.Sessions
	if s.sessions == nil {
		s.sessions = make(map[uuid.UUID]*domain.InterviewSession)
	}
	s.messages = snap.Messages
	s.handoffs = make(map[uuid.UUID]*domain.Handoff)
	for _, rec := range snap.Handoffs {
		rec.Handoff.InviteTokenHash = rec.Hash
		s.handoffs[rec.Handoff.ID] = rec.Handoff
	}
	s.projects = snap.Projects
	if s.projects == nil {
		s.projects = make(map[uuid.UUID]*domain.Project)
	}
}

// memUoW implements domain.UnitOfWork with snapshot/restore semantics: an
// error from fn rolls every mutation back, matching the real transaction.
type memUoW struct {
	store *memStore
}

func (u *memUoW) Do(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) error {
	snap := u.store.snapshot()
	err := fn(ctx, domain.Repositories{
		Sessions: &memSessions{s: u.store},
		Messages: &memMessages{s: u.store},
		Handoffs: &memHandoffs{s: u.store},
		Projects: &memProjects{s: u.store},
	})
	if err != nil {
		u.store.restore(snap)
	}
	return err
}

type memSessions struct{ s *memStore }

func (r *memSessions) Create(_ context.Context, sess *domain.InterviewSession) error {
	cp := *sess
	r.s.sessions[sess.ID] = &cp
	return nil
}

func (r *memSessions) Get(_ context.Context, id uuid.UUID) (*domain.InterviewSession, error) {
	sess, ok := r.s.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (r *memSessions) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.InterviewSession, error) {
	return r.Get(ctx, id)
}

func (r *memSessions) ListByProject(_ context.Context, projectID uuid.UUID) ([]domain.InterviewSession, error) {
	var out []domain.InterviewSession
	for _, sess := range r.s.sessions {
		if sess.ProjectID == projectID {
			out = append(out, *sess)
		}
	}
	return out, nil
}

func (r *memSessions) Update(_ context.Context, sess *domain.InterviewSession) error {
	if _, ok := r.s.sessions[sess.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *sess
	r.s.sessions[sess.ID] = &cp
	return nil
}

func (r *memSessions) NextVersion(_ context.Context, projectID uuid.UUID) (int, error) {
	max := 0
	for _, sess := range r.s.sessions {
		if sess.ProjectID == projectID && sess.Version > max {
			max = sess.Version
		}
	}
	return max + 1, nil
}

type memMessages struct{ s *memStore }

func (r *memMessages) Create(_ context.Context, m *domain.Message) error {
	r.s.messages = append(r.s.messages, *m)
	return nil
}

func (r *memMessages) ListBySession(_ context.Context, sessionID uuid.UUID, limit int) ([]domain.Message, error) {
	var out []domain.Message
	for _, m := range r.s.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memMessages) CountBySession(_ context.Context, sessionID uuid.UUID) (int, error) {
	count := 0
	for _, m := range r.s.messages {
		if m.SessionID == sessionID {
			count++
		}
	}
	return count, nil
}

func (r *memMessages) AttachImageAnalysis(_ context.Context, id uuid.UUID, analysis json.RawMessage) error {
	for i := range r.s.messages {
		if r.s.messages[i].ID == id {
			r.s.messages[i].ImageAnalysis = analysis
			return nil
		}
	}
	return domain.ErrNotFound
}

type memHandoffs struct{ s *memStore }

func (r *memHandoffs) Create(_ context.Context, h *domain.Handoff) error {
	now := time.Now()
	for _, existing := range r.s.handoffs {
		if existing.SessionID == h.SessionID && existing.Pending(now) {
			return domain.ErrHandoffPending
		}
	}
	cp := *h
	r.s.handoffs[h.ID] = &cp
	return nil
}

func (r *memHandoffs) Get(_ context.Context, id uuid.UUID) (*domain.Handoff, error) {
	h, ok := r.s.handoffs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *h
	return &cp, nil
}

func (r *memHandoffs) GetByTokenHash(_ context.Context, tokenHash string) (*domain.Handoff, error) {
	for _, h := range r.s.handoffs {
		if h.InviteTokenHash == tokenHash {
			cp := *h
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memHandoffs) LatestAccepted(_ context.Context, sessionID uuid.UUID) (*domain.Handoff, error) {
	var latest *domain.Handoff
	for _, h := range r.s.handoffs {
		if h.SessionID != sessionID || h.AcceptedAt == nil {
			continue
		}
		if latest == nil || h.AcceptedAt.After(*latest.AcceptedAt) {
			latest = h
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r *memHandoffs) Update(_ context.Context, h *domain.Handoff) error {
	if _, ok := r.s.handoffs[h.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *h
	r.s.handoffs[h.ID] = &cp
	return nil
}

type memProjects struct{ s *memStore }

func (r *memProjects) Create(_ context.Context, p *domain.Project) error {
	cp := *p
	r.s.projects[p.ID] = &cp
	return nil
}

func (r *memProjects) Get(_ context.Context, id uuid.UUID) (*domain.Project, error) {
	p, ok := r.s.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memProjects) Update(_ context.Context, p *domain.Project) error {
	if _, ok := r.s.projects[p.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *p
	r.s.projects[p.ID] = &cp
	return nil
}
