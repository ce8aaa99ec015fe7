package notes

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/thebtf/braindump/internal/activity"
	"github.com/thebtf/braindump/internal/clustering"
	"github.com/thebtf/braindump/internal/llm"
	"github.com/thebtf/braindump/pkg/models"
)

type memoryStore struct {
	mu     sync.Mutex
	notes  map[string]*models.Note
	failOn string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{notes: map[string]*models.Note{}}
}

func (m *memoryStore) fail(op string) error {
	if m.failOn == op {
		return errors.New(op + " failed")
	}
	return nil
}

func (m *memoryStore) CreateNote(_ context.Context, n *models.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("create"); err != nil {
		return err
	}
	m.notes[n.ID] = n.Clone()
	return nil
}

func (m *memoryStore) GetNote(_ context.Context, id string) (*models.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.notes[id]; ok {
		return n.Clone(), nil
	}
	return nil, nil
}

func (m *memoryStore) ListNotes(_ context.Context, userID string) ([]*models.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Note
	for _, n := range m.notes {
		if userID == "" || n.UserID == userID {
			out = append(out, n.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryStore) UpdateNote(_ context.Context, n *models.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.notes[n.ID]
	if !ok {
		return errors.New("missing note")
	}
	next := n.Clone()
	next.Embedding = existing.Embedding
	m.notes[n.ID] = next
	return nil
}

func (m *memoryStore) SetEmbedding(_ context.Context, id string, vec []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes[id].Embedding = vec
	return nil
}

func (m *memoryStore) DeleteNote(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.notes[id]
	delete(m.notes, id)
	return ok, nil
}

func (m *memoryStore) SetClusterLabels(_ context.Context, labels map[string]int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, label := range labels {
		if n, ok := m.notes[id]; ok {
			n.ClusterLabel = label
		}
	}
	return nil
}

// wordEmbedder embeds text by keyword so related texts land close together.
type wordEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (w *wordEmbedder) Model() string { return "words" }

func (w *wordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := w.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (w *wordEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	w.mu.Lock()
	w.calls++
	w.mu.Unlock()
	if w.err != nil {
		return nil, w.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec := make([]float32, models.EmbeddingDimensions)
		if strings.Contains(strings.ToLower(t), "gym") {
			vec[0] = 1
		} else {
			vec[1] = 1
		}
		vec[2] = float32(len(t)%7) / 100
		out[i] = vec
	}
	return out, nil
}

func (w *wordEmbedder) Calls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}

// promptProvider answers by recognising the system prompt.
type promptProvider struct {
	err error
}

func (p *promptProvider) IsAvailable() bool { return p.err == nil }

func (p *promptProvider) Complete(_ context.Context, req llm.ChatRequest) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	switch {
	case strings.Contains(req.System, "titles"):
		return "Morning Gym Plan.", nil
	case strings.Contains(req.System, "categories"):
		return "Health", nil
	case strings.Contains(req.System, "bullet"):
		return "- Lay out clothes the night before\n- Track sets in a log", nil
	default:
		return `{"tasks": ["stretch"], "recommended_task": "stretch", "reason": "quick win"}`, nil
	}
}

type recordingTracker struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingTracker) record(op, userID string) activity.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, op+":"+userID)
	return activity.Outcome{Op: op, UserID: userID, Succeeded: true}
}

func (r *recordingTracker) RecordNoteCreated(_ context.Context, userID string) activity.Outcome {
	return r.record("created", userID)
}

func (r *recordingTracker) RecordTaskCompleted(_ context.Context, userID string) activity.Outcome {
	return r.record("completed", userID)
}

func (r *recordingTracker) RecordTaskUncompleted(_ context.Context, userID string) activity.Outcome {
	return r.record("uncompleted", userID)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingPublisher) Publish(event, _ string, _ interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

type ServiceSuite struct {
	suite.Suite
	ctx       context.Context
	store     *memoryStore
	embedder  *wordEmbedder
	provider  *promptProvider
	tracker   *recordingTracker
	publisher *recordingPublisher
	svc       *Service
	now       time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = newMemoryStore()
	s.embedder = &wordEmbedder{}
	s.provider = &promptProvider{}
	s.tracker = &recordingTracker{}
	s.publisher = &recordingPublisher{}
	s.now = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	s.svc = NewService(Deps{
		Store:     s.store,
		Embedder:  s.embedder,
		Enricher:  llm.NewEnricher(s.provider),
		Clusterer: clustering.NewEngine(s.embedder, clustering.DefaultParams()),
		Tracker:   s.tracker,
		Publisher: s.publisher,
	})
	s.svc.SetClock(func() time.Time { return s.now })
}

func (s *ServiceSuite) create(in models.NoteInput) *models.Note {
	note, err := s.svc.Create(s.ctx, in)
	s.Require().NoError(err)
	return note
}

func (s *ServiceSuite) TestCreate_Plain() {
	note := s.create(models.NoteInput{UserID: "u1", Title: " Gym ", Content: "Leg day at the gym tomorrow"})

	s.NotEmpty(note.ID)
	s.Equal("Gym", note.Title)
	s.Equal(models.CategoryPersonal, note.Category)
	s.Equal(models.NoCluster, note.ClusterLabel)
	s.Empty(note.Insights)
	s.Len(note.Embedding, models.EmbeddingDimensions)
	s.Equal(s.now, note.CreatedAt)
	s.Equal([]string{"created:u1"}, s.tracker.events)
	s.Equal([]string{EventNoteCreated}, s.publisher.events)

	stored, err := s.svc.Get(s.ctx, note.ID)
	s.Require().NoError(err)
	s.Equal(note.Content, stored.Content)
}

func (s *ServiceSuite) TestCreate_Organize() {
	note := s.create(models.NoteInput{UserID: "u1", Content: "Leg day at the gym tomorrow", Organize: true})

	s.Equal("Morning Gym Plan", note.Title)
	s.Equal(models.CategoryHealth, note.Category)
	s.Equal([]string{"Lay out clothes the night before", "Track sets in a log"}, note.Insights)
}

func (s *ServiceSuite) TestCreate_OrganizeKeepsCallerCategoryAndTitle() {
	note := s.create(models.NoteInput{UserID: "u1", Title: "Legs", Category: "Work", Content: "Leg day at the gym tomorrow", Organize: true})

	s.Equal("Legs", note.Title)
	s.Equal(models.CategoryWork, note.Category)
	s.NotEmpty(note.Insights)
}

func (s *ServiceSuite) TestCreate_OrganizeFallbacks() {
	s.provider.err = errors.New("model down")

	note := s.create(models.NoteInput{UserID: "u1", Content: "Leg day at the gym tomorrow", Organize: true})

	s.Equal(models.UntitledNote, note.Title)
	s.Equal(models.CategoryPersonal, note.Category)
	s.Require().Len(note.Insights, 1)
	s.True(strings.HasPrefix(note.Insights[0], llm.InsightsUnavailablePrefix))
}

func (s *ServiceSuite) TestCreate_TasksCategoryMarksTask() {
	note := s.create(models.NoteInput{UserID: "u1", Content: "Pay the electricity bill", Category: "Tasks"})
	s.True(note.IsTask)
}

func (s *ServiceSuite) TestCreate_UnmeaningfulContentSkipsProviders() {
	note := s.create(models.NoteInput{UserID: "u1", Content: "aaaa", Organize: true})

	s.Nil(note.Embedding)
	s.Empty(note.Insights)
	s.Equal(models.UntitledNote, note.Title)
	s.Equal(models.CategoryPersonal, note.Category)
	s.Equal(0, s.embedder.Calls())
}

func (s *ServiceSuite) TestCreate_EmbeddingFailureStillStores() {
	s.embedder.err = errors.New("embedding down")

	note := s.create(models.NoteInput{UserID: "u1", Content: "Leg day at the gym tomorrow"})

	s.False(note.HasEmbedding())
	notes, err := s.svc.List(s.ctx, "u1")
	s.Require().NoError(err)
	s.Len(notes, 1)
}

func (s *ServiceSuite) TestCreate_PrivateSpansNeverEmbedded() {
	note := s.create(models.NoteInput{UserID: "u1", Content: "<private>gym code 1234</private>"})
	s.Nil(note.Embedding)
	s.Equal(0, s.embedder.Calls())
}

func (s *ServiceSuite) TestCreate_Validation() {
	_, err := s.svc.Create(s.ctx, models.NoteInput{UserID: "u1", Title: "  ", Content: ""})
	s.ErrorIs(err, models.ErrValidation)

	_, err = s.svc.Create(s.ctx, models.NoteInput{UserID: "u1", Content: "hello there", Category: "Chores"})
	s.ErrorIs(err, models.ErrValidation)

	s.Empty(s.store.notes)
	s.Empty(s.tracker.events)
}

func (s *ServiceSuite) TestCreate_StoreFailure() {
	s.store.failOn = "create"
	_, err := s.svc.Create(s.ctx, models.NoteInput{UserID: "u1", Content: "Leg day at the gym"})
	s.Error(err)
	s.Empty(s.tracker.events)
	s.Empty(s.publisher.events)
}

func (s *ServiceSuite) TestUpdate_TitleOnlyKeepsEmbeddingAndLabel() {
	note := s.create(models.NoteInput{UserID: "u1", Content: "Leg day at the gym tomorrow"})
	s.Require().NoError(s.store.SetClusterLabels(s.ctx, map[string]int{note.ID: 3}))
	calls := s.embedder.Calls()

	updated, err := s.svc.Update(s.ctx, note.ID, models.NoteUpdate{Title: models.Some("Legs")})
	s.Require().NoError(err)

	s.Equal("Legs", updated.Title)
	s.Equal(3, updated.ClusterLabel)
	s.Equal(note.Embedding, updated.Embedding)
	s.Equal(calls, s.embedder.Calls())
}

func (s *ServiceSuite) TestUpdate_ContentChangeReembedsAndResetsLabel() {
	note := s.create(models.NoteInput{UserID: "u1", Content: "Leg day at the gym tomorrow"})
	s.Require().NoError(s.store.SetClusterLabels(s.ctx, map[string]int{note.ID: 2}))
	s.now = s.now.Add(time.Hour)

	updated, err := s.svc.Update(s.ctx, note.ID, models.NoteUpdate{Content: models.Some("Call the bank about the mortgage")})
	s.Require().NoError(err)

	s.Equal(models.NoCluster, updated.ClusterLabel)
	s.Equal(s.now, updated.UpdatedAt)
	stored, _ := s.store.GetNote(s.ctx, note.ID)
	s.Require().Len(stored.Embedding, models.EmbeddingDimensions)
	s.Zero(stored.Embedding[0])
	s.Equal(float32(1), stored.Embedding[1])
}

func (s *ServiceSuite) TestUpdate_SameContentRepairsMissingEmbedding() {
	s.embedder.err = errors.New("embedding down")
	note := s.create(models.NoteInput{UserID: "u1", Content: "Leg day at the gym tomorrow"})
	s.Require().False(note.HasEmbedding())
	s.Require().NoError(s.store.SetClusterLabels(s.ctx, map[string]int{note.ID: 4}))
	s.embedder.err = nil
	calls := s.embedder.Calls()

	updated, err := s.svc.Update(s.ctx, note.ID, models.NoteUpdate{Content: models.Some(note.Content)})
	s.Require().NoError(err)

	s.Greater(s.embedder.Calls(), calls)
	s.Equal(4, updated.ClusterLabel)
	stored, _ := s.store.GetNote(s.ctx, note.ID)
	s.Require().Len(stored.Embedding, models.EmbeddingDimensions)
	s.Equal(float32(1), stored.Embedding[0])
}

func (s *ServiceSuite) TestUpdate_ContentToNoiseClearsEmbedding() {
	note := s.create(models.NoteInput{UserID: "u1", Title: "Gym", Content: "Leg day at the gym tomorrow"})

	_, err := s.svc.Update(s.ctx, note.ID, models.NoteUpdate{Content: models.Some("zzzz")})
	s.Require().NoError(err)

	stored, _ := s.store.GetNote(s.ctx, note.ID)
	s.Nil(stored.Embedding)
}

func (s *ServiceSuite) TestUpdate_Organize() {
	note := s.create(models.NoteInput{UserID: "u1", Content: "Leg day at the gym tomorrow"})

	updated, err := s.svc.Update(s.ctx, note.ID, models.NoteUpdate{Organize: true, IsTask: models.Some(true)})
	s.Require().NoError(err)

	s.Equal(models.CategoryHealth, updated.Category)
	s.Equal("Morning Gym Plan", updated.Title)
	s.True(updated.IsTask)
	s.NotEmpty(updated.Insights)
}

func (s *ServiceSuite) TestUpdate_Errors() {
	_, err := s.svc.Update(s.ctx, "missing", models.NoteUpdate{Title: models.Some("x")})
	s.ErrorIs(err, models.ErrNotFound)

	note := s.create(models.NoteInput{UserID: "u1", Title: "Gym"})
	_, err = s.svc.Update(s.ctx, note.ID, models.NoteUpdate{})
	s.ErrorIs(err, models.ErrValidation)

	_, err = s.svc.Update(s.ctx, note.ID, models.NoteUpdate{Title: models.Some("")})
	s.ErrorIs(err, models.ErrValidation)

	_, err = s.svc.Update(s.ctx, note.ID, models.NoteUpdate{Category: models.Some("Chores")})
	s.ErrorIs(err, models.ErrValidation)
}

func (s *ServiceSuite) TestDelete() {
	note := s.create(models.NoteInput{UserID: "u1", Title: "Gym"})

	s.Require().NoError(s.svc.Delete(s.ctx, note.ID))
	s.ErrorIs(s.svc.Delete(s.ctx, note.ID), models.ErrNotFound)
	_, err := s.svc.Get(s.ctx, note.ID)
	s.ErrorIs(err, models.ErrNotFound)
	s.Contains(s.publisher.events, EventNoteDeleted)
}

func (s *ServiceSuite) TestCompleteAndUncomplete() {
	note := s.create(models.NoteInput{UserID: "u1", Title: "Pay rent"})

	done, err := s.svc.Complete(s.ctx, note.ID)
	s.Require().NoError(err)
	s.True(done.IsTask)
	s.True(done.IsCompleted)
	s.Require().NotNil(done.CompletedAt)
	s.Equal(s.now, *done.CompletedAt)

	_, err = s.svc.Complete(s.ctx, note.ID)
	s.ErrorIs(err, models.ErrValidation)

	open, err := s.svc.Uncomplete(s.ctx, note.ID)
	s.Require().NoError(err)
	s.False(open.IsCompleted)
	s.Nil(open.CompletedAt)

	_, err = s.svc.Uncomplete(s.ctx, note.ID)
	s.ErrorIs(err, models.ErrValidation)

	s.Equal([]string{"created:u1", "completed:u1", "uncompleted:u1"}, s.tracker.events)
}

func (s *ServiceSuite) TestList() {
	s.create(models.NoteInput{UserID: "u1", Title: "One"})
	s.now = s.now.Add(time.Minute)
	s.create(models.NoteInput{UserID: "u2", Title: "Two"})

	mine, err := s.svc.List(s.ctx, "u1")
	s.Require().NoError(err)
	s.Len(mine, 1)

	all, err := s.svc.List(s.ctx, "")
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal("Two", all[0].Title)

	none, err := s.svc.List(s.ctx, "nobody")
	s.Require().NoError(err)
	s.NotNil(none)
	s.Empty(none)
}

func (s *ServiceSuite) TestClusterUser() {
	gym1 := s.create(models.NoteInput{UserID: "u1", Content: "Leg day at the gym"})
	gym2 := s.create(models.NoteInput{UserID: "u1", Content: "Gym session with squats"})
	bank1 := s.create(models.NoteInput{UserID: "u1", Content: "Call the bank about rates"})
	bank2 := s.create(models.NoteInput{UserID: "u1", Content: "Bank mortgage paperwork"})
	noise := s.create(models.NoteInput{UserID: "u1", Title: "Untitled", Content: "xxxx"})
	other := s.create(models.NoteInput{UserID: "u2", Content: "Gym membership renewal"})

	res, err := s.svc.ClusterUser(s.ctx, "u1")
	s.Require().NoError(err)

	s.Equal(5, res.Total)
	s.Equal(4, res.Labelled)
	s.Equal(2, res.Clusters)
	s.Empty(res.Skipped)
	s.NotContains(res.Labels, noise.ID)
	s.NotContains(res.Labels, other.ID)
	s.Equal(res.Labels[gym1.ID], res.Labels[gym2.ID])
	s.Equal(res.Labels[bank1.ID], res.Labels[bank2.ID])
	s.NotEqual(res.Labels[gym1.ID], res.Labels[bank1.ID])

	stored, _ := s.store.GetNote(s.ctx, gym1.ID)
	s.Equal(res.Labels[gym1.ID], stored.ClusterLabel)
	s.Contains(s.publisher.events, EventNotesClustered)
}

func (s *ServiceSuite) TestClusterUser_EmbeddingUnavailable() {
	s.embedder.err = errors.New("embedding down")
	s.create(models.NoteInput{UserID: "u1", Content: "Leg day at the gym"})
	s.create(models.NoteInput{UserID: "u1", Content: "Call the bank about rates"})

	res, err := s.svc.ClusterUser(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(0, res.Labelled)
	s.NotEmpty(res.Skipped)
}

func (s *ServiceSuite) TestClusterUser_RequiresUser() {
	_, err := s.svc.ClusterUser(s.ctx, " ")
	s.ErrorIs(err, models.ErrValidation)
}

func (s *ServiceSuite) TestAdvice() {
	advice, err := s.svc.Advice(s.ctx, "stretch, then email")
	s.Require().NoError(err)
	s.Equal("stretch", advice.RecommendedTask)

	_, err = s.svc.Advice(s.ctx, "  ")
	s.ErrorIs(err, models.ErrValidation)
}

func (s *ServiceSuite) TestProvidersAvailable() {
	embedder, languageModel := s.svc.ProvidersAvailable()
	s.True(embedder)
	s.True(languageModel)

	s.provider.err = errors.New("breaker open")
	_, languageModel = s.svc.ProvidersAvailable()
	s.False(languageModel)
}

func TestService_OptionalCollaborators(t *testing.T) {
	svc := NewService(Deps{Store: newMemoryStore()})
	embedder, languageModel := svc.ProvidersAvailable()
	assert.False(t, embedder)
	assert.False(t, languageModel)

	note, err := svc.Create(context.Background(), models.NoteInput{Content: "Leg day at the gym", Organize: true})
	require.NoError(t, err)
	assert.Nil(t, note.Embedding)
	assert.Equal(t, models.UntitledNote, note.Title)
	assert.Equal(t, models.CategoryPersonal, note.Category)

	res, err := svc.ClusterUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Skipped)
}

func TestProviderText(t *testing.T) {
	assert.Equal(t, "keep", providerText(&models.Note{Content: "keep <private>drop</private>"}))
	assert.Equal(t, "Title only", providerText(&models.Note{Title: "Title only"}))
}
