package search

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/thebtf/braindump/pkg/models"
	"github.com/thebtf/braindump/pkg/similarity"
)

// fakeStore answers similarity queries with in-memory cosine similarity.
type fakeStore struct {
	notes    map[string]*models.Note
	extra    []models.NoteMatch
	matchErr error
	getErr   error
	lastQ    models.MatchQuery
}

func (f *fakeStore) GetNote(_ context.Context, id string) (*models.Note, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.notes[id], nil
}

func (f *fakeStore) MatchNotes(_ context.Context, q models.MatchQuery) ([]models.NoteMatch, error) {
	f.lastQ = q
	if f.matchErr != nil {
		return nil, f.matchErr
	}
	var out []models.NoteMatch
	for _, n := range f.notes {
		if n.UserID != q.UserID || n.ID == q.ExcludeID || !n.HasEmbedding() {
			continue
		}
		sim := similarity.CosineSimilarity(q.Embedding, n.Embedding)
		if sim > q.Threshold {
			out = append(out, models.NoteMatch{ID: n.ID, Similarity: sim})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > q.Count {
		out = out[:q.Count]
	}
	return append(out, f.extra...), nil
}

func (f *fakeStore) GetNotesByIDs(_ context.Context, ids []string) ([]*models.Note, error) {
	var out []*models.Note
	for _, id := range ids {
		if n, ok := f.notes[id]; ok {
			out = append(out, n)
		}
	}
	return out, nil
}

type RetrieverSuite struct {
	suite.Suite
	store     *fakeStore
	retriever *Retriever
	ctx       context.Context
}

func TestRetrieverSuite(t *testing.T) {
	suite.Run(t, new(RetrieverSuite))
}

func (s *RetrieverSuite) SetupTest() {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	note := func(id, user, content string, emb []float32, age int) *models.Note {
		return &models.Note{ID: id, UserID: user, Content: content, Embedding: emb, CreatedAt: base.Add(time.Duration(age) * time.Hour)}
	}
	s.store = &fakeStore{notes: map[string]*models.Note{
		"src":    note("src", "u1", "Morning workout: running intervals", []float32{1, 0, 0}, 0),
		"close":  note("close", "u1", "Running shoes and workout gear", []float32{0.9, 0.1, 0}, 1),
		"tieOld": note("tieOld", "u1", "Evening workout", []float32{0.8, 0.6, 0}, 2),
		"tieNew": note("tieNew", "u1", "Stretch after running", []float32{0.8, 0.6, 0}, 3),
		"far":    note("far", "u1", "Quarterly budget", []float32{0, 0, 1}, 4),
		"other":  note("other", "u2", "Running club", []float32{1, 0, 0}, 5),
		"bare":   note("bare", "u1", "no embedding yet", nil, 6),
	}}
	s.retriever = NewRetriever(s.store, 0, DefaultMatchThreshold)
	s.ctx = context.Background()
}

func (s *RetrieverSuite) ids(r *Result) []string {
	out := make([]string, 0, len(r.RelatedNotes))
	for _, rn := range r.RelatedNotes {
		out = append(out, rn.Note.ID)
	}
	return out
}

func (s *RetrieverSuite) TestRelated_RanksAndBreaksTiesByRecency() {
	res, err := s.retriever.Related(s.ctx, Params{NoteID: "src", UserID: "u1"})
	s.Require().NoError(err)
	s.Equal("src", res.SourceNote.ID)
	s.Equal([]string{"close", "tieNew", "tieOld"}, s.ids(res))
	s.Equal(DefaultMatchCount, s.store.lastQ.Count)
	s.InDelta(DefaultMatchThreshold, s.store.lastQ.Threshold, 1e-9)
	s.Equal("src", s.store.lastQ.ExcludeID)
	s.Contains(res.CommonThemes, "running")
	s.Contains(res.CommonThemes, "workout")
}

func (s *RetrieverSuite) TestRelated_RefiltersBackendRows() {
	s.store.extra = []models.NoteMatch{
		{ID: "src", Similarity: 1},
		{ID: "far", Similarity: 0.1},
	}
	threshold := 0.5
	res, err := s.retriever.Related(s.ctx, Params{NoteID: "src", UserID: "u1", MatchThreshold: &threshold})
	s.Require().NoError(err)
	for _, rn := range res.RelatedNotes {
		s.NotEqual("src", rn.Note.ID)
		s.Greater(rn.Similarity, threshold)
	}
}

func TestNewRetriever_Defaults(t *testing.T) {
	store := &fakeStore{notes: map[string]*models.Note{
		"src":  {ID: "src", UserID: "u1", Content: "Morning run", Embedding: []float32{1, 0}},
		"weak": {ID: "weak", UserID: "u1", Content: "Evening walk", Embedding: []float32{0.1, 1}},
	}}

	r := NewRetriever(store, 0, 0)
	assert.Equal(t, DefaultMatchCount, r.defaultCount)
	assert.Zero(t, r.defaultThreshold)
	res, err := r.Related(context.Background(), Params{NoteID: "src", UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, res.RelatedNotes, 1)
	assert.Equal(t, "weak", res.RelatedNotes[0].Note.ID)

	assert.InDelta(t, DefaultMatchThreshold, NewRetriever(store, 3, 1).defaultThreshold, 1e-9)
	assert.InDelta(t, -0.5, NewRetriever(store, 3, -0.5).defaultThreshold, 1e-9)
}

func (s *RetrieverSuite) TestRelated_RespectsMatchCount() {
	res, err := s.retriever.Related(s.ctx, Params{NoteID: "src", UserID: "u1", MatchCount: 1})
	s.Require().NoError(err)
	s.Equal([]string{"close"}, s.ids(res))
}

func (s *RetrieverSuite) TestRelated_NoEmbeddingIsEmptySuccess() {
	res, err := s.retriever.Related(s.ctx, Params{NoteID: "bare", UserID: "u1"})
	s.Require().NoError(err)
	s.Empty(res.RelatedNotes)
	s.NotNil(res.RelatedNotes)
	s.Equal([]string{}, res.CommonThemes)
}

func (s *RetrieverSuite) TestRelated_NothingAboveThreshold() {
	threshold := 0.99
	res, err := s.retriever.Related(s.ctx, Params{NoteID: "far", UserID: "u1", MatchThreshold: &threshold})
	s.Require().NoError(err)
	s.Empty(res.RelatedNotes)
	s.Empty(res.CommonThemes)
}

func (s *RetrieverSuite) TestRelated_Errors() {
	_, err := s.retriever.Related(s.ctx, Params{NoteID: "src"})
	s.True(errors.Is(err, models.ErrValidation))

	_, err = s.retriever.Related(s.ctx, Params{NoteID: "missing", UserID: "u1"})
	s.True(errors.Is(err, models.ErrNotFound))

	_, err = s.retriever.Related(s.ctx, Params{NoteID: "other", UserID: "u1"})
	s.True(errors.Is(err, models.ErrNotFound))

	bad := 1.5
	_, err = s.retriever.Related(s.ctx, Params{NoteID: "src", UserID: "u1", MatchThreshold: &bad})
	s.True(errors.Is(err, models.ErrValidation))

	s.store.matchErr = errors.New("connection reset")
	_, err = s.retriever.Related(s.ctx, Params{NoteID: "src", UserID: "u1"})
	s.True(errors.Is(err, ErrRetrieval))
	s.False(errors.Is(err, models.ErrNotFound))
}

func TestSortRelated(t *testing.T) {
	now := time.Now()
	related := []models.RelatedNote{
		{Note: &models.Note{ID: "a", CreatedAt: now.Add(-time.Hour)}, Similarity: 0.5},
		{Note: &models.Note{ID: "b", CreatedAt: now}, Similarity: 0.5},
		{Note: &models.Note{ID: "c", CreatedAt: now}, Similarity: 0.9},
	}
	SortRelated(related)

	got := []string{related[0].Note.ID, related[1].Note.ID, related[2].Note.ID}
	assert.Equal(t, []string{"c", "b", "a"}, got)
}

func TestCommonThemes_EmptyWithoutRelated(t *testing.T) {
	themes := commonThemes(&models.Note{Content: "running running"}, nil)
	require.NotNil(t, themes)
	assert.Empty(t, themes)
}
