package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/atlasd/internal/config"
)

type fakeStore struct {
	hits    []Result
	err     error
	gotK    int
	gotText string
}

func (f *fakeStore) Add(ctx context.Context, docs []Document) error { return nil }

func (f *fakeStore) Search(ctx context.Context, query string, k int) ([]Result, error) {
	f.gotText = query
	f.gotK = k
	if f.err != nil {
		return nil, f.err
	}
	if len(f.hits) > k {
		return f.hits[:k], nil
	}
	return f.hits, nil
}

func (f *fakeStore) Close() error { return nil }

func newTestService(t *testing.T, fs *fakeStore, k int, threshold float32) *Service {
	t.Helper()
	svc, err := NewService(fs, config.RetrievalConfig{K: k, ScoreThreshold: threshold}, zap.NewNop())
	require.NoError(t, err)
	return svc
}

func TestService_Retrieve_ThresholdAndTruncation(t *testing.T) {
	fs := &fakeStore{hits: []Result{
		{ID: "spaces-0", Content: "room Meeting Alpha floor 3", Source: "spaces", Score: 0.90},
		{ID: "spaces-1", Content: "room Meeting Beta floor 3", Source: "spaces", Score: 0.80},
		{ID: "zones-0", Content: "zone west pantry", Source: "zones_30d", Score: 0.30},
		{ID: "zones-1", Content: "zone east focus", Source: "zones_30d", Score: 0.10}, // below threshold
	}}
	svc := newTestService(t, fs, 2, 0.25)

	passages, err := svc.Retrieve(context.Background(), "meeting rooms on floor 3")
	require.NoError(t, err)

	// Over-fetched 3x the configured k.
	assert.Equal(t, 6, fs.gotK)

	// Weak hit dropped, survivors truncated to k.
	require.Len(t, passages, 2)
	for _, p := range passages {
		assert.NotEqual(t, "zones-1", p.ChunkID)
	}
	assert.Equal(t, "spaces-0", passages[0].ChunkID)
	assert.Equal(t, "spaces", passages[0].Source)
}

func TestService_Retrieve_EmptyIndexIsNotAnError(t *testing.T) {
	svc := newTestService(t, &fakeStore{}, 8, 0.25)

	passages, err := svc.Retrieve(context.Background(), "anything at all")
	require.NoError(t, err)
	assert.Empty(t, passages)
}

func TestService_Retrieve_AllBelowThreshold(t *testing.T) {
	fs := &fakeStore{hits: []Result{
		{ID: "a", Content: "noise", Score: 0.05},
		{ID: "b", Content: "more noise", Score: 0.10},
	}}
	svc := newTestService(t, fs, 8, 0.25)

	passages, err := svc.Retrieve(context.Background(), "utilization by floor")
	require.NoError(t, err)
	assert.Empty(t, passages)
}

func TestService_Retrieve_SearchErrorPropagates(t *testing.T) {
	fs := &fakeStore{err: ErrCollectionNotFound}
	svc := newTestService(t, fs, 8, 0.25)

	_, err := svc.Retrieve(context.Background(), "anything")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCollectionNotFound))
}

func TestService_Retrieve_EmptyQuestionRejected(t *testing.T) {
	svc := newTestService(t, &fakeStore{}, 8, 0.25)

	_, err := svc.Retrieve(context.Background(), "")
	require.Error(t, err)
}

func TestNewService_Validation(t *testing.T) {
	_, err := NewService(nil, config.RetrievalConfig{K: 8}, zap.NewNop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	// Zero K falls back to a sane default instead of erroring.
	svc, err := NewService(&fakeStore{}, config.RetrievalConfig{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 8, svc.k)
}
