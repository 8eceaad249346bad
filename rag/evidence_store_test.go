package rag

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/BaSui01/adaptiverag/testutil"
	"github.com/BaSui01/adaptiverag/testutil/fixtures"
	"github.com/BaSui01/adaptiverag/testutil/mocks"
	"github.com/BaSui01/adaptiverag/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// corpusIndex 用 embedder 为 docs 构建索引
func corpusIndex(embedder *mocks.MockEmbedder, docs []types.Document) *Index {
	idx := &Index{
		Manifest: IndexManifest{
			FormatVersion:  IndexFormatVersion,
			EmbeddingModel: embedder.Model(),
			Dimensions:     embedder.Dimensions(),
			ChunkSize:      500,
			ChunkOverlap:   50,
			ChunkCount:     len(docs),
		},
	}
	for i, d := range docs {
		idx.Chunks = append(idx.Chunks, Chunk{
			ID:        chunkID(d.Source(), i, d.PageContent),
			Document:  d.Clone(),
			Embedding: embedder.Vector(d.PageContent),
		})
		idx.Manifest.Sources = append(idx.Manifest.Sources, d.Source())
	}
	return idx
}

func newTestEvidenceStore(t *testing.T, embedder *mocks.MockEmbedder, topK int) *EvidenceStore {
	t.Helper()
	es, err := NewEvidenceStore(EvidenceStoreConfig{IndexPath: t.TempDir(), TopK: topK}, embedder, zaptest.NewLogger(t))
	require.NoError(t, err)
	return es
}

func TestNewEvidenceStore_Validation(t *testing.T) {
	_, err := NewEvidenceStore(EvidenceStoreConfig{IndexPath: "x"}, nil, nil)
	testutil.AssertErrorCode(t, err, types.ErrConfiguration)

	_, err = NewEvidenceStore(EvidenceStoreConfig{}, mocks.NewMockEmbedder(8), nil)
	testutil.AssertErrorCode(t, err, types.ErrConfiguration)

	es, err := NewEvidenceStore(EvidenceStoreConfig{IndexPath: "x"}, mocks.NewMockEmbedder(8), nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, es.TopK())
	assert.Equal(t, IndexIdentity{Model: "mock-embed", Dimensions: 8}, es.Identity())
}

func TestEvidenceStore_RetrieveBeforeIngest(t *testing.T) {
	es := newTestEvidenceStore(t, mocks.NewMockEmbedder(32), 0)

	_, err := es.Retrieve(context.Background(), "agent memory")
	testutil.AssertErrorCode(t, err, types.ErrEvidenceStoreUnavailable)
	assert.Contains(t, err.Error(), "no evidence index")

	testutil.AssertErrorCode(t, es.Check(context.Background()), types.ErrEvidenceStoreUnavailable)
	_, ok := es.Manifest()
	assert.False(t, ok)
}

func TestEvidenceStore_ReplaceAndRetrieve(t *testing.T) {
	embedder := mocks.NewMockEmbedder(128)
	es := newTestEvidenceStore(t, embedder, 2)

	require.NoError(t, es.Replace(context.Background(), corpusIndex(embedder, fixtures.AgentPosts)))

	docs, err := es.Retrieve(context.Background(), "agent short-term memory and long-term memory")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, fixtures.AgentPosts[0].PageContent, docs[0].PageContent)
	assert.Equal(t, fixtures.AgentPosts[0].Source(), docs[0].Source())

	m, ok := es.Manifest()
	require.True(t, ok)
	assert.Equal(t, 3, m.ChunkCount)
	assert.FileExists(t, IndexFile(es.IndexPath()))

	// 返回的是副本
	docs[0].Metadata["source"] = "tampered"
	again, err := es.Retrieve(context.Background(), "agent short-term memory and long-term memory")
	require.NoError(t, err)
	assert.Equal(t, fixtures.AgentPosts[0].Source(), again[0].Source())
}

func TestEvidenceStore_LazyLoadFromDisk(t *testing.T) {
	embedder := mocks.NewMockEmbedder(128)
	dir := t.TempDir()
	require.NoError(t, SaveIndex(context.Background(), dir, corpusIndex(embedder, fixtures.AgentPosts), nil))

	es, err := NewEvidenceStore(EvidenceStoreConfig{IndexPath: dir, TopK: 1}, embedder, nil)
	require.NoError(t, err)
	_, ok := es.Manifest()
	assert.False(t, ok)

	docs, err := es.Retrieve(context.Background(), "jailbreak prompts adversarial attacks")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, fixtures.AgentPosts[2].PageContent, docs[0].PageContent)

	m, ok := es.Manifest()
	require.True(t, ok)
	assert.Len(t, m.Sources, 3)
}

func TestEvidenceStore_IdentityMismatchOnLoad(t *testing.T) {
	dir := t.TempDir()
	built := mocks.NewMockEmbedder(16)
	require.NoError(t, SaveIndex(context.Background(), dir, corpusIndex(built, fixtures.AgentPosts), nil))

	es, err := NewEvidenceStore(EvidenceStoreConfig{IndexPath: dir}, mocks.NewMockEmbedder(16).WithModel("other-embed"), nil)
	require.NoError(t, err)
	_, err = es.Retrieve(context.Background(), "q")
	testutil.AssertErrorCode(t, err, types.ErrEvidenceStoreUnavailable)
	assert.Contains(t, err.Error(), "mock-embed/16")
	assert.Contains(t, err.Error(), "other-embed/16")
}

func TestEvidenceStore_ReplaceRejectsForeignIdentity(t *testing.T) {
	es := newTestEvidenceStore(t, mocks.NewMockEmbedder(16), 0)
	err := es.Replace(context.Background(), corpusIndex(mocks.NewMockEmbedder(32), fixtures.AgentPosts))
	testutil.AssertErrorCode(t, err, types.ErrInternalError)

	err = es.Replace(context.Background(), nil)
	testutil.AssertErrorCode(t, err, types.ErrInvalidRequest)
}

func TestEvidenceStore_FailedLoadIsRetried(t *testing.T) {
	embedder := mocks.NewMockEmbedder(64)
	es := newTestEvidenceStore(t, embedder, 0)

	_, err := es.Retrieve(context.Background(), "q")
	require.Error(t, err)

	require.NoError(t, SaveIndex(context.Background(), es.IndexPath(), corpusIndex(embedder, fixtures.AgentPosts), nil))
	require.NoError(t, es.Check(context.Background()))
	docs, err := es.Retrieve(context.Background(), "q")
	require.NoError(t, err)
	assert.Len(t, docs, 3)
}

func TestEvidenceStore_Reload(t *testing.T) {
	embedder := mocks.NewMockEmbedder(64)
	es := newTestEvidenceStore(t, embedder, 10)
	require.NoError(t, es.Replace(context.Background(), corpusIndex(embedder, fixtures.AgentPosts)))

	// 另一个进程写入了更小的索引
	require.NoError(t, SaveIndex(context.Background(), es.IndexPath(), corpusIndex(embedder, fixtures.AgentPosts[:1]), nil))
	require.NoError(t, es.Reload(context.Background()))

	docs, err := es.Retrieve(context.Background(), "anything")
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestEvidenceStore_QueryEmbeddingFailure(t *testing.T) {
	embedder := mocks.NewMockEmbedder(64)
	es := newTestEvidenceStore(t, embedder, 0)
	require.NoError(t, es.Replace(context.Background(), corpusIndex(embedder, fixtures.AgentPosts)))

	embedder.WithError(errors.New("embedding quota"))
	_, err := es.Retrieve(context.Background(), "q")
	testutil.AssertErrorCode(t, err, types.ErrEvidenceStoreUnavailable)
	assert.Equal(t, "mock-embedding", types.AsError(err).Provider)
}

func TestEvidenceStore_ConcurrentRetrieve(t *testing.T) {
	embedder := mocks.NewMockEmbedder(64)
	dir := t.TempDir()
	require.NoError(t, SaveIndex(context.Background(), dir, corpusIndex(embedder, fixtures.AgentPosts), nil))
	es, err := NewEvidenceStore(EvidenceStoreConfig{IndexPath: dir}, embedder, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			docs, err := es.Retrieve(context.Background(), "agent memory")
			if assert.NoError(t, err) {
				assert.Len(t, docs, 3)
			}
		}()
	}
	wg.Wait()
}
