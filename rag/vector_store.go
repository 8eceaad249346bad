package rag

import (
	"container/heap"
	"fmt"
	"math"
	"sort"

	"github.com/BaSui01/adaptiverag/types"
)

// Chunk 是一段已嵌入的证据文本。
type Chunk struct {
	ID        string         `json:"id"`
	Document  types.Document `json:"document"`
	Embedding []float64      `json:"-"`
}

// Hit 一次检索命中，Score 为余弦相似度
type Hit struct {
	Chunk    Chunk
	Score    float64
	position int
}

// vectorIndex 是只读的暴力检索索引，构建后不再修改，可并发检索。
// 向量在构建时单位化，检索只需点积。
type vectorIndex struct {
	chunks []Chunk
	unit   [][]float64
	dims   int
}

func newVectorIndex(chunks []Chunk) (*vectorIndex, error) {
	v := &vectorIndex{chunks: chunks, unit: make([][]float64, len(chunks))}
	for i, c := range chunks {
		switch {
		case len(c.Embedding) == 0:
			return nil, fmt.Errorf("chunk %s has no embedding", c.ID)
		case v.dims == 0:
			v.dims = len(c.Embedding)
		case len(c.Embedding) != v.dims:
			return nil, fmt.Errorf("chunk %s has %d dimensions, index has %d", c.ID, len(c.Embedding), v.dims)
		}
		v.unit[i] = unitVector(c.Embedding)
	}
	return v, nil
}

func (v *vectorIndex) Len() int { return len(v.chunks) }

func (v *vectorIndex) Dimensions() int { return v.dims }

// Search 返回与 query 最相近的 k 个分块，分数相同的按写入顺序
func (v *vectorIndex) Search(query []float64, k int) ([]Hit, error) {
	if len(v.chunks) == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != v.dims {
		return nil, fmt.Errorf("query has %d dimensions, index has %d", len(query), v.dims)
	}
	q := unitVector(query)

	worst := make(hitHeap, 0, k+1)
	for i, u := range v.unit {
		h := Hit{Chunk: v.chunks[i], Score: dot(q, u), position: i}
		if len(worst) < k {
			heap.Push(&worst, h)
		} else if ranksBefore(h, worst[0]) {
			worst[0] = h
			heap.Fix(&worst, 0)
		}
	}

	hits := []Hit(worst)
	sort.Slice(hits, func(i, j int) bool { return ranksBefore(hits[i], hits[j]) })
	return hits, nil
}

func ranksBefore(a, b Hit) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.position < b.position
}

// hitHeap 堆顶是当前排名最差的命中
type hitHeap []Hit

func (h hitHeap) Len() int           { return len(h) }
func (h hitHeap) Less(i, j int) bool { return ranksBefore(h[j], h[i]) }
func (h hitHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *hitHeap) Push(x any)        { *h = append(*h, x.(Hit)) }
func (h *hitHeap) Pop() any {
	old := *h
	last := old[len(old)-1]
	*h = old[:len(old)-1]
	return last
}

// unitVector 零向量原样返回，与任何向量的相似度都是 0
func unitVector(v []float64) []float64 {
	norm := math.Sqrt(dot(v, v))
	out := make([]float64, len(v))
	if norm == 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

