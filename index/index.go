// Package index implements the TF-IDF relevance index over the chunk corpus
// of one crawl.
package index

import (
	"math"
	"sort"
	"sync/atomic"
)

// Result is a chunk's position in the corpus and its relevance score.
type Result struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Index holds a chunk corpus and its term statistics. It is immutable once
// built and safe for concurrent queries.
type Index struct {
	chunks   []string
	postings map[string]map[int]int // term -> chunk index -> count
}

// Build indexes chunks. A chunk's position in chunks is its index in every
// Result.
func Build(chunks []string) *Index {
	idx := &Index{
		chunks:   make([]string, len(chunks)),
		postings: make(map[string]map[int]int),
	}
	copy(idx.chunks, chunks)

	for i, chunk := range idx.chunks {
		for _, term := range Tokenize(chunk) {
			docs, ok := idx.postings[term]
			if !ok {
				docs = make(map[int]int)
				idx.postings[term] = docs
			}
			docs[i]++
		}
	}

	return idx
}

// Len returns the number of chunks in the corpus.
func (idx *Index) Len() int {
	return len(idx.chunks)
}

// Chunk returns the chunk text at position i.
func (idx *Index) Chunk(i int) string {
	return idx.chunks[i]
}

// Chunks returns a copy of the corpus.
func (idx *Index) Chunks() []string {
	out := make([]string, len(idx.chunks))
	copy(out, idx.chunks)
	return out
}

// idf returns 1 + ln(N / (1 + df)), which stays positive for any df <= N.
func (idx *Index) idf(term string) float64 {
	df := float64(len(idx.postings[term]))
	n := float64(len(idx.chunks))
	return 1 + math.Log(n/(1+df))
}

// Score returns every chunk sharing at least one term with query, sorted by
// descending score and then ascending index. A query with no matching terms,
// or an empty corpus, yields an empty result.
func (idx *Index) Score(query string) []Result {
	results := []Result{}
	if len(idx.chunks) == 0 {
		return results
	}

	scores := make(map[int]float64)
	seen := make(map[string]bool)
	for _, term := range Tokenize(query) {
		if seen[term] {
			continue
		}
		seen[term] = true

		docs := idx.postings[term]
		if len(docs) == 0 {
			continue
		}

		idf := idx.idf(term)
		for i, count := range docs {
			scores[i] += float64(count) * idf
		}
	}

	for i, score := range scores {
		if score > 0 {
			results = append(results, Result{Index: i, Score: score})
		}
	}

	sort.Slice(results, func(a, b int) bool {
		if results[a].Score == results[b].Score {
			return results[a].Index < results[b].Index
		}
		return results[a].Score > results[b].Score
	})

	return results
}

// TopK returns at most k of the highest scoring results.
func (idx *Index) TopK(query string, k int) []Result {
	results := idx.Score(query)
	if k >= 0 && len(results) > k {
		results = results[:k]
	}
	return results
}

// Handle holds the current index. Swap publishes a rebuilt index atomically,
// so readers always see one complete corpus.
type Handle struct {
	current atomic.Pointer[Index]
}

// Load returns the current index, or nil if none has been stored.
func (h *Handle) Load() *Index {
	return h.current.Load()
}

// Swap stores idx as the current index and returns the previous one.
func (h *Handle) Swap(idx *Index) *Index {
	return h.current.Swap(idx)
}
