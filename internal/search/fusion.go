// Package search provides hybrid (keyword + semantic) search over a built
// book: chapters and glossary entries through Bleve, term embeddings through
// the vector index.
package search

import (
	"sort"

	"github.com/lucidpress/bindery/internal/keyword"
	"github.com/lucidpress/bindery/internal/vector"
)

// FusedResult is one hybrid hit with its component scores.
type FusedResult struct {
	ID            string
	Kind          string
	Title         string
	Score         float64
	KeywordScore  float64
	SemanticScore float64
}

// normalizeKeywordScores scales keyword scores to [0,1] by the max score so
// they are comparable with cosine similarities.
func normalizeKeywordScores(results []*keyword.Result) map[string]float64 {
	normalized := make(map[string]float64, len(results))
	var max float64
	for _, r := range results {
		if r.Score > max {
			max = r.Score
		}
	}
	for _, r := range results {
		if max > 0 {
			normalized[r.ID] = r.Score / max
		} else {
			normalized[r.ID] = 0
		}
	}
	return normalized
}

// semanticScoreMap converts vector hits (keyed by term) to keyword-index IDs.
func semanticScoreMap(results []*vector.Result) map[string]float64 {
	scores := make(map[string]float64, len(results))
	for _, r := range results {
		scores["term:"+r.ID] = r.Score
	}
	return scores
}

// fuse merges the two score maps with weights and returns hits sorted by
// combined score.
func fuse(keywordScores, semanticScores map[string]float64, keywordWeight, semanticWeight float64) []*FusedResult {
	byID := make(map[string]*FusedResult)
	for id, score := range keywordScores {
		byID[id] = &FusedResult{ID: id, KeywordScore: score}
	}
	for id, score := range semanticScores {
		if r, ok := byID[id]; ok {
			r.SemanticScore = score
		} else {
			byID[id] = &FusedResult{ID: id, SemanticScore: score}
		}
	}
	results := make([]*FusedResult, 0, len(byID))
	for _, r := range byID {
		r.Score = keywordWeight*r.KeywordScore + semanticWeight*r.SemanticScore
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	return results
}
