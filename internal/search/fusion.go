package search

import (
	"sort"

	"github.com/hearthside-dev/grist/internal/store"
)

// normalizeLexical min-max normalizes raw bm25 scores to [0,1].
// Raw scores are negative with lower = better, so the most negative score
// maps to 1.0 and the least negative to 0.0. A single distinct score (one
// hit, or all tied) normalizes to 1.0: relative ranking carries no
// information there, and dropping the only keyword match to 0 would erase
// the lexical side entirely.
func normalizeLexical(hits []store.LexicalHit) map[int64]float64 {
	if len(hits) == 0 {
		return map[int64]float64{}
	}

	minScore, maxScore := hits[0].Score, hits[0].Score
	for _, h := range hits[1:] {
		if h.Score < minScore {
			minScore = h.Score
		}
		if h.Score > maxScore {
			maxScore = h.Score
		}
	}

	out := make(map[int64]float64, len(hits))
	if minScore == maxScore {
		for _, h := range hits {
			out[h.ID] = 1.0
		}
		return out
	}

	scoreRange := maxScore - minScore
	for _, h := range hits {
		out[h.ID] = (maxScore - h.Score) / scoreRange
	}
	return out
}

// normalizeSemantic converts cosine distances ([0,2], 0 = identical) to
// similarities via 1 - d/2, then min-max normalizes to [0,1]. The same
// single-distinct-value rule as the lexical side applies.
func normalizeSemantic(hits []store.VectorHit) map[int64]float64 {
	if len(hits) == 0 {
		return map[int64]float64{}
	}

	sims := make(map[int64]float64, len(hits))
	minSim, maxSim := 1.0, -1.0
	for _, h := range hits {
		sim := 1.0 - h.Distance/2.0
		sims[h.ID] = sim
		if sim < minSim {
			minSim = sim
		}
		if sim > maxSim {
			maxSim = sim
		}
	}

	out := make(map[int64]float64, len(sims))
	if minSim == maxSim {
		for id := range sims {
			out[id] = 1.0
		}
		return out
	}

	simRange := maxSim - minSim
	for id, sim := range sims {
		out[id] = (sim - minSim) / simRange
	}
	return out
}

// fusedScore carries the per-path and combined scores for one candidate.
type fusedScore struct {
	id       int64
	keyword  float64
	semantic float64
	final    float64
}

// fuse unions both candidate sets, scoring records missed by one path as
// 0.0 on that path, and sorts by descending final score with ties broken
// by ascending id.
func fuse(lexical, semantic map[int64]float64, w Weights) []fusedScore {
	ids := make(map[int64]struct{}, len(lexical)+len(semantic))
	for id := range lexical {
		ids[id] = struct{}{}
	}
	for id := range semantic {
		ids[id] = struct{}{}
	}

	scored := make([]fusedScore, 0, len(ids))
	for id := range ids {
		kw := lexical[id]
		sem := semantic[id]
		scored = append(scored, fusedScore{
			id:       id,
			keyword:  kw,
			semantic: sem,
			final:    w.Keyword*kw + w.Semantic*sem,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].final != scored[j].final {
			return scored[i].final > scored[j].final
		}
		return scored[i].id < scored[j].id
	})

	return scored
}
