package store

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/coder/hnsw"
)

// vectorIndex wraps a coder/hnsw graph keyed by record id. It lives only in
// memory; the durable copy of every vector is the BLOB column in SQLite, and
// the graph is rebuilt from it on open.
//
// Deletion is lazy: nodes stay in the graph but leave the live map, so they
// never appear in results. Record ids are never reused, so a key is never
// re-added after deletion.
type vectorIndex struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[uint64]
	dims  int

	// live maps record id to its source type and normalized vector. The
	// vector shares backing with the graph node; keeping it here lets
	// type-filtered searches scan exactly the matching records instead of
	// hoping the graph's nearest window contains them.
	live map[int64]liveEntry
}

type liveEntry struct {
	st  SourceType
	vec []float32
}

func newVectorIndex(dims int) *vectorIndex {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25

	return &vectorIndex{
		graph: graph,
		dims:  dims,
		live:  make(map[int64]liveEntry),
	}
}

// add inserts a vector under the record id. The vector is copied and
// normalized to unit length before insertion.
func (v *vectorIndex) add(id int64, st SourceType, vec []float32) error {
	if len(vec) != v.dims {
		return fmt.Errorf("vector dimension mismatch: expected %d, got %d", v.dims, len(vec))
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	normalized := make([]float32, len(vec))
	copy(normalized, vec)
	normalizeVectorInPlace(normalized)

	v.graph.Add(hnsw.MakeNode(uint64(id), normalized))
	v.live[id] = liveEntry{st: st, vec: normalized}
	return nil
}

// remove drops ids from the live set. Graph nodes remain as orphans.
func (v *vectorIndex) remove(ids []int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, id := range ids {
		delete(v.live, id)
	}
}

// search returns the k nearest live vectors by cosine distance, optionally
// restricted to the given source types. Results are ordered by ascending
// distance with ties broken by ascending id.
func (v *vectorIndex) search(query []float32, k int, types []SourceType) ([]VectorHit, error) {
	if len(query) != v.dims {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", v.dims, len(query))
	}
	if k <= 0 {
		return []VectorHit{}, nil
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.graph.Len() == 0 || len(v.live) == 0 {
		return []VectorHit{}, nil
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	normalizeVectorInPlace(normalized)

	var hits []VectorHit
	if len(types) > 0 {
		hits = v.searchFiltered(normalized, types)
	} else {
		hits = v.searchGraph(normalized, k)
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// searchGraph walks the HNSW graph, overfetching to survive lazy-deleted
// orphans still present as nodes.
func (v *vectorIndex) searchGraph(query []float32, k int) []VectorHit {
	fetch := k*2 + (v.graph.Len() - len(v.live))
	if fetch > v.graph.Len() {
		fetch = v.graph.Len()
	}

	nodes := v.graph.Search(query, fetch)

	hits := make([]VectorHit, 0, len(nodes))
	for _, node := range nodes {
		id := int64(node.Key)
		if _, alive := v.live[id]; !alive {
			continue
		}
		dist := v.graph.Distance(query, node.Value)
		hits = append(hits, VectorHit{ID: id, Distance: float64(dist)})
	}
	return hits
}

// searchFiltered scans every live record of the requested types. The graph's
// nearest window cannot be trusted here: a rare type's records may all sit
// beyond it when a dominant type crowds the neighborhood, and an exact scan
// over one type is cheap at this corpus scale.
func (v *vectorIndex) searchFiltered(query []float32, types []SourceType) []VectorHit {
	typeSet := make(map[SourceType]struct{}, len(types))
	for _, t := range types {
		typeSet[t] = struct{}{}
	}

	hits := make([]VectorHit, 0, len(v.live))
	for id, entry := range v.live {
		if _, ok := typeSet[entry.st]; !ok {
			continue
		}
		dist := v.graph.Distance(query, entry.vec)
		hits = append(hits, VectorHit{ID: id, Distance: float64(dist)})
	}
	return hits
}

// count returns the number of live vectors.
func (v *vectorIndex) count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.live)
}

// liveIDs returns the ids of all live vectors, unordered.
func (v *vectorIndex) liveIDs() []int64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	ids := make([]int64, 0, len(v.live))
	for id := range v.live {
		ids = append(ids, id)
	}
	return ids
}

// normalizeVectorInPlace normalizes a vector to unit length in place.
func normalizeVectorInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	invMagnitude := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= invMagnitude
	}
}
