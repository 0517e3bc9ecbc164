package hnsw

import (
	"container/heap"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Default configuration values.
const (
	DefaultM              = 32
	DefaultEfConstruction = 200
	DefaultEfSearch       = 64

	maxLevelCap = 31
	maxM        = 1024
)

// Config holds graph parameters.
type Config struct {
	// M is the maximum number of links per node on layers above 0.
	// Layer 0 allows 2*M.
	M int

	// EfConstruction is the candidate list size used while inserting.
	EfConstruction int

	// EfSearch is the candidate list size used while querying.
	// It is raised to k when k is larger.
	EfSearch int

	// Seed makes level assignment reproducible. Zero picks a random seed.
	Seed uint64
}

func (c *Config) setDefaults() {
	if c.M < 2 {
		c.M = DefaultM
	}
	c.M = min(c.M, maxM)
	if c.EfConstruction <= 0 {
		c.EfConstruction = DefaultEfConstruction
	}
	if c.EfSearch <= 0 {
		c.EfSearch = DefaultEfSearch
	}
}

func (c *Config) maxLinks(layer int) int {
	if layer == 0 {
		return c.M * 2
	}
	return c.M
}

// candidate pairs a node position with its distance to a query.
// Distance is the negated inner product, so smaller is closer.
type candidate struct {
	pos  int32
	dist float32
}

type nearestFirst []candidate

func (h nearestFirst) Len() int           { return len(h) }
func (h nearestFirst) Less(i, j int) bool { return h[i].dist < h[j].dist }
func (h nearestFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *nearestFirst) Push(x any)        { *h = append(*h, x.(candidate)) }
func (h *nearestFirst) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}

type farthestFirst []candidate

func (h farthestFirst) Len() int           { return len(h) }
func (h farthestFirst) Less(i, j int) bool { return h[i].dist > h[j].dist }
func (h farthestFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *farthestFirst) Push(x any)        { *h = append(*h, x.(candidate)) }
func (h *farthestFirst) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}

type node struct {
	vector []float32
	level  int
	links  [][]int32 // links[layer] = neighbour positions
}

// Index is an append-only HNSW graph over inner product similarity.
// All methods are safe for concurrent use.
type Index struct {
	mu       sync.RWMutex
	cfg      Config
	dim      int
	nodes    []*node
	entry    int32 // -1 when empty
	maxLevel int
	levelMul float64
	rng      *rand.Rand

	// undo holds what the most recent Add changed in pre-existing nodes.
	undo *undoLog
}

// undoLog records the graph as it was before a batch so that truncating
// back to base restores it exactly. Inserting a batch re-prunes the
// neighbour lists of older nodes; dropping the new links alone would
// leave those lists shorter than before.
type undoLog struct {
	base     int
	entry    int32
	maxLevel int
	links    map[int32][][]int32
}

// save copies the links of pos the first time the current batch touches it.
func (u *undoLog) save(pos int32, nd *node) {
	if u == nil || int(pos) >= u.base {
		return
	}
	if _, ok := u.links[pos]; ok {
		return
	}
	saved := make([][]int32, len(nd.links))
	for layer, links := range nd.links {
		saved[layer] = slices.Clone(links)
	}
	u.links[pos] = saved
}

// New creates an empty index for vectors of the given dimension.
func New(dimension int, cfg Config) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("hnsw: dimension must be positive: %w", domain.ErrInvalidInput)
	}
	cfg.setDefaults()
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Index{
		cfg:      cfg,
		dim:      dimension,
		entry:    -1,
		levelMul: 1 / math.Log(float64(cfg.M)),
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}, nil
}

// Len returns the number of stored vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.nodes)
}

// Dimension returns the vector size.
func (idx *Index) Dimension() int {
	return idx.dim
}

// Add appends vectors in order. Either every vector is added or, on a
// dimension mismatch, none is.
func (idx *Index) Add(vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != idx.dim {
			return fmt.Errorf("hnsw: vector %d has dimension %d, want %d: %w", i, len(v), idx.dim, domain.ErrInvalidInput)
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.undo = &undoLog{
		base:     len(idx.nodes),
		entry:    idx.entry,
		maxLevel: idx.maxLevel,
		links:    make(map[int32][][]int32),
	}
	for _, v := range vectors {
		vec := make([]float32, len(v))
		copy(vec, v)
		idx.insert(vec)
	}
	return nil
}

func (idx *Index) insert(vec []float32) {
	level := idx.randomLevel()
	nd := &node{vector: vec, level: level, links: make([][]int32, level+1)}
	pos := int32(len(idx.nodes))
	idx.nodes = append(idx.nodes, nd)

	if idx.entry < 0 {
		idx.entry = pos
		idx.maxLevel = level
		return
	}

	ep := idx.entry
	for layer := idx.maxLevel; layer > level; layer-- {
		ep = idx.greedy(vec, ep, layer)
	}

	for layer := min(level, idx.maxLevel); layer >= 0; layer-- {
		found := idx.searchLayer(vec, []int32{ep}, idx.cfg.EfConstruction, layer)
		neighbours := idx.selectClosest(vec, found, idx.cfg.M)
		nd.links[layer] = neighbours

		limit := idx.cfg.maxLinks(layer)
		for _, nb := range neighbours {
			other := idx.nodes[nb]
			idx.undo.save(nb, other)
			other.links[layer] = append(other.links[layer], pos)
			if len(other.links[layer]) > limit {
				other.links[layer] = idx.selectClosest(other.vector, other.links[layer], limit)
			}
		}
		if len(neighbours) > 0 {
			ep = neighbours[0]
		}
	}

	if level > idx.maxLevel {
		idx.entry = pos
		idx.maxLevel = level
	}
}

// Search returns up to k positions in descending similarity.
// An empty index yields no hits.
func (idx *Index) Search(query []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("hnsw: k must be positive: %w", domain.ErrInvalidInput)
	}
	if len(query) != idx.dim {
		return nil, fmt.Errorf("hnsw: query has dimension %d, want %d: %w", len(query), idx.dim, domain.ErrInvalidInput)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.entry < 0 {
		return nil, nil
	}

	ep := idx.entry
	for layer := idx.maxLevel; layer > 0; layer-- {
		ep = idx.greedy(query, ep, layer)
	}

	found := idx.searchLayer(query, []int32{ep}, max(idx.cfg.EfSearch, k), 0)
	found = idx.selectClosest(query, found, k)

	hits := make([]driven.VectorHit, len(found))
	for i, pos := range found {
		hits[i] = driven.VectorHit{
			Position:   int(pos),
			Similarity: float64(domain.Dot(query, idx.nodes[pos].vector)),
		}
	}
	return hits, nil
}

// Truncate drops every vector at position >= n along with all links to
// them. Truncating to the length before the most recent Add restores the
// graph exactly as it was. Any other n keeps the survivors' remaining
// links and re-elects the entry point.
func (idx *Index) Truncate(n int) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if n < 0 || n > len(idx.nodes) {
		return fmt.Errorf("hnsw: truncate to %d of %d: %w", n, len(idx.nodes), domain.ErrInvalidInput)
	}
	if n == len(idx.nodes) {
		return nil
	}

	for i := len(idx.nodes) - 1; i >= n; i-- {
		idx.nodes[i] = nil
	}
	idx.nodes = idx.nodes[:n]

	undo := idx.undo
	idx.undo = nil
	if undo != nil && undo.base == n {
		for pos, links := range undo.links {
			idx.nodes[pos].links = links
		}
		idx.entry = undo.entry
		idx.maxLevel = undo.maxLevel
		return nil
	}

	cut := int32(n)
	for _, nd := range idx.nodes {
		for layer, links := range nd.links {
			kept := links[:0]
			for _, l := range links {
				if l < cut {
					kept = append(kept, l)
				}
			}
			nd.links[layer] = kept
		}
	}

	idx.electEntry()
	return nil
}

func (idx *Index) electEntry() {
	idx.entry = -1
	idx.maxLevel = 0
	for i, nd := range idx.nodes {
		if idx.entry < 0 || nd.level > idx.maxLevel {
			idx.entry = int32(i)
			idx.maxLevel = nd.level
		}
	}
}

// randomLevel draws a layer from an exponential distribution so that
// P(level >= l) = M^-l.
func (idx *Index) randomLevel() int {
	r := max(idx.rng.Float64(), math.SmallestNonzeroFloat64)
	return min(int(-math.Log(r)*idx.levelMul), maxLevelCap)
}

func (idx *Index) distance(query []float32, pos int32) float32 {
	return -domain.Dot(query, idx.nodes[pos].vector)
}

// greedy walks a single layer towards the query until no neighbour is closer.
func (idx *Index) greedy(query []float32, ep int32, layer int) int32 {
	best := ep
	bestDist := idx.distance(query, ep)
	for changed := true; changed; {
		changed = false
		nd := idx.nodes[best]
		if layer >= len(nd.links) {
			break
		}
		for _, nb := range nd.links[layer] {
			if d := idx.distance(query, nb); d < bestDist {
				best, bestDist = nb, d
				changed = true
			}
		}
	}
	return best
}

// searchLayer is a beam search over one layer returning up to ef positions.
func (idx *Index) searchLayer(query []float32, entries []int32, ef, layer int) []int32 {
	visited := make(map[int32]struct{}, ef*2)
	var frontier nearestFirst
	var results farthestFirst

	for _, ep := range entries {
		visited[ep] = struct{}{}
		d := idx.distance(query, ep)
		heap.Push(&frontier, candidate{pos: ep, dist: d})
		heap.Push(&results, candidate{pos: ep, dist: d})
	}

	for frontier.Len() > 0 {
		c := heap.Pop(&frontier).(candidate)
		if results.Len() >= ef && c.dist > results[0].dist {
			break
		}
		nd := idx.nodes[c.pos]
		if layer >= len(nd.links) {
			continue
		}
		for _, nb := range nd.links[layer] {
			if _, seen := visited[nb]; seen {
				continue
			}
			visited[nb] = struct{}{}
			d := idx.distance(query, nb)
			if results.Len() < ef || d < results[0].dist {
				heap.Push(&frontier, candidate{pos: nb, dist: d})
				heap.Push(&results, candidate{pos: nb, dist: d})
				if results.Len() > ef {
					heap.Pop(&results)
				}
			}
		}
	}

	out := make([]int32, results.Len())
	for i := range out {
		out[i] = results[i].pos
	}
	return out
}

// selectClosest returns up to n positions sorted nearest first.
func (idx *Index) selectClosest(query []float32, positions []int32, n int) []int32 {
	scored := make([]candidate, len(positions))
	for i, p := range positions {
		scored[i] = candidate{pos: p, dist: idx.distance(query, p)}
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].dist == scored[j].dist {
			return scored[i].pos < scored[j].pos
		}
		return scored[i].dist < scored[j].dist
	})
	if len(scored) > n {
		scored = scored[:n]
	}
	out := make([]int32, len(scored))
	for i, c := range scored {
		out[i] = c.pos
	}
	return out
}
