package hnsw

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var magic = [4]byte{'H', 'N', 'S', 'W'}

const formatVersion uint32 = 1

// header is the fixed-size prefix of a snapshot.
type header struct {
	Magic          [4]byte
	Version        uint32
	Dim            uint32
	M              uint32
	EfConstruction uint32
	EfSearch       uint32
	Count          uint32
	Entry          int32
	MaxLevel       uint32
}

// WriteTo serialises the index to w.
//
// Format, little endian:
//
//	header (magic "HNSW", version, dim, M, efConstruction, efSearch,
//	        count, entry, maxLevel)
//	for each node in position order:
//	  [4B level] [dim x 4B vector]
//	  for each layer 0..level: [4B n] [n x 4B neighbour positions]
func (idx *Index) WriteTo(w io.Writer) (int64, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)
	write := func(v any) error { return binary.Write(bw, binary.LittleEndian, v) }

	h := header{
		Magic:          magic,
		Version:        formatVersion,
		Dim:            uint32(idx.dim),
		M:              uint32(idx.cfg.M),
		EfConstruction: uint32(idx.cfg.EfConstruction),
		EfSearch:       uint32(idx.cfg.EfSearch),
		Count:          uint32(len(idx.nodes)),
		Entry:          idx.entry,
		MaxLevel:       uint32(idx.maxLevel),
	}
	if err := write(&h); err != nil {
		return cw.n, fmt.Errorf("hnsw: write header: %w", err)
	}

	for i, nd := range idx.nodes {
		if err := write(uint32(nd.level)); err != nil {
			return cw.n, fmt.Errorf("hnsw: write node %d: %w", i, err)
		}
		if err := write(nd.vector); err != nil {
			return cw.n, fmt.Errorf("hnsw: write node %d: %w", i, err)
		}
		for _, links := range nd.links {
			if err := write(uint32(len(links))); err != nil {
				return cw.n, fmt.Errorf("hnsw: write node %d: %w", i, err)
			}
			if err := write(links); err != nil {
				return cw.n, fmt.Errorf("hnsw: write node %d: %w", i, err)
			}
		}
	}

	if err := bw.Flush(); err != nil {
		return cw.n, fmt.Errorf("hnsw: flush: %w", err)
	}
	return cw.n, nil
}

// ReadFrom replaces the index with the snapshot in r. The current
// contents are kept if the snapshot is unreadable. A snapshot written
// with a different dimension is rejected with domain.ErrCorruptState.
func (idx *Index) ReadFrom(r io.Reader) (int64, error) {
	cr := &countingReader{r: r}
	br := bufio.NewReader(cr)
	read := func(v any) error { return binary.Read(br, binary.LittleEndian, v) }
	corrupt := func(format string, args ...any) error {
		return fmt.Errorf("hnsw: %s: %w", fmt.Sprintf(format, args...), domain.ErrCorruptState)
	}

	var h header
	if err := read(&h); err != nil {
		return cr.n, corrupt("read header: %v", err)
	}
	if h.Magic != magic {
		return cr.n, corrupt("invalid magic %q", h.Magic[:])
	}
	if h.Version != formatVersion {
		return cr.n, corrupt("unsupported version %d", h.Version)
	}
	if int(h.Dim) != idx.dim {
		return cr.n, corrupt("snapshot dimension %d, want %d", h.Dim, idx.dim)
	}
	if h.M < 2 || h.M > maxM {
		return cr.n, corrupt("M %d out of range", h.M)
	}
	if h.MaxLevel > maxLevelCap {
		return cr.n, corrupt("max level %d out of range", h.MaxLevel)
	}

	// Count is untrusted until the nodes are read.
	count := int(h.Count)
	maxLinks := 2 * int(h.M)
	nodes := make([]*node, 0, min(count, 1<<16))
	for i := 0; i < count; i++ {
		var level uint32
		if err := read(&level); err != nil {
			return cr.n, corrupt("read node %d: %v", i, err)
		}
		if level > maxLevelCap {
			return cr.n, corrupt("node %d level %d out of range", i, level)
		}
		nd := &node{
			vector: make([]float32, h.Dim),
			level:  int(level),
			links:  make([][]int32, level+1),
		}
		if err := read(nd.vector); err != nil {
			return cr.n, corrupt("read node %d: %v", i, err)
		}
		for layer := range nd.links {
			var n uint32
			if err := read(&n); err != nil {
				return cr.n, corrupt("read node %d: %v", i, err)
			}
			if int(n) > min(count, maxLinks) {
				return cr.n, corrupt("node %d has %d links", i, n)
			}
			links := make([]int32, n)
			if err := read(links); err != nil {
				return cr.n, corrupt("read node %d: %v", i, err)
			}
			for _, l := range links {
				if l < 0 || int(l) >= count {
					return cr.n, corrupt("node %d links to %d", i, l)
				}
			}
			nd.links[layer] = links
		}
		nodes = append(nodes, nd)
	}

	if (count == 0 && h.Entry != -1) || (count > 0 && (h.Entry < 0 || int(h.Entry) >= count)) {
		return cr.n, corrupt("entry point %d out of range", h.Entry)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.nodes = nodes
	idx.entry = h.Entry
	idx.maxLevel = int(h.MaxLevel)
	idx.undo = nil
	return cr.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
