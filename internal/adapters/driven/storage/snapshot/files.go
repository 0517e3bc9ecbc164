package snapshot

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Artifact and pointer file names.
const (
	currentFile  = "CURRENT"
	indexFile    = "index.hnsw"
	metadataFile = "metadata.msgpack"
	contentFile  = "content.msgpack"
	genPrefix    = "gen-"
)

// metadataArtifact is the on-disk form of the metadata array.
type metadataArtifact struct {
	Dimension int                    `msgpack:"dimension"`
	Records   []domain.ChunkMetadata `msgpack:"records"`
}

// contentArtifact is the on-disk form of the content array.
type contentArtifact struct {
	Texts []string `msgpack:"texts"`
}

func genName(gen uint64) string {
	return genPrefix + strconv.FormatUint(gen, 10)
}

func parseGen(name string) (uint64, bool) {
	if !strings.HasPrefix(name, genPrefix) {
		return 0, false
	}
	n, err := strconv.ParseUint(strings.TrimPrefix(name, genPrefix), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}

// listGenerations returns the generation numbers present in dir, ascending.
func listGenerations(dir string) ([]uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var gens []uint64
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if n, ok := parseGen(e.Name()); ok {
			gens = append(gens, n)
		}
	}
	sort.Slice(gens, func(i, j int) bool { return gens[i] < gens[j] })
	return gens, nil
}

// removeStale deletes generations newer than current. They are left by a
// crash between writing artifacts and switching CURRENT.
func removeStale(dir string, current uint64) error {
	gens, err := listGenerations(dir)
	if err != nil {
		return fmt.Errorf("snapshot: listing generations: %w", err)
	}
	for _, g := range gens {
		if g <= current {
			continue
		}
		logger.Warn("snapshot: removing uncommitted %s", genName(g))
		if err := os.RemoveAll(filepath.Join(dir, genName(g))); err != nil {
			return fmt.Errorf("snapshot: removing %s: %w", genName(g), err)
		}
	}
	return nil
}

// removeUncommittedFirst handles a directory without CURRENT. A lone
// gen-1 is left by a first persist that crashed before committing and is
// removed. Any other generation means the pointer was lost, which is
// reported as domain.ErrCorruptState rather than starting empty.
func removeUncommittedFirst(dir string) error {
	gens, err := listGenerations(dir)
	if err != nil {
		return fmt.Errorf("snapshot: listing generations: %w", err)
	}
	switch {
	case len(gens) == 0:
		return nil
	case len(gens) == 1 && gens[0] == 1:
		logger.Warn("snapshot: removing uncommitted %s", genName(1))
		if err := os.RemoveAll(filepath.Join(dir, genName(1))); err != nil {
			return fmt.Errorf("snapshot: removing %s: %w", genName(1), err)
		}
		return nil
	default:
		return fmt.Errorf("snapshot: %s missing but %s present: %w",
			currentFile, genName(gens[len(gens)-1]), domain.ErrCorruptState)
	}
}

// readCurrent returns the live generation. ok is false when no CURRENT
// pointer exists.
func readCurrent(dir string) (gen uint64, ok bool, err error) {
	data, err := os.ReadFile(filepath.Join(dir, currentFile))
	if errors.Is(err, os.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("snapshot: reading %s: %v: %w", currentFile, err, domain.ErrCorruptState)
	}
	gen, valid := parseGen(strings.TrimSpace(string(data)))
	if !valid {
		return 0, false, fmt.Errorf("snapshot: %s holds %q: %w", currentFile, strings.TrimSpace(string(data)), domain.ErrCorruptState)
	}
	return gen, true, nil
}

// load reads one generation into the store.
func (s *Store) load(gen uint64) error {
	genDir := filepath.Join(s.dir, genName(gen))
	corrupt := func(format string, args ...any) error {
		return fmt.Errorf("snapshot: %s: %s: %w", genName(gen), fmt.Sprintf(format, args...), domain.ErrCorruptState)
	}

	if info, err := os.Stat(genDir); err != nil || !info.IsDir() {
		return corrupt("generation directory missing")
	}

	if err := readFile(filepath.Join(genDir, indexFile), func(r io.Reader) error {
		_, err := s.index.ReadFrom(r)
		return err
	}); err != nil {
		if errors.Is(err, domain.ErrCorruptState) {
			return fmt.Errorf("snapshot: %s: %w", genName(gen), err)
		}
		return corrupt("reading %s: %v", indexFile, err)
	}

	var meta metadataArtifact
	if err := readFile(filepath.Join(genDir, metadataFile), decodeInto(&meta)); err != nil {
		return corrupt("reading %s: %v", metadataFile, err)
	}
	var content contentArtifact
	if err := readFile(filepath.Join(genDir, contentFile), decodeInto(&content)); err != nil {
		return corrupt("reading %s: %v", contentFile, err)
	}

	if meta.Dimension != s.dim {
		return corrupt("stored dimension %d, configured %d", meta.Dimension, s.dim)
	}
	n := s.index.Len()
	if len(meta.Records) != n || len(content.Texts) != n {
		return corrupt("misaligned artifacts (index=%d metadata=%d content=%d)", n, len(meta.Records), len(content.Texts))
	}
	for i, m := range meta.Records {
		if m.SequenceID != i {
			return corrupt("record %d has sequence id %d", i, m.SequenceID)
		}
	}

	s.texts = content.Texts
	s.metadata = meta.Records
	for _, m := range meta.Records {
		s.sources[m.Source]++
	}
	return nil
}

// persist writes the in-memory state as a new generation and switches
// CURRENT to it. The caller holds the write lock.
func (s *Store) persist() error {
	gen := s.nextGen + 1
	genDir := filepath.Join(s.dir, genName(gen))

	if err := os.RemoveAll(genDir); err != nil {
		return fmt.Errorf("clearing %s: %w", genName(gen), err)
	}
	if err := os.MkdirAll(genDir, 0700); err != nil {
		return fmt.Errorf("creating %s: %w", genName(gen), err)
	}

	err := s.writeArtifacts(genDir)
	if err == nil && s.beforeCommit != nil {
		err = s.beforeCommit()
	}
	if err == nil {
		err = writeCurrent(s.dir, gen)
	}
	if err != nil {
		if rmErr := os.RemoveAll(genDir); rmErr != nil {
			logger.Warn("snapshot: removing failed %s: %v", genName(gen), rmErr)
		}
		return err
	}

	s.nextGen = gen
	s.generation = gen
	s.persisted = len(s.texts)
	logger.Debug("snapshot: committed %s (%d chunks)", genName(gen), len(s.texts))
	s.prune()
	return nil
}

func (s *Store) writeArtifacts(genDir string) error {
	if err := writeFile(filepath.Join(genDir, indexFile), func(w io.Writer) error {
		_, err := s.index.WriteTo(w)
		return err
	}); err != nil {
		return fmt.Errorf("writing %s: %w", indexFile, err)
	}
	meta := metadataArtifact{Dimension: s.dim, Records: s.metadata}
	if err := writeFile(filepath.Join(genDir, metadataFile), encode(&meta)); err != nil {
		return fmt.Errorf("writing %s: %w", metadataFile, err)
	}
	content := contentArtifact{Texts: s.texts}
	if err := writeFile(filepath.Join(genDir, contentFile), encode(&content)); err != nil {
		return fmt.Errorf("writing %s: %w", contentFile, err)
	}
	return syncDir(genDir)
}

// prune removes generations outside the keep window.
func (s *Store) prune() {
	gens, err := listGenerations(s.dir)
	if err != nil {
		logger.Warn("snapshot: listing generations for pruning: %v", err)
		return
	}
	oldest := uint64(0)
	if s.generation > uint64(s.keep) {
		oldest = s.generation - uint64(s.keep) + 1
	}
	for _, g := range gens {
		if g >= oldest && g <= s.generation {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.dir, genName(g))); err != nil {
			logger.Warn("snapshot: pruning %s: %v", genName(g), err)
		}
	}
}

// writeCurrent atomically points CURRENT at gen.
func writeCurrent(dir string, gen uint64) error {
	tmp := filepath.Join(dir, currentFile+".tmp")
	if err := writeFile(tmp, func(w io.Writer) error {
		_, err := io.WriteString(w, genName(gen)+"\n")
		return err
	}); err != nil {
		return fmt.Errorf("writing %s: %w", currentFile, err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, currentFile)); err != nil {
		return fmt.Errorf("switching %s: %w", currentFile, err)
	}
	return syncDir(dir)
}

func encode(v any) func(io.Writer) error {
	return func(w io.Writer) error {
		return msgpack.NewEncoder(w).Encode(v)
	}
}

func decodeInto(v any) func(io.Reader) error {
	return func(r io.Reader) error {
		return msgpack.NewDecoder(r).Decode(v)
	}
}

// writeFile creates path, fills it through fn and fsyncs it.
func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := fn(bw); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readFile(path string, fn func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return fn(bufio.NewReader(f))
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return err
	}
	return nil
}
