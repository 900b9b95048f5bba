package vector

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hyperjump/agentroute/pkg/utils"
)

// ErrIndexMismatch is returned by Load when the file was written with another
// dimension or metric.
var ErrIndexMismatch = errors.New("index file does not match index settings")

// MemoryIndex is an in-memory vector index using brute-force search.
// For MetricCosine every vector, including queries, is L2-normalized.
type MemoryIndex struct {
	dimensions int
	metric     Metric
	ids        []string
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index with the given dimension and metric.
func NewMemoryIndex(dimensions int, metric Metric) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if metric == "" {
		metric = MetricCosine
	}
	return &MemoryIndex{
		dimensions: dimensions,
		metric:     metric,
		ids:        make([]string, 0),
		vectors:    make([][]float32, 0),
	}, nil
}

func (m *MemoryIndex) prepare(v []float32) []float32 {
	vec := make([]float32, m.dimensions)
	copy(vec, v)
	if m.metric == MetricCosine {
		utils.NormalizeL2(vec)
	}
	return vec
}

// Add appends vectors with the given IDs.
func (m *MemoryIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, id := range ids {
		if len(vectors[i]) != m.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vectors[i]), m.dimensions)
		}
		m.ids = append(m.ids, id)
		m.vectors = append(m.vectors, m.prepare(vectors[i]))
	}
	return nil
}

// Search returns the k closest vectors. Ties keep insertion order.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := m.prepare(query)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.ids) == 0 {
		return nil, nil
	}
	results := make([]*VectorResult, len(m.ids))
	for i, vec := range m.vectors {
		results[i] = &VectorResult{ID: m.ids[i], Score: score(m.metric, q, vec)}
	}
	sort.SliceStable(results, func(i, j int) bool { return closer(m.metric, results[i].Score, results[j].Score) })
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Save persists the index to path. Directory is created if needed. Format:
// metric (1), dimension (4), n (4), then per vector: idLen (4), id bytes,
// vector (dimension*4 bytes).
func (m *MemoryIndex) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := w.WriteByte(metricByte(m.metric)); err != nil {
		return fmt.Errorf("write metric: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(m.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(m.ids))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, id := range m.ids {
		idBytes := []byte(id)
		if err := binary.Write(w, binary.LittleEndian, uint32(len(idBytes))); err != nil {
			return fmt.Errorf("write id len: %w", err)
		}
		if _, err := w.Write(idBytes); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if _, err := w.Write(float32SliceToBytes(m.vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush index file: %w", err)
	}
	return nil
}

// Load reads the index from path and replaces the in-memory contents.
// Dimension and metric must match, otherwise ErrIndexMismatch is returned.
// If the file does not exist, no error is returned and the index is unchanged.
func (m *MemoryIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	mb, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("read metric: %w", err)
	}
	var dim, n uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if mb != metricByte(m.metric) || int(dim) != m.dimensions {
		return fmt.Errorf("%w: file has metric byte %d and %d dimensions", ErrIndexMismatch, mb, dim)
	}
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}
	ids := make([]string, 0, n)
	vectors := make([][]float32, 0, n)
	buf := make([]byte, m.dimensions*4)
	for i := uint32(0); i < n; i++ {
		var idLen uint32
		if err := binary.Read(r, binary.LittleEndian, &idLen); err != nil {
			return fmt.Errorf("read id len: %w", err)
		}
		idBytes := make([]byte, idLen)
		if _, err := io.ReadFull(r, idBytes); err != nil {
			return fmt.Errorf("read id: %w", err)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		ids = append(ids, string(idBytes))
		vectors = append(vectors, bytesToFloat32Slice(buf))
	}
	m.mu.Lock()
	m.ids, m.vectors = ids, vectors
	m.mu.Unlock()
	return nil
}

func metricByte(m Metric) byte {
	if m == MetricL2 {
		return 2
	}
	return 1
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// Dimensions returns the vector dimension.
func (m *MemoryIndex) Dimensions() int { return m.dimensions }

// Metric returns the comparison metric.
func (m *MemoryIndex) Metric() Metric { return m.metric }

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
