// Package vector provides vector index and similarity search.
package vector

import (
	"context"
	"fmt"
)

// Metric selects how vectors are compared.
type Metric string

const (
	// MetricCosine compares L2-normalized vectors by inner product. Higher is closer.
	MetricCosine Metric = "cosine"
	// MetricL2 compares vectors by squared Euclidean distance. Lower is closer.
	MetricL2 Metric = "l2"
)

// ParseMetric maps a config value to a Metric. Empty means cosine.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricCosine, "":
		return MetricCosine, nil
	case MetricL2:
		return MetricL2, nil
	default:
		return "", fmt.Errorf("unknown metric: %s (supported: cosine, l2)", s)
	}
}

// VectorIndex defines vector storage and similarity search.
type VectorIndex interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Save(path string) error
	Load(path string) error
	Size() int
	Dimensions() int
	Metric() Metric
	Close() error
}

// VectorResult is a single vector search hit.
type VectorResult struct {
	ID string
	// Score is the inner product for MetricCosine and the squared distance for MetricL2.
	Score float64
}
