package vector

import "github.com/hyperjump/agentroute/pkg/utils"

// InnerProduct returns the inner product of two vectors (for normalized vectors equals cosine similarity).
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// closer reports whether score a ranks before score b under m.
func closer(m Metric, a, b float64) bool {
	if m == MetricL2 {
		return a < b
	}
	return a > b
}

func score(m Metric, query, vec []float32) float64 {
	if m == MetricL2 {
		return utils.SquaredL2(query, vec)
	}
	return InnerProduct(query, vec)
}
