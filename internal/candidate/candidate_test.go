package candidate

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []Candidate
	}{
		{
			name:  "empty",
			query: "",
			want:  []Candidate{{LabelRaw, ""}},
		},
		{
			name:  "sku marker with punctuation",
			query: "find sku PEN456.",
			want: []Candidate{
				{LabelRaw, "find sku PEN456."},
				{LabelCleaned, "find sku pen456"},
				{LabelSKU, "PEN456"},
			},
		},
		{
			name:  "price of",
			query: "What is the price of coffee?",
			want: []Candidate{
				{LabelRaw, "What is the price of coffee?"},
				{LabelCleaned, "what is the price of coffee"},
				{LabelProductTerm, "coffee"},
			},
		},
		{
			name:  "bare sku equal to raw",
			query: "pen456",
			want:  []Candidate{{LabelRaw, "pen456"}},
		},
		{
			name:  "upper-case bare sku",
			query: "PEN456",
			want: []Candidate{
				{LabelRaw, "PEN456"},
				{LabelCleaned, "pen456"},
			},
		},
		{
			name:  "bare sku with punctuation",
			query: "pen456?",
			want: []Candidate{
				{LabelRaw, "pen456?"},
				{LabelCleaned, "pen456"},
			},
		},
		{
			name:  "sku marker distinct from raw",
			query: "SKU: ab12-x",
			want: []Candidate{
				{LabelRaw, "SKU: ab12-x"},
				{LabelCleaned, "sku ab12-x"},
				{LabelSKU, "AB12-X"},
			},
		},
		{
			name:  "already clean",
			query: "blue notebook",
			want:  []Candidate{{LabelRaw, "blue notebook"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.query)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Normalize(%q) mismatch (-want +got):\n%s", tt.query, diff)
			}
		})
	}
}

func TestNormalize_rawFirst(t *testing.T) {
	for _, q := range []string{"", "  spaced  ", "SKU: ab12-x", "!!!", "price of"} {
		got := Normalize(q)
		require.NotEmpty(t, got)
		assert.Equal(t, LabelRaw, got[0].Label)
		assert.Equal(t, q, got[0].Query)
	}
}

func TestExtractSKU(t *testing.T) {
	assert.Equal(t, "PEN456", ExtractSKU("sku:pen456"))
	assert.Equal(t, "AB12-X", ExtractSKU("SKU-ab12-x please"))
	assert.Equal(t, "NB100", ExtractSKU("nb100"))
	assert.Empty(t, ExtractSKU("notebooks"))
	assert.Empty(t, ExtractSKU("price of pens"))
}

func TestProductTerm(t *testing.T) {
	assert.Equal(t, "blue pens", ProductTerm("price of blue pens?"))
	assert.Equal(t, "hello world", ProductTerm("Hello, World!"))
	assert.Empty(t, ProductTerm("?!"))
}
