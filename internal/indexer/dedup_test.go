package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupe_CollapsesNearIdenticalTitlesSameSize(t *testing.T) {
	results := []SearchResult{
		{IndexerName: "IndexerA", Title: "The.Matrix.1999.2160p.BluRay.REMUX", Size: 40_000_000_000},
		{IndexerName: "IndexerB", Title: "The Matrix 1999 2160p BluRay REMUX", Size: 40_200_000_000},
		{IndexerName: "IndexerC", Title: "Completely Different Movie 2020", Size: 5_000_000_000},
	}

	deduped := Dedupe(results)

	assert.Len(t, deduped, 2)
	assert.Equal(t, "IndexerA", deduped[0].IndexerName)
	assert.Equal(t, "IndexerC", deduped[1].IndexerName)
}

func TestDedupe_KeepsSimilarTitlesWithDifferentSize(t *testing.T) {
	results := []SearchResult{
		{IndexerName: "IndexerA", Title: "The Matrix 1999 2160p BluRay REMUX", Size: 40_000_000_000},
		{IndexerName: "IndexerB", Title: "The Matrix 1999 2160p BluRay REMUX", Size: 4_000_000_000},
	}

	deduped := Dedupe(results)

	assert.Len(t, deduped, 2)
}

func TestDedupe_KeepsDissimilarTitlesSameSize(t *testing.T) {
	results := []SearchResult{
		{IndexerName: "IndexerA", Title: "Movie One 2020 1080p", Size: 8_000_000_000},
		{IndexerName: "IndexerB", Title: "Movie Two 2021 1080p", Size: 8_000_000_000},
	}

	deduped := Dedupe(results)

	assert.Len(t, deduped, 2)
}

func TestDedupe_EmptyInput(t *testing.T) {
	assert.Empty(t, Dedupe(nil))
}

func TestSameSizeBucket(t *testing.T) {
	tests := []struct {
		name string
		a, b int64
		want bool
	}{
		{"identical", 1000, 1000, true},
		{"within 5 percent", 1000, 1040, true},
		{"outside 5 percent", 1000, 1200, false},
		{"both zero", 0, 0, true},
		{"one zero", 0, 1000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sameSizeBucket(tt.a, tt.b))
		})
	}
}

func TestNormalizeTitle(t *testing.T) {
	assert.Equal(t, "the matrix 1999 2160p bluray remux", normalizeTitle("The.Matrix.1999.2160p.BluRay.REMUX"))
	assert.Equal(t, "the matrix 1999 2160p bluray remux", normalizeTitle("The Matrix 1999 2160p BluRay REMUX"))
}
