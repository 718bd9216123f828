package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reelforge/reelforge/internal/parser"
)

func TestRank(t *testing.T) {
	tests := []struct {
		name string
		tier string
		want int
	}{
		{"known tier matches BaseQualityScores", "Remux-2160p", BaseQualityScores["Remux-2160p"]},
		{"mid tier matches BaseQualityScores", "WEBDL-1080p", BaseQualityScores["WEBDL-1080p"]},
		{"unrecognized tier falls back to Unknown", "Garbage-Tier", BaseQualityScores["Unknown"]},
		{"empty tier falls back to Unknown", "", BaseQualityScores["Unknown"]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Rank(tt.tier))
		})
	}
}

func TestRank_Ordering(t *testing.T) {
	// Higher-fidelity tiers must always rank above lower-fidelity ones;
	// this is the invariant upgrade-checking depends on.
	assert.Greater(t, Rank("Remux-2160p"), Rank("Bluray-2160p"))
	assert.Greater(t, Rank("Bluray-2160p"), Rank("Remux-1080p"))
	assert.Greater(t, Rank("Remux-1080p"), Rank("Bluray-1080p"))
	assert.Greater(t, Rank("Bluray-720p"), Rank("DVD"))
	assert.Greater(t, Rank("DVD"), Rank("SDTV"))
}

func TestGetAudioScore(t *testing.T) {
	tests := []struct {
		name   string
		format string
		want   int
	}{
		{"Atmos ranks highest", "Atmos", audioRank["atmos"]},
		{"TrueHD and DTS-HD MA rank equal", "TrueHD", audioRank["truehd"]},
		{"case insensitive", "DDPLUS", audioRank["ddplus"]},
		{"unknown format scores zero", "mp3", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetAudioScore(tt.format))
		})
	}

	assert.Greater(t, GetAudioScore("atmos"), GetAudioScore("dts"))
	assert.Greater(t, GetAudioScore("flac"), GetAudioScore("dd"))
}

func TestComputeQualityTier(t *testing.T) {
	tests := []struct {
		name    string
		release *parser.ParsedRelease
		want    string
	}{
		{
			name:    "2160p remux",
			release: &parser.ParsedRelease{Resolution: "2160p", Source: "remux"},
			want:    "Remux-2160p",
		},
		{
			name:    "1080p bluray",
			release: &parser.ParsedRelease{Resolution: "1080p", Source: "bluray"},
			want:    "Bluray-1080p",
		},
		{
			name:    "720p with no recognized source defaults to WEBDL-720p",
			release: &parser.ParsedRelease{Resolution: "720p"},
			want:    "WEBDL-720p",
		},
		{
			name:    "dvd source with no resolution",
			release: &parser.ParsedRelease{Source: "dvd"},
			want:    "DVD",
		},
		{
			name:    "nothing recognized",
			release: &parser.ParsedRelease{},
			want:    "Unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeQualityTier(tt.release))
		})
	}
}

func TestScoreRelease_RejectsDisabledQuality(t *testing.T) {
	release := &parser.ParsedRelease{Resolution: "720p", Source: "hdtv"}
	profile := &Profile{
		Qualities:      []string{"Remux-2160p", "Bluray-2160p"},
		MinFormatScore: 0,
	}

	scored := ScoreRelease(release, profile, nil)

	assert.True(t, scored.Rejected)
	assert.Equal(t, "Quality not enabled in profile", scored.RejectionReason)
}

func TestScoreRelease_AppliesCustomFormatScores(t *testing.T) {
	release := &parser.ParsedRelease{Resolution: "2160p", Source: "remux", Codec: "x265"}
	profile := &Profile{
		Qualities:          []string{},
		CustomFormatScores: map[int64]int{1: 500},
	}
	formats := []CustomFormatDef{
		{
			ID:   1,
			Name: "x265",
			Conditions: []Condition{
				{Type: "codec", Value: "x265", Required: true},
			},
		},
	}

	scored := ScoreRelease(release, profile, formats)

	assert.False(t, scored.Rejected)
	assert.Len(t, scored.CustomFormatHits, 1)
	assert.Equal(t, BaseQualityScores["Remux-2160p"]+500, scored.TotalScore)
}
