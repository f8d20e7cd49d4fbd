package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAreaSummaryLookup(t *testing.T) {
	summary := AreaSummary{Images: []ImageStats{
		{ImageID: 2, Filename: "b.png", Terms: []TermStats{{Name: "T1", Count: 1}}},
		{ImageID: 1, Filename: "a.png"},
	}}

	assert.Equal(t, 2, summary.Len())
	assert.Equal(t, []string{"b.png", "a.png"}, summary.Filenames())

	img, ok := summary.Image("b.png")
	assert.True(t, ok)
	ts, ok := img.Term("T1")
	assert.True(t, ok)
	assert.Equal(t, 1, ts.Count)

	_, ok = img.Term("T2")
	assert.False(t, ok)
	_, ok = summary.Image("c.png")
	assert.False(t, ok)
}

func TestEmptySummary(t *testing.T) {
	var summary AreaSummary
	assert.Equal(t, 0, summary.Len())
	assert.Empty(t, summary.Filenames())
}

func TestMeanUndefined(t *testing.T) {
	assert.True(t, IsMeanUndefined(MeanUndefined()))
	assert.False(t, IsMeanUndefined(0))
}
