package stats

import (
	"math"

	"termarea/domain/annotation"
)

// AreaEntry is one annotation as listed in the detail section of a report
type AreaEntry struct {
	CreatedAt int64   `json:"created"` // milliseconds since epoch
	Area      float64 `json:"area"`
}

// TermStats holds the statistics of one term on one image
type TermStats struct {
	TermID      annotation.ID `json:"term_id"`
	Name        string        `json:"name"`
	Count       int           `json:"count"`
	Total       float64       `json:"total"`
	Mean        float64       `json:"mean"` // MeanUndefined() when Count == 0
	Ratio       float64       `json:"ratio"`
	Annotations []AreaEntry   `json:"annotations"`
}

// ImageStats holds the statistics of one image. Ratio is the 100% baseline.
type ImageStats struct {
	ImageID  annotation.ID `json:"image_id"`
	Filename string        `json:"filename"`
	Count    int           `json:"count"`
	Total    float64       `json:"total"`
	Ratio    float64       `json:"ratio"`
	Terms    []TermStats   `json:"terms"`
}

// Term looks up the statistics of a term by name
func (s ImageStats) Term(name string) (TermStats, bool) {
	for _, ts := range s.Terms {
		if ts.Name == name {
			return ts, true
		}
	}
	return TermStats{}, false
}

// AreaSummary maps image filenames to their statistics, in insertion order.
type AreaSummary struct {
	Images []ImageStats `json:"images"`
}

// Len returns the number of images in the summary
func (s AreaSummary) Len() int {
	return len(s.Images)
}

// Image looks up the statistics of an image by filename
func (s AreaSummary) Image(filename string) (ImageStats, bool) {
	for _, is := range s.Images {
		if is.Filename == filename {
			return is, true
		}
	}
	return ImageStats{}, false
}

// Filenames returns the row keys in order
func (s AreaSummary) Filenames() []string {
	names := make([]string, 0, len(s.Images))
	for _, is := range s.Images {
		names = append(names, is.Filename)
	}
	return names
}

// MeanUndefined is the mean reported for an empty annotation population.
func MeanUndefined() float64 {
	return math.NaN()
}

// IsMeanUndefined reports whether v is the empty-population sentinel
func IsMeanUndefined(v float64) bool {
	return math.IsNaN(v)
}
