package app

import (
	"github.com/montanaflynn/stats"

	"termarea/domain/annotation"
	domainStats "termarea/domain/stats"
)

// Aggregate turns a flat list of annotations into per-image, per-term statistics.
//
// Images and terms keep the order they are given in. Records are expected to be
// scoped already (project, terms, images, users, review state). An annotation with
// several terms is counted once for its image and once in every matching term.
// Images sharing a filename collapse into one entry: the later image replaces the
// earlier one but keeps its position.
func Aggregate(images []annotation.Image, terms []annotation.Term, records []annotation.Record) domainStats.AreaSummary {
	summary := domainStats.AreaSummary{Images: make([]domainStats.ImageStats, 0, len(images))}
	position := make(map[string]int, len(images))

	for _, img := range images {
		is := aggregateImage(img, terms, recordsOfImage(records, img.ID))
		if i, seen := position[img.Filename]; seen {
			summary.Images[i] = is
			continue
		}
		position[img.Filename] = len(summary.Images)
		summary.Images = append(summary.Images, is)
	}
	return summary
}

// DuplicateFilenames lists filenames shared by more than one image, in first-seen order
func DuplicateFilenames(images []annotation.Image) []string {
	seen := make(map[string]int, len(images))
	var dups []string
	for _, img := range images {
		seen[img.Filename]++
		if seen[img.Filename] == 2 {
			dups = append(dups, img.Filename)
		}
	}
	return dups
}

func aggregateImage(img annotation.Image, terms []annotation.Term, population []annotation.Record) domainStats.ImageStats {
	imageTotal := sumAreas(areasOf(population))

	termStats := make([]domainStats.TermStats, 0, len(terms))
	for _, term := range terms {
		termStats = append(termStats, aggregateTerm(term, recordsWithTerm(population, term.ID), imageTotal))
	}

	return domainStats.ImageStats{
		ImageID:  img.ID,
		Filename: img.Filename,
		Count:    len(population),
		Total:    imageTotal,
		Ratio:    1.0,
		Terms:    termStats,
	}
}

func aggregateTerm(term annotation.Term, subset []annotation.Record, imageTotal float64) domainStats.TermStats {
	areas := areasOf(subset)
	total := sumAreas(areas)

	mean, err := stats.Mean(areas)
	if err != nil {
		mean = domainStats.MeanUndefined()
	}

	ratio := 0.0
	if imageTotal > 0 {
		ratio = total / imageTotal
	}

	entries := make([]domainStats.AreaEntry, 0, len(subset))
	for _, r := range subset {
		entries = append(entries, domainStats.AreaEntry{CreatedAt: r.CreatedAt, Area: r.Area})
	}

	return domainStats.TermStats{
		TermID:      term.ID,
		Name:        term.Name,
		Count:       len(subset),
		Total:       total,
		Mean:        mean,
		Ratio:       ratio,
		Annotations: entries,
	}
}

// sumAreas is stats.Sum with the empty sum defined as zero
func sumAreas(areas []float64) float64 {
	if len(areas) == 0 {
		return 0
	}
	total, err := stats.Sum(areas)
	if err != nil {
		return 0
	}
	return total
}

func recordsOfImage(records []annotation.Record, imageID annotation.ID) []annotation.Record {
	var out []annotation.Record
	for _, r := range records {
		if r.ImageID == imageID {
			out = append(out, r)
		}
	}
	return out
}

func recordsWithTerm(records []annotation.Record, termID annotation.ID) []annotation.Record {
	var out []annotation.Record
	for _, r := range records {
		if r.HasTerm(termID) {
			out = append(out, r)
		}
	}
	return out
}

func areasOf(records []annotation.Record) []float64 {
	areas := make([]float64, len(records))
	for i, r := range records {
		areas[i] = r.Area
	}
	return areas
}
