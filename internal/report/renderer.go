// Package report renders area statistics as a column-aligned, comma-delimited
// text report.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"

	"termarea/domain/annotation"
	"termarea/domain/core"
	"termarea/domain/stats"
)

const (
	delimiter = ","

	titleTotal = "Total annotation area per image and per term"
	titleCount = "Annotation count per image and per term"
	titleRatio = "Area ratio per image and per term"
)

var (
	sectionRule = strings.Repeat("*", 30)
	imageRule   = strings.Repeat("*", 15)
)

// Renderer turns an AreaSummary into report lines. Timestamps are shown in Location.
type Renderer struct {
	Location *time.Location
}

// NewRenderer creates a renderer showing timestamps in loc (local time when nil)
func NewRenderer(loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.Local
	}
	return &Renderer{Location: loc}
}

// Render renders the report with timestamps in local time
func Render(summary stats.AreaSummary, terms []annotation.Term) []string {
	return NewRenderer(time.Local).Render(summary, terms)
}

// Render produces the four report blocks (total, count and ratio matrices, then the
// per-image details) and pads every line to the same number of fields.
func (r *Renderer) Render(summary stats.AreaSummary, terms []annotation.Term) []string {
	names := make([]string, len(terms))
	for i, t := range terms {
		names[i] = t.Name
	}
	header := strings.Join(append(append([]string{"Image"}, names...), "Total"), delimiter)

	var lines []string

	lines = append(lines, titleTotal, header)
	lines = append(lines, totalMatrix(summary, names)...)
	lines = append(lines, "")

	lines = append(lines, titleCount, header)
	lines = append(lines, countMatrix(summary, names)...)
	lines = append(lines, "")

	lines = append(lines, titleRatio, header)
	lines = append(lines, ratioMatrix(summary, names)...)
	lines = append(lines, "")

	lines = append(lines, r.details(summary, names)...)

	return Pad(lines)
}

func totalMatrix(summary stats.AreaSummary, names []string) []string {
	rows := make([]string, 0, summary.Len()+1)
	columns := make([][]float64, len(names)+1)
	for _, is := range summary.Images {
		fields := make([]string, 0, len(names)+2)
		fields = append(fields, is.Filename)
		for i, name := range names {
			ts, _ := is.Term(name)
			fields = append(fields, FormatFloat(ts.Total))
			columns[i] = append(columns[i], ts.Total)
		}
		fields = append(fields, FormatFloat(is.Total))
		columns[len(names)] = append(columns[len(names)], is.Total)
		rows = append(rows, strings.Join(fields, delimiter))
	}

	totals := []string{"Total"}
	for _, col := range columns {
		totals = append(totals, FormatFloat(floats.Sum(col)))
	}
	return append(rows, strings.Join(totals, delimiter))
}

func countMatrix(summary stats.AreaSummary, names []string) []string {
	rows := make([]string, 0, summary.Len()+1)
	sums := make([]int, len(names)+1)
	for _, is := range summary.Images {
		fields := make([]string, 0, len(names)+2)
		fields = append(fields, is.Filename)
		for i, name := range names {
			ts, _ := is.Term(name)
			fields = append(fields, strconv.Itoa(ts.Count))
			sums[i] += ts.Count
		}
		fields = append(fields, strconv.Itoa(is.Count))
		sums[len(names)] += is.Count
		rows = append(rows, strings.Join(fields, delimiter))
	}

	totals := []string{"Total"}
	for _, s := range sums {
		totals = append(totals, strconv.Itoa(s))
	}
	return append(rows, strings.Join(totals, delimiter))
}

// ratioMatrix has no Total row: ratios of different images do not add up.
func ratioMatrix(summary stats.AreaSummary, names []string) []string {
	rows := make([]string, 0, summary.Len())
	for _, is := range summary.Images {
		fields := make([]string, 0, len(names)+2)
		fields = append(fields, is.Filename)
		for _, name := range names {
			ts, _ := is.Term(name)
			fields = append(fields, FormatFloat(ts.Ratio))
		}
		fields = append(fields, FormatFloat(is.Ratio))
		rows = append(rows, strings.Join(fields, delimiter))
	}
	return rows
}

func (r *Renderer) details(summary stats.AreaSummary, names []string) []string {
	lines := []string{sectionRule, "Details", sectionRule}
	for i, is := range summary.Images {
		lines = append(lines, imageRule, fmt.Sprintf("Image %d", i+1), is.Filename)
		for _, name := range names {
			ts, _ := is.Term(name)
			lines = append(lines, name, "Created"+delimiter+"Area")
			for _, a := range ts.Annotations {
				lines = append(lines, r.FormatTimestamp(a.CreatedAt)+delimiter+FormatFloat(a.Area))
			}
			lines = append(lines,
				"",
				"Annotation count"+delimiter+strconv.Itoa(ts.Count),
				"Annotation average area"+delimiter+FormatFloat(ts.Mean),
				"Annotation total area"+delimiter+FormatFloat(ts.Total),
				"",
			)
		}
		lines = append(lines, "", "")
	}
	return lines
}

// Pad appends delimiters so every line has as many fields as the widest one.
// Existing content is never changed or reordered.
func Pad(lines []string) []string {
	widest := 0
	for _, l := range lines {
		if n := strings.Count(l, delimiter); n > widest {
			widest = n
		}
	}

	padded := make([]string, len(lines))
	for i, l := range lines {
		if missing := widest - strings.Count(l, delimiter); missing > 0 {
			l += strings.Repeat(delimiter, missing)
		}
		padded[i] = l
	}
	return padded
}

// FormatFloat prints v in its shortest exact decimal form; the undefined mean prints as NaN
func FormatFloat(v float64) string {
	if stats.IsMeanUndefined(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatTimestamp prints milliseconds since epoch as "2006-01-02 15:04:05" with a
// microsecond fraction when there is one.
func (r *Renderer) FormatTimestamp(ms int64) string {
	t := core.FromMillis(ms).Time().In(r.Location)
	s := t.Format("2006-01-02 15:04:05")
	if us := t.Nanosecond() / 1000; us != 0 {
		s += fmt.Sprintf(".%06d", us)
	}
	return s
}
