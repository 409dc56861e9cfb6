package pattern

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/agext/levenshtein"

	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/aescanero/pdqflow/pkg/plugin"
)

// Option keys and detected-table columns of the pattern plugins.
const (
	// OptColumn names the inspected column.
	OptColumn = "column"
	// OptThreshold is the minimum similarity, between 0 and 1, for two
	// labels to count as variants.
	OptThreshold = "threshold"

	// ColLabel holds a label found in the master table.
	ColLabel = "label"
	// ColReplacement holds the value ColLabel is rewritten to.
	ColReplacement = "replacement"
	// ColSimilarity holds the similarity of the two labels.
	ColSimilarity = "similarity"
)

// DistortedLabel finds near-identical values in a column, such as
// "Madrid" and "Madird". Each detected label is mapped to the most
// frequent similar value; Repair rewrites the column using that mapping.
type DistortedLabel struct {
	opts *plugin.Options
}

// NewDistortedLabel creates the pattern with a 0.8 similarity threshold.
func NewDistortedLabel() *DistortedLabel {
	return &DistortedLabel{
		opts: plugin.NewOptions().
			Default(OptColumn, "").
			Default(OptThreshold, 0.8),
	}
}

// Describe returns the catalogue entry of DistortedLabel.
func (d *DistortedLabel) Describe() plugin.Descriptor {
	return plugin.Descriptor{
		Name:        "Distorted Label",
		Synopsis:    "Detects misspelled categorical values",
		Description: "Values whose Levenshtein similarity reaches the threshold are merged into the most frequent one.",
		Version:     "1.0",
		Group:       "Consistency",
		MaxInputs:   1,
		MaxOutputs:  plugin.Unlimited,
	}
}

// Options returns the options of DistortedLabel.
func (d *DistortedLabel) Options() *plugin.Options { return d.opts }

// CanRepair is true: labels are rewritten on resume.
func (d *DistortedLabel) CanRepair() bool { return true }

func (d *DistortedLabel) column(t *domain.Table) (int, error) {
	name, err := d.opts.String(OptColumn)
	if err != nil {
		return 0, err
	}
	i := t.ColumnIndex(name)
	if i < 0 {
		return 0, &plugin.InvalidOptionError{Key: OptColumn, Reason: fmt.Sprintf("unknown column %q", name)}
	}
	return i, nil
}

type label struct {
	value string
	count int
}

// Detect lists every label that maps onto a more frequent similar label.
// Labels are compared most frequent first.
func (d *DistortedLabel) Detect(ctx context.Context, master *domain.Table) (*domain.Table, error) {
	col, err := d.column(master)
	if err != nil {
		return nil, err
	}
	threshold, err := d.opts.Float(OptThreshold)
	if err != nil {
		return nil, err
	}
	if threshold <= 0 || threshold > 1 {
		return nil, &plugin.InvalidOptionError{Key: OptThreshold, Reason: "must be in (0, 1]"}
	}

	counts := make(map[string]int)
	for _, row := range master.Rows {
		if col < len(row) && row[col] != "" {
			counts[row[col]]++
		}
	}
	labels := make([]label, 0, len(counts))
	for v, c := range counts {
		labels = append(labels, label{value: v, count: c})
	}
	// Most frequent first; ties by value.
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].count != labels[j].count {
			return labels[i].count > labels[j].count
		}
		return labels[i].value < labels[j].value
	})

	out := domain.NewTable("distorted", ColLabel, ColReplacement, ColSimilarity)
	mapped := make(map[string]bool)
	for i, canon := range labels {
		if mapped[canon.value] {
			continue
		}
		for _, other := range labels[i+1:] {
			if mapped[other.value] {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			sim := levenshtein.Similarity(canon.value, other.value, nil)
			if sim >= threshold {
				mapped[other.value] = true
				out.AppendRow(other.value, canon.value, strconv.FormatFloat(sim, 'f', 3, 64))
			}
		}
	}
	return out, nil
}

// Repair applies the label to replacement mapping of detected, which may
// have been edited since detection.
func (d *DistortedLabel) Repair(ctx context.Context, master, detected *domain.Table) (*domain.Table, error) {
	col, err := d.column(master)
	if err != nil {
		return nil, err
	}
	from, to := detected.ColumnIndex(ColLabel), detected.ColumnIndex(ColReplacement)
	if from < 0 || to < 0 {
		return nil, fmt.Errorf("detected table needs %q and %q columns", ColLabel, ColReplacement)
	}

	mapping := make(map[string]string, len(detected.Rows))
	for _, row := range detected.Rows {
		if from < len(row) && to < len(row) {
			mapping[row[from]] = row[to]
		}
	}

	out := master.Clone()
	for _, row := range out.Rows {
		if col >= len(row) {
			continue
		}
		if r, ok := mapping[row[col]]; ok {
			row[col] = r
		}
	}
	return out, nil
}
