package alerts

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/timzifer/aquasync/remote"
)

// Summary aggregates one sensor key over a history window. Accumulation uses
// decimals to keep sums free of float drift across large windows.
type Summary struct {
	Key     string          `json:"key"`
	Min     decimal.Decimal `json:"min"`
	Max     decimal.Decimal `json:"max"`
	Mean    decimal.Decimal `json:"mean"`
	Samples int             `json:"samples"`
}

// SummarizeHistory computes per-key min/max/mean over the supplied history
// entries. Null readings are skipped; keys without a single non-null sample
// are omitted. The result is sorted by key.
func SummarizeHistory(entries []remote.HistoryEntry) []Summary {
	type accumulator struct {
		min, max, sum decimal.Decimal
		samples       int
	}
	acc := make(map[string]*accumulator)
	for _, entry := range entries {
		for key, value := range entry.Readings {
			if value == nil {
				continue
			}
			d := decimal.NewFromFloat(*value)
			a, ok := acc[key]
			if !ok {
				acc[key] = &accumulator{min: d, max: d, sum: d, samples: 1}
				continue
			}
			if d.LessThan(a.min) {
				a.min = d
			}
			if d.GreaterThan(a.max) {
				a.max = d
			}
			a.sum = a.sum.Add(d)
			a.samples++
		}
	}
	result := make([]Summary, 0, len(acc))
	for key, a := range acc {
		mean := a.sum.Div(decimal.NewFromInt(int64(a.samples)))
		result = append(result, Summary{Key: key, Min: a.min, Max: a.max, Mean: mean, Samples: a.samples})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}
