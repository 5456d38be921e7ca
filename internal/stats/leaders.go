package stats

import (
	"sort"

	"perpscope/pkg/contracts/domain"
)

// leaderMetric names one leaderboard column and how to read it off a
// snapshot row.
type leaderMetric struct {
	metric string
	label  string
	get    func(domain.SnapshotRow) *float64
}

var leaderMetrics = []leaderMetric{
	{"volume", "Volume", func(r domain.SnapshotRow) *float64 { return r.Volume }},
	{"fees", "Fees", func(r domain.SnapshotRow) *float64 { return r.Fees }},
	{"openInterest", "Open Interest", func(r domain.SnapshotRow) *float64 { return r.OpenInterest }},
	{"takeRate", "Take Rate", func(r domain.SnapshotRow) *float64 { return r.TakeRate }},
	{"pf", "P/F Ratio", func(r domain.SnapshotRow) *float64 { return r.PF }},
}

// Snapshots builds the latest snapshot per protocol, dropping protocols with
// no populated points, sorted by volume descending under a stable sort.
func Snapshots(protocols []domain.ProtocolSeries) []domain.SnapshotRow {
	var rows []domain.SnapshotRow
	for _, protocol := range protocols {
		if row := LatestSnapshot(protocol); row != nil {
			rows = append(rows, *row)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return deref(rows[i].Volume) > deref(rows[j].Volume)
	})
	return rows
}

// Leaders selects, per metric, the snapshot row with the maximum value. Ties
// keep the first-seen row under the stable ordering of the input; no stricter
// tie semantics are promised.
func Leaders(snapshots []domain.SnapshotRow) []domain.Leader {
	out := make([]domain.Leader, 0, len(leaderMetrics))
	for _, lm := range leaderMetrics {
		var best *domain.SnapshotRow
		for i := range snapshots {
			value := lm.get(snapshots[i])
			if value == nil {
				continue
			}
			if best == nil || *value > *lm.get(*best) {
				best = &snapshots[i]
			}
		}
		leader := domain.Leader{Metric: lm.metric, Label: lm.label}
		if best != nil {
			row := *best
			leader.Row = &row
			leader.Value = lm.get(row)
		}
		out = append(out, leader)
	}
	return out
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func sortStrings(s []string) { sort.Strings(s) }
