package findings

import (
	"encoding/json"
	"io"
	"time"
)

// Report is the serialized summary of one qualifier run: a run header plus
// every finding and logged observation query, suitable for archival or
// comparison across runs.
type Report struct {
	StartedAt     time.Time                 `json:"started_at"`
	EndedAt       time.Time                 `json:"ended_at"`
	ObserverNames []string                  `json:"observer_names"`
	CountsByKind  map[Kind]int              `json:"counts_by_kind"`
	Findings      []Finding                 `json:"findings"`
	Queries       []ObservationQuerySummary `json:"queries"`
}

// ObservationQuerySummary is the report-persisted projection of a logged
// models.Query: just enough to audit timing and status without duplicating
// full response bodies for every poll.
type ObservationQuerySummary struct {
	URL        string        `json:"url"`
	StatusCode int           `json:"status_code"`
	Duration   time.Duration `json:"duration_ns"`
	Timestamp  time.Time     `json:"timestamp"`
}

// JSONReport builds a Report from a MemorySink and writes it to w.
type JSONReport struct {
	Sink          *MemorySink
	StartedAt     time.Time
	EndedAt       time.Time
	ObserverNames []string
}

// Build assembles the Report without writing it, for callers that want the
// structured value (e.g. to log a summary) before serializing.
func (r *JSONReport) Build() Report {
	queries := r.Sink.Queries()
	summaries := make([]ObservationQuerySummary, len(queries))
	for i, q := range queries {
		summaries[i] = ObservationQuerySummary{
			URL:        q.Request.URL,
			StatusCode: q.Response.StatusCode,
			Duration:   q.Duration(),
			Timestamp:  q.Request.Timestamp,
		}
	}

	return Report{
		StartedAt:     r.StartedAt,
		EndedAt:       r.EndedAt,
		ObserverNames: r.ObserverNames,
		CountsByKind:  r.Sink.CountByKind(),
		Findings:      r.Sink.Findings(),
		Queries:       summaries,
	}
}

// Write serializes the report to w as indented JSON.
func (r *JSONReport) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r.Build())
}
