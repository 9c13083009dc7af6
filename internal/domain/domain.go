package domain

import "time"

// SourceKind identifies how a source's raw content is obtained and parsed.
type SourceKind string

const (
	KindText SourceKind = "text"
	KindPDF  SourceKind = "pdf"
	KindURL  SourceKind = "url"
)

// SourceStatus tracks a source through ingestion.
type SourceStatus string

const (
	StatusPending SourceStatus = "pending"
	StatusReady   SourceStatus = "ready"
	StatusFailed  SourceStatus = "failed"
)

// Source is one ingested origin: an uploaded file or a fetched URL.
// ID is a stable hash of the origin (file content, or the normalized URL),
// so resubmitting identical content resolves to the same source.
type Source struct {
	ID         string
	Kind       SourceKind
	Origin     string // file name or URL, for display and citation
	Title      string
	IngestedAt time.Time
	Status     SourceStatus
	Error      string // detail when Status == StatusFailed
}

// Chunk is a bounded span of normalized text cut from one source.
// Chunks are immutable once created. Index is the zero-based position
// within the source; the positional fields are provenance for citation
// and are filled per kind (Page for pdf, Offset for text, Anchor for url).
type Chunk struct {
	ID       string
	SourceID string
	Text     string
	Index    int
	Page     int
	Offset   int
	Anchor   string
}

// SearchResult pairs a chunk with its relevance score for one query.
type SearchResult struct {
	Chunk  Chunk
	Score  float64
	Source Source
}

// Delta is the set of chunk additions and removals applied to the index
// in one atomic step.
type Delta struct {
	Source  Source
	Added   []Chunk
	Removed []Chunk
}

// Empty reports whether applying the delta would not change the index.
func (d Delta) Empty() bool { return len(d.Added) == 0 && len(d.Removed) == 0 }

// JobState is the lifecycle of one ingestion job: pending until the
// source's chunks are published (ready) or the job gives up (failed).
// Ready and failed are terminal.
type JobState string

const (
	JobPending JobState = "pending"
	JobReady   JobState = "ready"
	JobFailed  JobState = "failed"
)

// JobStatus is the observable state of an ingestion job.
type JobStatus struct {
	Handle   string
	SourceID string
	Origin   string
	State    JobState
	Error    string
}

// Terminal reports whether the job has finished, successfully or not.
func (s JobStatus) Terminal() bool { return s.State == JobReady || s.State == JobFailed }
