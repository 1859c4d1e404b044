package model

// RawFile is a parsed CSV export before any schema interpretation: the
// original header row plus every record, untyped. Owner comes from the feed
// context the caller supplies (in practice, the export subdirectory).
type RawFile struct {
	Name    string
	Owner   string
	Headers []string
	Rows    [][]string
}

// SkippedFile records a file the run could not process and why.
type SkippedFile struct {
	Name   string
	Reason string
}

// RunSummary is the user-visible accounting of a batch run.
type RunSummary struct {
	FilesProcessed  int
	FilesSkipped    []SkippedFile
	RowsFlagged     int
	ExactDupes      int
	FuzzyDupes      int
	ReviewQueued    int
	TransactionsOut int
}
