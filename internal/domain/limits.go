package domain

const (
	MaxNoteLength    = 1000
	MaxReportLength  = 2000
	MinQueryLength   = 2
	MinManualLength  = 5
	MinProblemLength = 10
	DefaultPageSize  = 5
	// SearchResultLimit caps the media results offered for disambiguation.
	SearchResultLimit = 3
)
