package patch

// Error codes carried by Error.
const (
	CodeParse          = "PARSE_ERROR"
	CodeHunkMismatch   = "HUNK_MISMATCH"
	CodeHunkOutOfRange = "HUNK_OUT_OF_RANGE"
)

// HunkStatus tracks how a hunk was handled when applying a patch.
type HunkStatus struct {
	Number int    `json:"number"`
	Status string `json:"status"`
}

// Hunk statuses.
const (
	StatusApplied  = "applied"
	StatusSkipped  = "skipped"
	StatusMismatch = "no-match"
	StatusRange    = "out-of-range"
)

// FailedHunk stores the raw lines of the hunk that could not be applied.
type FailedHunk struct {
	Number        int      `json:"number"`
	RawPatchLines []string `json:"rawPatchLines"`
}

// Error represents a structured failure while parsing or applying a patch.
// It satisfies the error interface so it can be returned directly.
type Error struct {
	Message         string
	Code            string
	RelativePath    string
	Line            int
	OriginalContent string
	HunkStatuses    []HunkStatus
	FailedHunk      *FailedHunk
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return "patch error"
}
