package metadata

import (
	"fmt"
	"sort"
	"strings"
)

// IssueKind classifies a validation finding.
type IssueKind int

const (
	// Structural issues are malformed shapes: key order, missing fields, unsorted lists.
	Structural IssueKind = iota + 1
	// Consistency issues are content-type or product sets that disagree with the captions.
	Consistency
	// Referential issues are broken cross references between sections or the filesystem.
	Referential
	// Completeness issues are warnings about unfinished tagging; strict mode promotes them.
	Completeness
)

func (k IssueKind) String() string {
	switch k {
	case Structural:
		return "structural"
	case Consistency:
		return "consistency"
	case Referential:
		return "referential"
	case Completeness:
		return "completeness"
	}
	return "unknown"
}

// Issue is one validation finding. ID deduplicates repeated warnings within
// a single validation call.
type Issue struct {
	Kind    IssueKind
	ID      string
	Message string
}

func (i Issue) String() string { return i.Message }

// Report is the outcome of one validation call.
type Report struct {
	Valid    bool
	Errors   []Issue
	Warnings []Issue
}

// ErrorMessages returns the error texts in report order.
func (r Report) ErrorMessages() []string { return messages(r.Errors) }

// WarningMessages returns the warning texts in report order.
func (r Report) WarningMessages() []string { return messages(r.Warnings) }

// Err returns a *ValidationError when the report is invalid.
func (r Report) Err() error {
	if r.Valid {
		return nil
	}
	return &ValidationError{Issues: r.Errors}
}

// ValidationError wraps the errors of an invalid report.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	switch len(e.Issues) {
	case 0:
		return "metadata validation failed"
	case 1:
		return "metadata validation failed: " + e.Issues[0].Message
	}
	return fmt.Sprintf("metadata validation failed with %d errors; first: %s", len(e.Issues), e.Issues[0].Message)
}

func messages(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, issue := range issues {
		out = append(out, issue.Message)
	}
	return out
}

// validProductList renders the wildcard followed by the sorted declared names.
func validProductList(names []string) string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	return strings.Join(append([]string{Wildcard}, sorted...), ", ")
}
