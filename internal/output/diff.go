package output

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DiffResult holds a unified diff between two renderings.
type DiffResult struct {
	Unified        string
	HasDifferences bool
	Added          int
	Removed        int
}

// DiffOptions configures diff computation.
type DiffOptions struct {
	OldLabel string
	NewLabel string
	Context  int
}

// DefaultDiffOptions labels the sides "input" and "filtered".
func DefaultDiffOptions() DiffOptions {
	return DiffOptions{
		OldLabel: "input",
		NewLabel: "filtered",
		Context:  3,
	}
}

// Diff computes a unified diff from before to after.
func Diff(before, after []byte, opts DiffOptions) (*DiffResult, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: opts.OldLabel,
		ToFile:   opts.NewLabel,
		Context:  opts.Context,
	}

	unified, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return nil, fmt.Errorf("computing diff: %w", err)
	}

	res := &DiffResult{Unified: unified, HasDifferences: unified != ""}

	for _, line := range strings.Split(unified, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			res.Added++
		case strings.HasPrefix(line, "-"):
			res.Removed++
		}
	}

	return res, nil
}
