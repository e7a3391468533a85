package tasks

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// unifiedDiff returns the unified diff between the old and new contents of filename.
// It is empty when both are equal.
func unifiedDiff(filename, before, after string) (string, error) {
	if before == after {
		return "", nil
	}
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: fmt.Sprintf("%s (original)", filename),
		ToFile:   fmt.Sprintf("%s (new)", filename),
		Context:  3,
		Eol:      "\n",
	}
	return difflib.GetUnifiedDiffString(diff)
}
