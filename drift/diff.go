package drift

import (
	"github.com/pmezard/go-difflib/difflib"
)

// diffContext is the number of unchanged lines shown around each hunk.
const diffContext = 3

// Diff renders a unified diff from the on-disk content to the fresh content.
// Orphans diff against nothing; an Unchanged result has an empty diff.
func Diff(r Result) string {
	if r.Outcome == Unchanged {
		return ""
	}
	var fresh []byte
	if r.Artifact != nil {
		fresh = r.Artifact.Content
	}
	from, to := "a/"+r.Path, "b/"+r.Path
	if r.Current == nil {
		from = "/dev/null"
	}
	if r.Artifact == nil {
		to = "/dev/null"
	}
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        lines(r.Current),
		B:        lines(fresh),
		FromFile: from,
		ToFile:   to,
		Context:  diffContext,
	})
	if err != nil {
		return ""
	}
	return text
}

func lines(b []byte) []string {
	if len(b) == 0 {
		return nil
	}
	return difflib.SplitLines(string(b))
}
