// Package report renders the final ResultTree of a matrix run.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/harrison/relmatrix/internal/matrix"
)

// resultsHeader precedes the serialized tree on standard output.
const resultsHeader = "+++ Results +++"

// Print writes the results header and the ResultTree as 2-space-indented
// JSON. This is the run's sole machine-readable artifact.
func Print(w io.Writer, tree *matrix.ResultTree) error {
	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize results: %w", err)
	}

	if _, err := fmt.Fprintf(w, "%s\n%s\n", resultsHeader, data); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}

// Summary writes a human-oriented pass/fail recap after the JSON block.
// Colors degrade to plain text automatically when w is not a TTY.
func Summary(w io.Writer, tree *matrix.ResultTree) {
	total := tree.LeafCount()
	failures := tree.Failures()
	passed := total - len(failures)

	green := color.New(color.FgGreen).FprintfFunc()
	red := color.New(color.FgRed).FprintfFunc()

	fmt.Fprintf(w, "\n%d unit(s) run: ", total)
	green(w, "%d passed", passed)
	fmt.Fprint(w, ", ")
	if len(failures) > 0 {
		red(w, "%d failed", len(failures))
	} else {
		fmt.Fprint(w, "0 failed")
	}
	fmt.Fprintln(w)

	for _, f := range failures {
		red(w, "  FAILED %s/%s/%s/%s\n", f.Interface, f.Version, f.Role, f.Charm)
	}
}
