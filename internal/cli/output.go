package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/arthurljones/sqlite-diff/internal/pipeline"
)

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printReport writes a run report as JSON or human-readable text.
func printReport(w io.Writer, rep *pipeline.Report) error {
	if flags.jsonMode {
		return printJSON(w, rep)
	}

	s := rep.Summary
	if rep.Previous != "" {
		fmt.Fprintf(w, "Previous snapshot: %s\n", rep.Previous)
	} else {
		fmt.Fprintln(w, "Previous snapshot: none")
	}
	fmt.Fprintf(w, "Rows: %d added, %d modified, %d deleted, %d unchanged, %d skipped\n",
		s.Added, s.Modified, s.Deleted, s.Unchanged, s.Skipped)
	if s.TableEmptied {
		fmt.Fprintln(w, "WARNING: the source table is empty; every published row was deleted")
	}
	if rep.NoChanges {
		fmt.Fprintln(w, "No changes")
		return nil
	}
	if rep.Snapshot != nil {
		fmt.Fprintf(w, "Snapshot: %s (%d bytes, md5 %s)\n", rep.Snapshot.Path, rep.Snapshot.Size, rep.Snapshot.Checksum)
	}
	if rep.Changeset != nil {
		fmt.Fprintf(w, "Changeset: %s (%d bytes, md5 %s)\n", rep.Changeset.Path, rep.Changeset.Size, rep.Changeset.Checksum)
	}
	if len(rep.Published) > 0 {
		fmt.Fprintf(w, "Published: %s\n", strings.Join(rep.Published, ", "))
	}
	return nil
}
