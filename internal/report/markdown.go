package report

import (
	"fmt"
	"io"

	"github.com/io-crosscheck/backend/internal/models"
)

// WriteMarkdown renders a compact summary suitable for pipeline logs and
// commit messages: the classification table, every open conflict, and
// the L5X alias tables when the run was enriched.
func WriteMarkdown(results []*models.MatchResult, summary Summary, w io.Writer) error {
	var err error
	p := func(format string, args ...any) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}

	p("# IO Crosscheck Summary\n\n")
	p("| Classification | Count | Percentage |\n")
	p("| --- | ---: | ---: |\n")
	for _, cls := range classificationOrder {
		count := summary.Count(cls)
		if count == 0 {
			continue
		}
		p("| %s | %d | %s |\n", cls, count, summary.Percentage(count))
	}
	p("\n**Total:** %d  \n**Conflicts requiring review:** %d\n", summary.Total, summary.Conflicts)

	if summary.Conflicts > 0 {
		p("\n## Conflicts\n\n")
		for _, r := range results {
			if !r.ConflictFlag {
				continue
			}
			var io models.IODevice
			if r.IODevice != nil {
				io = *r.IODevice
			}
			p("- `%s` / `%s` at `%s`", io.DeviceTag, io.IOTag, io.PLCAddress)
			if r.PLCTag != nil && r.PLCTag.Description != "" {
				p(" — PLC says %q", r.PLCTag.Description)
			}
			p("\n")
			for _, line := range r.AuditTrail {
				p("  - %s\n", line)
			}
		}
	}

	if len(summary.MsgTags) > 0 {
		p("\n## MSG Communication Aliases\n\n")
		p("| Name | Alias For | Direction |\n")
		p("| --- | --- | --- |\n")
		for _, a := range summary.MsgTags {
			p("| %s | %s | %s |\n", a.Name, a.AliasFor, a.Direction)
		}
	}

	if len(summary.ConsumedTags) > 0 {
		p("\n## Consumed Tags\n\n")
		p("| Name | Alias For | Description |\n")
		p("| --- | --- | --- |\n")
		for _, a := range summary.ConsumedTags {
			p("| %s | %s | %s |\n", a.Name, a.AliasFor, a.Description)
		}
	}

	return err
}
