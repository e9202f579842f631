package mcpserver

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/worklog/internal/logdate"
)

// TitleFormatURI is the resource URI of the title format contract.
const TitleFormatURI = "worklog://title-format"

const titleFormatHeader = `# Work Log Title Format

A workday counts as logged when any note title in the Xuexitong notes list
contains one of the renderings of its date below. Digits right before or
after the date break the match, so "202601280" does not cover 2026-01-28,
and a month alone such as "202601" covers nothing.

Generated drafts use these titles:

- daily: ` + "`工作日志 YYYY-MM-DD`" + `
- weekly: ` + "`周报 YYYY-MM-DD~YYYY-MM-DD`" + ` (Monday to Friday)

Drafts are Markdown files with YAML frontmatter (` + "`title`, `date`, `kind`" + `)
stored as ` + "`daily/YYYY-MM-DD.md`" + ` and ` + "`weekly/YYYY-Www.md`" + `.
`

// TitleFormatContract describes the accepted title renderings, using
// example as the sample date.
func TitleFormatContract(set logdate.FormatSet, example time.Time) string {
	var b strings.Builder
	b.WriteString(titleFormatHeader)
	fmt.Fprintf(&b, "\n## Accepted renderings (%s set) for %s\n\n", set, example.Format("2006-01-02"))
	for _, f := range logdate.Formats(example, set) {
		fmt.Fprintf(&b, "- `%s`\n", f)
	}
	return b.String()
}
