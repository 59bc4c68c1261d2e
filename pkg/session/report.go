package session

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
)

// Report renders the final session summary: totals, per-kind error
// breakdown with remediation hints, and the success rate. A run with no
// errors and no rewrites reports "no changes needed" rather than silence.
func (s *Session) Report() string {
	var b strings.Builder

	processed := s.Processed()
	failed := s.Failed()
	changed := s.Changed()
	counts := s.Counts()

	header := color.New(color.Bold)
	good := color.New(color.FgGreen)
	bad := color.New(color.FgRed)
	warn := color.New(color.FgYellow)

	fmt.Fprintf(&b, "%s (session %s)\n", header.Sprint("rewrite summary"), s.ID)
	fmt.Fprintf(&b, "  files:     %d total, %d processed\n", s.Total, processed)
	fmt.Fprintf(&b, "  rewritten: %d\n", changed)

	if failed == 0 && len(counts) == 0 {
		if changed == 0 {
			fmt.Fprintf(&b, "  %s\n", good.Sprint("no changes needed"))
		} else {
			fmt.Fprintf(&b, "  %s\n", good.Sprint("completed without errors"))
		}
	} else {
		fmt.Fprintf(&b, "  %s\n", bad.Sprintf("errors occurred (%d files failed)", failed))

		kinds := make([]Kind, 0, len(counts))
		for k := range counts {
			kinds = append(kinds, k)
		}
		sort.Slice(kinds, func(i, j int) bool { return counts[kinds[i]] > counts[kinds[j]] })

		for _, k := range kinds {
			fmt.Fprintf(&b, "    %s: %d\n", warn.Sprint(k.String()), counts[k])
			fmt.Fprintf(&b, "      hint: %s\n", k.Remediation())
		}
	}

	if s.Total > 0 {
		rate := float64(processed-failed) / float64(s.Total) * 100
		fmt.Fprintf(&b, "  success:   %.1f%% in %s\n", rate, s.Elapsed().Round(time.Millisecond))
	}

	return b.String()
}
