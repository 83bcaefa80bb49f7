package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/nomis52/clubsignup/catalog"
)

// Text writes the cards of cat as plain text, in catalog order.
func Text(w io.Writer, cat *catalog.Catalog) error {
	if cat.Empty() {
		_, err := fmt.Fprintln(w, "No activities available at this time.")
		return err
	}

	var b strings.Builder
	for i, a := range cat.All() {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s\n", a.Name)
		fmt.Fprintf(&b, "  Description: %s\n", a.Description)
		fmt.Fprintf(&b, "  Schedule: %s\n", a.Schedule)
		fmt.Fprintf(&b, "  Spots: %d/%d filled (%d spots remaining)\n", a.Filled(), a.MaxParticipants, a.SpotsRemaining())
		b.WriteString("  Current Participants:\n")
		if len(a.Participants) == 0 {
			b.WriteString("    No participants yet - be the first to sign up!\n")
			continue
		}
		for _, email := range a.Participants {
			fmt.Fprintf(&b, "    - %s\n", email)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
