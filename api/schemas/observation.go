// api/schemas/observation.go
package schemas

import (
	"fmt"
	"strings"
)

// Bounds applied when a driver builds an observation. Anything beyond these
// limits is dropped so the decision prompt stays a predictable size.
const (
	MaxHeadings    = 10
	MaxNavLinks    = 15
	MaxInteractive = 50
)

// InteractiveElement is one actionable element on the page, identified by a
// reference id that stays stable for the lifetime of the observation.
type InteractiveElement struct {
	Ref      string `json:"ref"`
	Role     string `json:"role"`
	Name     string `json:"name"`
	Value    string `json:"value,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
	Focused  bool   `json:"focused,omitempty"`
}

// PageObservation is the compact, serializable description of the current
// page that the driver hands to the decision loop once per step.
type PageObservation struct {
	URL         string               `json:"url"`
	Title       string               `json:"title"`
	Headings    []string             `json:"headings,omitempty"`
	NavLinks    []string             `json:"nav_links,omitempty"`
	Interactive []InteractiveElement `json:"interactive,omitempty"`
	HasSearch   bool                 `json:"has_search"`
	HasHelp     bool                 `json:"has_help"`
}

// FirstHeading returns the first heading text, or "" when the page has none.
func (o PageObservation) FirstHeading() string {
	if len(o.Headings) == 0 {
		return ""
	}
	return o.Headings[0]
}

// CompactText renders the observation as the plain-text page summary
// embedded in decision prompts.
func (o PageObservation) CompactText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\n", o.URL)
	fmt.Fprintf(&b, "Title: %s\n", o.Title)
	if len(o.Headings) > 0 {
		fmt.Fprintf(&b, "Headings: %s\n", strings.Join(o.Headings, " | "))
	}
	if len(o.NavLinks) > 0 {
		fmt.Fprintf(&b, "Navigation: %s\n", strings.Join(o.NavLinks, " | "))
	}
	if len(o.Interactive) > 0 {
		b.WriteString("Interactive elements:\n")
		for _, el := range o.Interactive {
			fmt.Fprintf(&b, "  [%s] %s %q", el.Ref, el.Role, el.Name)
			if el.Value != "" {
				fmt.Fprintf(&b, " value=%q", el.Value)
			}
			if el.Disabled {
				b.WriteString(" (disabled)")
			}
			if el.Focused {
				b.WriteString(" (focused)")
			}
			b.WriteByte('\n')
		}
	}
	if o.HasSearch {
		b.WriteString("A search box is available on this page.\n")
	}
	if o.HasHelp {
		b.WriteString("A help link is available on this page.\n")
	}
	return b.String()
}
