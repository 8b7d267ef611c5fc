// internal/browser/parse.go
package browser

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/wayfinder-cli/api/schemas"
)

// parsePage walks a parsed document and builds both the observation and the
// action model (refs, forms, link hrefs) the static driver needs.
func parsePage(u *url.URL, doc *html.Node) *staticPage {
	page := &staticPage{
		url:      u,
		elements: make(map[string]*staticElement),
		filled:   make(map[string]string),
	}
	obs := schemas.PageObservation{URL: u.String()}

	var inNav bool
	var walk func(n *html.Node, form *html.Node)
	walk = func(n *html.Node, form *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if obs.Title == "" {
					obs.Title = strings.TrimSpace(textContent(n))
				}
			case "h1", "h2", "h3":
				if t := strings.TrimSpace(textContent(n)); t != "" && len(obs.Headings) < schemas.MaxHeadings {
					obs.Headings = append(obs.Headings, clip(t, 120))
				}
			case "form":
				form = n
			case "nav", "header":
				wasNav := inNav
				inNav = true
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					walk(c, form)
				}
				inNav = wasNav
				return
			}

			if el := interactiveFrom(n, form); el != nil {
				el.ref = fmt.Sprintf("el_%d", len(page.elements))
				page.elements[el.ref] = el
				if len(obs.Interactive) < schemas.MaxInteractive {
					obs.Interactive = append(obs.Interactive, schemas.InteractiveElement{
						Ref:      el.ref,
						Role:     el.role,
						Name:     el.name,
						Disabled: nodeAttr(n, "disabled") != "",
					})
				}
				if el.role == "searchbox" {
					obs.HasSearch = true
				}
				if el.href != "" {
					probe := strings.ToLower(el.name + " " + el.href)
					if strings.Contains(probe, "help") || strings.Contains(probe, "support") || strings.Contains(probe, "faq") {
						obs.HasHelp = true
					}
					if inNav && el.name != "" && len(obs.NavLinks) < schemas.MaxNavLinks {
						obs.NavLinks = append(obs.NavLinks, clip(el.name, 80))
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, form)
		}
	}
	walk(doc, nil)

	page.obs = obs
	return page
}

// interactiveFrom classifies a node, returning nil for anything the agent
// cannot act on.
func interactiveFrom(n *html.Node, form *html.Node) *staticElement {
	switch n.Data {
	case "a":
		href := nodeAttr(n, "href")
		if href == "" || strings.HasPrefix(href, "javascript:") {
			return nil
		}
		return &staticElement{role: "link", name: elementName(n), href: href, form: form, node: n}

	case "button":
		return &staticElement{role: "button", name: elementName(n), form: form, node: n}

	case "input":
		typ := strings.ToLower(nodeAttr(n, "type"))
		switch typ {
		case "hidden":
			return nil
		case "submit", "button":
			return &staticElement{role: "button", name: elementName(n), form: form, node: n}
		case "checkbox":
			return &staticElement{role: "checkbox", name: elementName(n), form: form, node: n}
		case "radio":
			return &staticElement{role: "radio", name: elementName(n), form: form, node: n}
		}
		role := "textbox"
		if typ == "search" || containsSearch(nodeAttr(n, "name")) || containsSearch(nodeAttr(n, "placeholder")) {
			role = "searchbox"
		}
		return &staticElement{role: role, name: elementName(n), form: form, node: n}

	case "textarea":
		return &staticElement{role: "textbox", name: elementName(n), form: form, node: n}

	case "select":
		var options []string
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "option" {
				if t := strings.TrimSpace(textContent(c)); t != "" {
					options = append(options, t)
				}
			}
		}
		return &staticElement{role: "select", name: elementName(n), form: form, node: n, options: options}
	}
	return nil
}

// elementName picks the human-facing label for an element, in the same
// preference order the in-page observation script uses.
func elementName(n *html.Node) string {
	for _, key := range []string{"aria-label", "placeholder", "alt", "title"} {
		if v := strings.TrimSpace(nodeAttr(n, key)); v != "" {
			return clip(v, 80)
		}
	}
	if t := strings.TrimSpace(textContent(n)); t != "" {
		return clip(t, 80)
	}
	for _, key := range []string{"value", "name", "id"} {
		if v := strings.TrimSpace(nodeAttr(n, key)); v != "" {
			return clip(v, 80)
		}
	}
	return ""
}

func nodeAttr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func containsSearch(s string) bool {
	return strings.Contains(strings.ToLower(s), "search")
}

func clip(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
