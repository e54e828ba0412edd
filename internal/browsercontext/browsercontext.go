// Package browsercontext extracts page metadata from requests that a browser
// automation agent wraps around the user's actual command.
package browsercontext

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const (
	assistantMarker = "You are a browser automation assistant"
	requestMarker   = "User Request:"

	// MaxDOMElements caps how many element descriptors are kept per request.
	MaxDOMElements = 10
)

var (
	requestPattern  = regexp.MustCompile(`User Request:[ \t]*(/\w+[^\n]*)`)
	urlPattern      = regexp.MustCompile(`Current URL:[ \t]*([^\n]+)`)
	titlePattern    = regexp.MustCompile(`Page Title:[ \t]*([^\n]+)`)
	selectedPattern = regexp.MustCompile(`Selected Text:[ \t]*([^\n]+)`)
	domPattern      = regexp.MustCompile(`(?s)Available DOM elements:\s*(\[.+\])`)
)

type DOMElement struct {
	Selector string `json:"selector"`
	Text     string `json:"text,omitempty"`
}

// Context describes the page a request originated from. Empty strings mean
// the field was absent.
type Context struct {
	URL          string       `json:"url,omitempty"`
	Title        string       `json:"title,omitempty"`
	SelectedText string       `json:"selected_text,omitempty"`
	DOMElements  []DOMElement `json:"dom_elements"`
}

// IsWrapped reports whether raw carries automation framing.
func IsWrapped(raw string) bool {
	return strings.Contains(raw, assistantMarker) || strings.Contains(raw, requestMarker)
}

// Parse unwraps raw. When raw is not wrapped it is returned unchanged with a
// nil context. When it is wrapped the context is always populated, and the
// query becomes the embedded "/command args" line if one exists; otherwise
// the full wrapped text is passed through.
func Parse(raw string) (string, *Context) {
	if !IsWrapped(raw) {
		return raw, nil
	}
	ctx := parseFields(raw)
	if match := requestPattern.FindStringSubmatch(raw); match != nil {
		return strings.TrimSpace(match[1]), ctx
	}
	return raw, ctx
}

func parseFields(raw string) *Context {
	ctx := &Context{
		URL:          labelValue(urlPattern, raw),
		Title:        labelValue(titlePattern, raw),
		SelectedText: labelValue(selectedPattern, raw),
		DOMElements:  []DOMElement{},
	}
	if strings.EqualFold(ctx.SelectedText, "none") {
		ctx.SelectedText = ""
	}
	if match := domPattern.FindStringSubmatch(raw); match != nil {
		ctx.DOMElements = decodeElements(match[1])
	}
	return ctx
}

func labelValue(pattern *regexp.Regexp, raw string) string {
	match := pattern.FindStringSubmatch(raw)
	if match == nil {
		return ""
	}
	return strings.TrimSpace(match[1])
}

// decodeElements never fails: anything that does not decode as an array of
// element objects yields an empty list.
func decodeElements(blob string) []DOMElement {
	blob = strings.ReplaceAll(blob, `\"`, `"`)
	blob = strings.ReplaceAll(blob, `\\`, `\`)
	var elements []DOMElement
	if err := json.Unmarshal([]byte(blob), &elements); err != nil {
		return []DOMElement{}
	}
	if len(elements) > MaxDOMElements {
		elements = elements[:MaxDOMElements]
	}
	if elements == nil {
		elements = []DOMElement{}
	}
	return elements
}

// Empty reports whether ctx carries no usable page information.
func (c *Context) Empty() bool {
	return c == nil || (c.URL == "" && c.Title == "" && c.SelectedText == "" && len(c.DOMElements) == 0)
}

// PromptBlock renders the context as plain text for model prompts, listing at
// most maxElements DOM elements with their text clipped to 50 characters.
func (c *Context) PromptBlock(maxElements int) string {
	if c.Empty() {
		return ""
	}
	var b strings.Builder
	if c.URL != "" {
		fmt.Fprintf(&b, "Current URL: %s\n", c.URL)
	}
	if c.Title != "" {
		fmt.Fprintf(&b, "Page Title: %s\n", c.Title)
	}
	if c.SelectedText != "" {
		fmt.Fprintf(&b, "Selected Text: %s\n", c.SelectedText)
	}
	if len(c.DOMElements) > 0 && maxElements > 0 {
		b.WriteString("Available DOM elements:\n")
		for i, el := range c.DOMElements {
			if i >= maxElements {
				break
			}
			fmt.Fprintf(&b, "- %s", el.Selector)
			if el.Text != "" {
				fmt.Fprintf(&b, ": %s", clip(el.Text, 50))
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func clip(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
