package dispatch

import (
	"html"
	"regexp"
	"strings"

	"github.com/osteele/liquid"

	"github.com/ignite/mail-dispatch/internal/domain"
)

// Renderer performs per-recipient template substitution. Two layers of
// personalization are supported:
//
//  1. Literal bracket tokens — [first_name], [last_name], [email],
//     [company] — matched case-insensitively and replaced with the
//     recipient's fields. Absent optional fields substitute to the
//     empty string. Unknown bracket sequences are left untouched.
//  2. A lax-mode Liquid pass with the same fields as context, so
//     {{ first_name }} style templates also work. Any Liquid parse or
//     render error returns the input unchanged rather than failing the
//     recipient.
//
// Rendering is deterministic and side-effect free: identical
// (template, recipient) pairs always yield identical output.
type Renderer struct {
	engine *liquid.Engine
}

// NewRenderer creates a Renderer with a fresh Liquid engine.
func NewRenderer() *Renderer {
	return &Renderer{engine: liquid.NewEngine()}
}

var bracketTokens = []struct {
	re    *regexp.Regexp
	value func(domain.Recipient) string
}{
	{regexp.MustCompile(`(?i)\[first_name\]`), func(r domain.Recipient) string { return r.FirstName }},
	{regexp.MustCompile(`(?i)\[last_name\]`), func(r domain.Recipient) string { return r.LastName }},
	{regexp.MustCompile(`(?i)\[email\]`), func(r domain.Recipient) string { return r.Email }},
	{regexp.MustCompile(`(?i)\[company\]`), func(r domain.Recipient) string { return r.Company }},
}

// Render substitutes recipient-scoped tokens into a template string.
func (rd *Renderer) Render(template string, r domain.Recipient) string {
	out := template
	for _, tok := range bracketTokens {
		out = tok.re.ReplaceAllLiteralString(out, tok.value(r))
	}
	return rd.renderLiquid(out, r)
}

func (rd *Renderer) renderLiquid(s string, r domain.Recipient) string {
	if !strings.Contains(s, "{{") && !strings.Contains(s, "{%") {
		return s
	}
	bindings := map[string]any{
		"first_name": r.FirstName,
		"last_name":  r.LastName,
		"email":      r.Email,
		"company":    r.Company,
	}
	out, err := rd.engine.ParseAndRenderString(s, bindings)
	if err != nil {
		// Lax mode: a broken Liquid template renders as-is.
		return s
	}
	return out
}

var (
	lineBreakTagRe = regexp.MustCompile(`(?i)<br\s*/?>`)
	blockCloseRe   = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|table)>`)
	anyTagRe       = regexp.MustCompile(`<[^>]*>`)
	blankRunRe     = regexp.MustCompile(`\n{3,}`)
)

// PlainText derives a text/plain alternative from rendered HTML with a
// best-effort, non-validating tag strip. Block-level closers become
// line breaks so the text keeps its rough structure.
func PlainText(input string) string {
	text := lineBreakTagRe.ReplaceAllString(input, "\n")
	text = blockCloseRe.ReplaceAllString(text, "\n")
	text = anyTagRe.ReplaceAllString(text, "")
	text = html.UnescapeString(text)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	text = strings.Join(lines, "\n")
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
