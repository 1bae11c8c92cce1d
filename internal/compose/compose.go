// Package compose merges a snippet's HTML, CSS, and JS fragments into a
// single renderable document.
//
// This is deliberately dumb string assembly. The composer never parses,
// escapes, or sanitizes the fragments; snippets are arbitrary author-supplied
// code and are expected to contain live script. Isolation is entirely the
// embedding boundary's job (the sandboxed iframe and CSP header in the
// preview handler), and anything the composer tried to strip would just break
// legitimate snippets.
package compose

import "strings"

// resetCSS is the minimal style block injected ahead of the author's CSS in
// the full-document path, so unstyled snippets don't inherit browser default
// margins.
const resetCSS = `* { margin: 0; padding: 0; box-sizing: border-box; }
body { font-family: system-ui, -apple-system, sans-serif; background: #fff; }`

const (
	docHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Preview</title>
<style>
`
	docBody = `</style>
</head>
<body>
`
	docScript = `
<script>
`
	docTail = `
</script>
</body>
</html>`
)

// Document combines the three fragments into one renderable document.
//
// FAST PATH:
// When css and js are both empty, the output IS the html string, byte for
// byte; no wrapping document, no reset styles. Pure-HTML snippets round-trip
// exactly, which matters for authors pasting complete documents of their own.
//
// Otherwise the output is a full HTML document: the reset style block followed
// by the caller's css verbatim, the html verbatim in the body, and the js
// verbatim in a trailing script block.
func Document(html, css, js string) string {
	if css == "" && js == "" {
		return html
	}

	var b strings.Builder
	b.Grow(len(docHead) + len(resetCSS) + len(css) + len(docBody) +
		len(html) + len(docScript) + len(js) + len(docTail) + 2)

	b.WriteString(docHead)
	b.WriteString(resetCSS)
	if css != "" {
		b.WriteByte('\n')
		b.WriteString(css)
	}
	b.WriteString("\n")
	b.WriteString(docBody)
	b.WriteString(html)
	b.WriteString(docScript)
	b.WriteString(js)
	b.WriteString(docTail)
	return b.String()
}
