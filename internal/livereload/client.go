package livereload

import (
	"bytes"
	_ "embed"
)

//go:embed client.js
var clientJS string

var bodyClose = []byte("</body>")

// Snippet returns the script element that connects a page to the
// live-reload socket.
func Snippet() string {
	return "<script>\n" + clientJS + "\n</script>"
}

// Inject inserts the client snippet immediately before the first </body>.
// Documents without a closing body tag are returned unchanged.
func Inject(html []byte) []byte {
	i := bytes.Index(html, bodyClose)
	if i < 0 {
		return html
	}
	snippet := Snippet()
	out := make([]byte, 0, len(html)+len(snippet)+1)
	out = append(out, html[:i]...)
	out = append(out, snippet...)
	out = append(out, '\n')
	out = append(out, html[i:]...)
	return out
}
