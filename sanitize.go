package agent

import "strings"

var markupStripper = strings.NewReplacer("**", "", "###", "", "##", "", "#", "")

// Sanitize strips bold and heading markup from streamed text. Inline code
// backticks are left alone.
func Sanitize(s string) string {
	return markupStripper.Replace(s)
}

// chunkSanitizer sanitizes a stream fragment by fragment. A trailing run
// of '*' is held back until the next fragment so bold markers split
// across fragments are still removed.
type chunkSanitizer struct {
	pending string
}

func (c *chunkSanitizer) Push(delta string) string {
	s := c.pending + delta
	cut := len(strings.TrimRight(s, "*"))
	c.pending = s[cut:]
	return Sanitize(s[:cut])
}

// Flush returns whatever is still held back.
func (c *chunkSanitizer) Flush() string {
	s := c.pending
	c.pending = ""
	return Sanitize(s)
}
