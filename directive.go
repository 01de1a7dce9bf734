package agent

import (
	"regexp"
	"strings"
)

// directivePattern matches [CallTool: name(query="...")] with backslash
// escapes allowed inside the quoted query.
var directivePattern = regexp.MustCompile(`\[CallTool: (\w+)\(query="((?:[^"\\]|\\.)*)"\)\]`)

// ToolDirective is a tool call embedded in model output.
type ToolDirective struct {
	Tool  string
	Query string
}

// ParseDirective returns the first directive in text. Anything that does
// not match the grammar exactly is not a directive.
func ParseDirective(text string) (ToolDirective, bool) {
	m := directivePattern.FindStringSubmatch(text)
	if m == nil {
		return ToolDirective{}, false
	}
	return ToolDirective{Tool: m[1], Query: unescapeQuery(m[2])}, true
}

var queryUnescaper = strings.NewReplacer(`\"`, `"`, `\\`, `\`)

func unescapeQuery(q string) string {
	if !strings.Contains(q, `\`) {
		return q
	}
	return queryUnescaper.Replace(q)
}
