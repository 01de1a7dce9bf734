package upload

import "regexp"

// RegexRedactor masks email addresses and phone numbers in extracted text
// before it reaches a model.
type RegexRedactor struct {
	rx []*regexp.Regexp
}

func NewDefaultRedactor() *RegexRedactor {
	return &RegexRedactor{
		rx: []*regexp.Regexp{
			regexp.MustCompile(`\b[\w.+-]+@[\w.-]+\.\w+\b`),
			regexp.MustCompile(`(?:\+\d{1,3}[\s.-]?)?\b\d{3,4}[\s.-]?\d{3}[\s.-]?\d{3,4}\b`),
		},
	}
}

func (r *RegexRedactor) Redact(s string) (string, bool) {
	changed := false
	for _, re := range r.rx {
		if re.MatchString(s) {
			s = re.ReplaceAllString(s, "[REDACTED]")
			changed = true
		}
	}
	return s, changed
}
