package gateway

import "strings"

type partKind int

const (
	partText partKind = iota
	partImage
)

// part is one typed element of an assistant message.
type part struct {
	kind partKind
	text string
	// url is an http(s) or data: URI for image parts.
	url string
}

// message is an assistant reply normalized across backends. Its content is
// either a single string (structured == false) or a list of parts.
type message struct {
	structured bool
	text       string
	parts      []part
}

// Text returns the textual answer: the string content, or the text parts
// joined by newlines.
func (m *message) Text() string {
	if !m.structured {
		return m.text
	}
	var texts []string
	for _, p := range m.parts {
		if p.kind == partText && p.text != "" {
			texts = append(texts, p.text)
		}
	}
	return strings.Join(texts, "\n")
}
