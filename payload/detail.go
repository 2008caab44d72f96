package payload

import (
	"encoding/json"
	"strings"
)

// Section is one titled block of a detail view.
type Section struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// Detail is the content of the persistent inspect view.
type Detail struct {
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
}

// Text renders d as plain text.
func (d Detail) Text() string {
	var b strings.Builder
	b.WriteString(d.Title)
	for _, s := range d.Sections {
		b.WriteString("\n\n")
		b.WriteString(s.Heading)
		b.WriteString(":\n")
		b.WriteString(s.Body)
	}
	return b.String()
}

// NodeTooltip is the hover text for a step.
func NodeTooltip(id string, input, output json.RawMessage) string {
	return id + "\n\nInput:\n" + SummarizeRaw(input) + "\n\nOutput:\n" + SummarizeRaw(output)
}

// EdgeTooltip is the hover text for a hand-off between two steps.
func EdgeTooltip(source, target string, data json.RawMessage) string {
	return source + " -> " + target + "\n\n" + SummarizeRaw(data)
}

// NodeDetail is the unabridged input and output of a step.
func NodeDetail(id string, input, output json.RawMessage) Detail {
	return Detail{
		Title: id,
		Sections: []Section{
			{Heading: "Input Data", Body: FullTextRaw(input)},
			{Heading: "Output Data", Body: FullTextRaw(output)},
		},
	}
}

// EdgeDetail is the unabridged data passed along an edge.
func EdgeDetail(source, target string, data json.RawMessage) Detail {
	return Detail{
		Title:    source + " -> " + target,
		Sections: []Section{{Heading: "Edge Data", Body: FullTextRaw(data)}},
	}
}
