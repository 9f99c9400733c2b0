package apidiff

import (
	"encoding/json"
	"fmt"
	"io"
)

// Classification describes the effect of a change on users of the
// generated bindings.
type Classification string

const (
	// Compatible changes keep every previously generated operation.
	Compatible Classification = "Compatible"
	// Breaking changes alter how an existing symbol is generated.
	Breaking Classification = "Breaking"
	// NotedRemoval is a removal explained by a removal note.
	NotedRemoval Classification = "NotedRemoval"
	// SilentRemoval is a removal without a note. It fails the diff.
	SilentRemoval Classification = "SilentRemoval"
)

// ReportItem is a single line item of the diff report.
type ReportItem struct {
	Name       string         `json:"name"`
	Before     *Element       `json:"before,omitempty"`
	After      *Element       `json:"after,omitempty"`
	Conclusion Classification `json:"conclusion"`
	Note       string         `json:"note,omitempty"`
}

func (r ReportItem) IsAdd() bool {
	return r.Before == nil && r.After != nil
}

func (r ReportItem) IsRemove() bool {
	return r.Before != nil && r.After == nil
}

func (r ReportItem) IsChange() bool {
	return r.Before != nil && r.After != nil
}

// Report is the difference between two manifest generations.
type Report struct {
	From  string       `json:"from"`
	To    string       `json:"to"`
	Items []ReportItem `json:"api_diff,omitempty"`
}

func (r *Report) add(item ReportItem) {
	if item.Conclusion == "" {
		panic(fmt.Sprintf("unset conclusion: %+v", item))
	}
	r.Items = append(r.Items, item)
}

// WriteJSON writes a report as JSON.
func (r Report) WriteJSON(w io.Writer) error {
	e := json.NewEncoder(w)
	e.SetEscapeHTML(false)
	e.SetIndent("", "  ")
	if err := e.Encode(r); err != nil {
		return fmt.Errorf("while writing JSON: %w", err)
	}
	return nil
}
