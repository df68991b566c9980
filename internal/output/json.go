package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/abramin/strata/internal/result"
)

// JSON renders a machine readable report grouped by file.
type JSON struct{}

func (JSON) Name() string { return "json" }

type jsonReport struct {
	Report jsonCounts          `json:"Report"`
	Files  map[string]jsonFile `json:"files"`
}

type jsonCounts struct {
	Violations        int `json:"Violations"`
	SkippedViolations int `json:"Skipped violations"`
	Uncovered         int `json:"Uncovered"`
	Allowed           int `json:"Allowed"`
	Warnings          int `json:"Warnings"`
	Errors            int `json:"Errors"`
}

type jsonFile struct {
	Violations int           `json:"violations"`
	Messages   []jsonMessage `json:"messages"`
}

type jsonMessage struct {
	Message string        `json:"message"`
	Line    int           `json:"line"`
	Type    string        `json:"type"`
	Path    []result.Step `json:"path,omitempty"`
}

func (JSON) Format(w io.Writer, res *result.Result, opts Options) error {
	c := res.Counts()
	report := jsonReport{
		Report: jsonCounts{
			Violations:        c.Violations,
			SkippedViolations: c.SkippedViolations,
			Uncovered:         c.Uncovered,
			Allowed:           c.Allowed,
			Warnings:          c.Warnings,
			Errors:            c.Errors,
		},
		Files: map[string]jsonFile{},
	}
	for _, item := range reported(res, opts) {
		typ := "warning"
		if item.Category == result.Violation {
			typ = "error"
		}
		f := report.Files[item.File]
		f.Messages = append(f.Messages, jsonMessage{
			Message: Message(item),
			Line:    item.Line,
			Type:    typ,
			Path:    item.Path,
		})
		f.Violations = len(f.Messages)
		report.Files[item.File] = f
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json report: %w", err)
	}
	return document(w, append(data, '\n'), opts, "JSON report")
}
