// Package history records each REPL evaluation — input, resulting tree,
// rewrite trace and final value — and exports the session log as JSON,
// CSV or HTML.
//
// Adapted from sentra's internal/reporting.ReportingModule: the same
// mutex-guarded in-memory slice plus format-switched export methods, one
// encoder per format from the standard library (encoding/json,
// encoding/csv, html/template).
package history

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"strings"
	"sync"
	"time"
)

// Entry is one recorded evaluation.
type Entry struct {
	Timestamp  time.Time `json:"timestamp"`
	Input      string    `json:"input"`
	Tree       string    `json:"tree"`
	Steps      []string  `json:"steps,omitempty"`
	Value      float64   `json:"value"`
	Error      string    `json:"error,omitempty"`
}

// Log is an ordered, mutex-guarded session history.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
}

// New returns an empty Log.
func New() *Log {
	return &Log{}
}

// Record appends e to the log.
func (l *Log) Record(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
}

// Entries returns a copy of every recorded entry.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Export writes the log to filename in the named format: "json", "csv" or
// "html".
func (l *Log) Export(format, filename string) error {
	switch strings.ToLower(format) {
	case "json":
		return l.exportJSON(filename)
	case "csv":
		return l.exportCSV(filename)
	case "html":
		return l.exportHTML(filename)
	default:
		return fmt.Errorf("history: unsupported export format %q", format)
	}
}

func (l *Log) exportJSON(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(l.Entries())
}

func (l *Log) exportCSV(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"Timestamp", "Input", "Tree", "Value", "Error"}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, e := range l.Entries() {
		record := []string{
			e.Timestamp.Format("2006-01-02 15:04:05"),
			e.Input,
			e.Tree,
			fmt.Sprintf("%g", e.Value),
			e.Error,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return nil
}

var historyTemplate = template.Must(template.New("history").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>calc session history</title></head>
<body>
<table border="1" cellpadding="4" cellspacing="0">
<tr><th>Time</th><th>Input</th><th>Tree</th><th>Value</th><th>Error</th></tr>
{{range .}}<tr><td>{{.Timestamp.Format "2006-01-02 15:04:05"}}</td><td>{{.Input}}</td><td>{{.Tree}}</td><td>{{.Value}}</td><td>{{.Error}}</td></tr>
{{end}}</table>
</body></html>
`))

func (l *Log) exportHTML(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	return historyTemplate.Execute(file, l.Entries())
}
