package bootstrap

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// Report is the machine-readable record of one bootstrap run.
type Report struct {
	Installer string    `json:"installer"`
	StartedAt time.Time `json:"started_at"`
	Results   []Result  `json:"results"`
	Failed    int       `json:"failed"`
}

// NewReport assembles a report for the given run.
func NewReport(installerName string, startedAt time.Time, results []Result) Report {
	failed := 0
	for _, result := range results {
		if !result.Succeeded {
			failed++
		}
	}
	return Report{
		Installer: installerName,
		StartedAt: startedAt,
		Results:   results,
		Failed:    failed,
	}
}

// WriteReport writes the report as indented JSON.
func WriteReport(path string, report Report) error {
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// Summarize prints the per-dependency outcomes followed by a one-line total.
func Summarize(w io.Writer, results []Result) {
	installed, satisfied, failed := 0, 0, 0
	for _, result := range results {
		mark := "ok  "
		switch result.Status {
		case StatusInstalled:
			installed++
		case StatusSatisfied:
			satisfied++
		case StatusFailed:
			mark = "FAIL"
			failed++
		}
		fmt.Fprintf(w, "%s %-24s %s\n", mark, result.Spec.Requirement(), result.Message)
	}
	fmt.Fprintf(w, "\n%d installed, %d already satisfied, %d failed\n", installed, satisfied, failed)
}
