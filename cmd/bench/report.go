package main

import (
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

type Metric struct {
	Name  string
	Value any
}

// Report prints a benchmark summary as a table.
func Report(test string, took time.Duration, metrics ...Metric) {

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(test)
	t.AppendHeader(table.Row{"Metric", "Value"})
	for _, m := range metrics {
		t.AppendRow(table.Row{m.Name, m.Value})
	}
	t.AppendFooter(table.Row{"took", took.Round(time.Millisecond)})
	t.SetStyle(table.StyleLight)
	t.Render()
}
