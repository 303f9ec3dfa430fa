package main

import (
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/ericfisherdev/prminer/internal/domain/model"
)

var mineReportHeader = []string{"Repository", "Status", "Population", "Popped", "Accepted", "Skipped", "Rejected", "Remaining"}

var resultsReportHeader = []string{"File", "Output", "Pull requests", "Unreadable", "Rows"}

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{Borders: tw.BorderNone}),
	)
}

// renderMineReport prints one row per collection.
func renderMineReport(w io.Writer, report model.MineReport) {
	if len(report.Collections) == 0 {
		return
	}

	table := newTable(w)

	rows := make([][]string, 0, len(report.Collections))
	for _, c := range report.Collections {
		rows = append(rows, []string{
			c.FullName,
			statusColor(c.Status).Sprint(string(c.Status)),
			strconv.Itoa(c.Population),
			strconv.Itoa(c.Popped),
			strconv.Itoa(c.Accepted),
			strconv.Itoa(c.Skipped),
			strconv.Itoa(c.Rejected),
			strconv.Itoa(c.Remaining),
		})
	}

	table.Header(mineReportHeader)
	_ = table.Bulk(rows)
	_ = table.Render()
}

func statusColor(s model.CollectionStatus) *color.Color {
	switch s {
	case model.CollectionDone, model.CollectionIDsOnly:
		return color.New(color.FgGreen)
	case model.CollectionDrained:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

// renderResultsReport prints one row per analysis file; files no pull
// request contributed to show a red dash as their output.
func renderResultsReport(w io.Writer, report model.ResultsReport) {
	table := newTable(w)

	rows := make([][]string, 0, len(report.Files))
	for _, f := range report.Files {
		out := color.New(color.FgRed).Sprint("-")
		if f.Path != "" {
			out = f.Path
		}
		rows = append(rows, []string{
			f.Name,
			out,
			strconv.Itoa(f.PullRequests),
			strconv.Itoa(f.Unreadable),
			strconv.Itoa(f.Rows),
		})
	}

	table.Header(resultsReportHeader)
	_ = table.Bulk(rows)
	_ = table.Render()
}
