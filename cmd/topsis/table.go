package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/MikeSquared-Agency/Topsis/internal/topsis"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// renderResult lists the scored rows in rank order. The label column is
// left aligned, numbers right aligned.
func renderResult(res *topsis.Result) string {
	headers := res.Header()
	rows := res.Rows()

	order := make([]int, len(rows))
	for i := range order {
		order[i] = i
	}
	// Insertion sort keeps input order among tied ranks.
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && res.Ranks[order[j]] < res.Ranks[order[j-1]]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
	sorted := make([][]string, len(rows))
	for i, idx := range order {
		sorted[i] = rows[idx]
	}

	aligns := make([]columnAlignment, len(headers))
	for i := 1; i < len(aligns); i++ {
		aligns[i] = alignRight
	}
	return renderTable(headers, sorted, aligns)
}

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}
