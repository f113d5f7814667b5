package main

import (
	"fmt"
	"io"

	"github.com/LJTian/DevPulse/internal/pipeline"
	"github.com/jedib0t/go-pretty/v6/table"
)

const titleWidthMax = 70

// renderResult 以表格输出，使用本地数据时在表格前加提示
func renderResult(w io.Writer, res pipeline.Result) {
	if res.UsedMock {
		fmt.Fprintln(w, "! mock data active: showing local demo items")
	}
	if len(res.Items) == 0 {
		fmt.Fprintln(w, "no developments found")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Title", "Source", "When", "URL"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: titleWidthMax},
	})

	for i, it := range res.Items {
		t.AppendRow(table.Row{i + 1, it.Title, it.Source, it.RelativeTime, it.URL})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d items", len(res.Items))})
	t.Render()
}
