// Package render prints builder trees, catalogs and store listings for the CLI.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/solatis/rulebuilder/internal/builder"
	"github.com/solatis/rulebuilder/internal/catalog"
	"github.com/solatis/rulebuilder/internal/core/db"
)

// Tree renders a tree view as an indented outline, one line per element.
func Tree(v builder.View) string {
	lw := list.NewWriter()
	lw.SetStyle(list.StyleConnectedLight)
	title := "conditions"
	if v.Quantitative {
		title = "conditions (quantitative)"
	}
	lw.AppendItem(title)
	lw.Indent()
	for _, c := range v.Children {
		outline(lw, c)
	}
	return lw.Render()
}

func outline(lw list.Writer, v builder.View) {
	lw.AppendItem(describe(v))
	if len(v.Children) == 0 {
		return
	}
	lw.Indent()
	for _, c := range v.Children {
		outline(lw, c)
	}
	lw.UnIndent()
}

func describe(v builder.View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s", v.ID, v.Kind)
	switch {
	case v.Frame != nil:
		fmt.Fprintf(&b, " match %s", v.Frame.Match)
		if v.Frame.Quantity != nil {
			fmt.Fprintf(&b, " of %s", *v.Frame.Quantity)
		}
		if v.Frame.GroupID != nil && *v.Frame.GroupID != "" {
			fmt.Fprintf(&b, " id=%s", *v.Frame.GroupID)
		}
		if v.Frame.Removable {
			b.WriteString(" [removable]")
		}
	case v.Row != nil:
		fmt.Fprintf(&b, " %s %s %s", v.Row.Field, v.Row.Operator, rowValue(v.Row))
	case v.Label != "":
		fmt.Fprintf(&b, " %q", v.Label)
	}
	return b.String()
}

func rowValue(r *builder.RowView) string {
	switch {
	case r.Boolean != nil:
		return fmt.Sprintf("%t", r.Boolean.Checked)
	case r.Start != nil && r.End != nil:
		return fmt.Sprintf("[%s, %s]", r.Start.Text, r.End.Text)
	case r.Value != nil:
		return fmt.Sprintf("%q", r.Value.Text)
	default:
		return "-"
	}
}

func newTable(title string, header table.Row) table.Writer {
	tw := table.NewWriter()
	tw.SetTitle(title)
	tw.AppendHeader(header)
	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	tw.SetStyle(style)
	return tw
}

// Catalog renders one row per field operator.
func Catalog(cat *catalog.Catalog) string {
	tw := newTable("CATALOG", table.Row{"Field", "Label", "Operator", "Type", "Choices"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AutoMerge: true},
		{Number: 2, AutoMerge: true},
		{Number: 5, WidthMax: 40},
	})
	for _, f := range cat.Fields() {
		if len(f.Operators) == 0 {
			tw.AppendRow(table.Row{f.Name, f.DisplayLabel(), "-", "-", ""})
			continue
		}
		for _, op := range f.Operators {
			names := make([]string, 0)
			for _, c := range catalog.Choices(f, op) {
				names = append(names, c.Name)
			}
			tw.AppendRow(table.Row{f.Name, f.DisplayLabel(), op.Name, string(op.FieldType), strings.Join(names, ", ")})
		}
	}
	return tw.Render()
}

// Migrations renders migration status.
func Migrations(statuses []db.MigrationStatus) string {
	tw := newTable("MIGRATIONS", table.Row{"Migration", "Applied", "Applied At", "Duration"})
	for _, s := range statuses {
		at, took := "-", "-"
		if s.AppliedAt != nil {
			at = s.AppliedAt.Format(time.RFC3339)
			took = (time.Duration(s.ExecutionMs) * time.Millisecond).String()
		}
		tw.AppendRow(table.Row{s.ID, s.Applied, at, took})
	}
	return tw.Render()
}

// APIKeys renders stored key metadata.
func APIKeys(keys []db.APIKey) string {
	tw := newTable("API KEYS", table.Row{"ID", "Name", "Secret ID", "Created", "Last Used", "Revoked"})
	for _, k := range keys {
		tw.AppendRow(table.Row{k.ID, k.Name, k.SecretID, k.CreatedAt.Format(time.RFC3339), nullTime(k.LastUsedAt.Valid, k.LastUsedAt.Time), nullTime(k.RevokedAt.Valid, k.RevokedAt.Time)})
	}
	return tw.Render()
}

func nullTime(valid bool, t time.Time) string {
	if !valid {
		return "-"
	}
	return t.Format(time.RFC3339)
}
