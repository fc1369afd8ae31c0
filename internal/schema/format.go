package schema

import (
	"fmt"
	"io"
	"strings"
)

// Formatter writes a catalog in a human or model readable layout.
type Formatter interface {
	Format(c *Catalog) error
}

// NewFormatter returns the formatter for "text" or "markdown".
func NewFormatter(format string, w io.Writer) (Formatter, error) {
	switch format {
	case "text", "":
		return NewTextFormatter(w), nil
	case "markdown", "md":
		return NewMarkdownFormatter(w), nil
	default:
		return nil, fmt.Errorf("unknown schema format %q (want text or markdown)", format)
	}
}

// TextFormatter formats the catalog as compact text, the layout used in LLM prompts.
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Format writes the catalog in compact text format
func (f *TextFormatter) Format(c *Catalog) error {
	for i, table := range c.Tables() {
		if i > 0 {
			_, _ = fmt.Fprintln(f.writer)
		}
		pk := ""
		if table.PrimaryKey != "" {
			pk = fmt.Sprintf(" (PK: %s)", table.PrimaryKey)
		}
		if _, err := fmt.Fprintf(f.writer, "TABLE %s%s\n", table.Name, pk); err != nil {
			return err
		}
		if table.Description != "" {
			_, _ = fmt.Fprintf(f.writer, "  -- %s\n", table.Description)
		}
		for _, col := range table.Columns {
			_, _ = fmt.Fprintf(f.writer, "  %s\n", formatColumn(col))
		}
		if len(table.Relationships) > 0 {
			_, _ = fmt.Fprintln(f.writer, "  RELATIONS:")
			for _, rel := range table.Relationships {
				_, _ = fmt.Fprintf(f.writer, "    %s -> %s.%s\n", rel.LocalColumn, rel.ForeignTable, rel.ForeignColumn)
			}
		}
	}
	return nil
}

func formatColumn(col ColumnDef) string {
	parts := []string{col.Name + ":", columnType(col)}
	if !col.Nullable {
		parts = append(parts, "NOT NULL")
	}
	return strings.Join(parts, " ")
}

func columnType(col ColumnDef) string {
	if len(col.Enum) > 0 {
		return fmt.Sprintf("%s (%s)", col.Type, strings.Join(col.Enum, "|"))
	}
	return col.Type
}

// MarkdownFormatter formats the catalog as markdown
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes the catalog in markdown format
func (f *MarkdownFormatter) Format(c *Catalog) error {
	if _, err := fmt.Fprint(f.writer, "# Database Schema\n\n"); err != nil {
		return err
	}

	for _, table := range c.Tables() {
		_, _ = fmt.Fprintf(f.writer, "## %s\n\n", table.Name)
		if table.Description != "" {
			_, _ = fmt.Fprintf(f.writer, "%s\n\n", table.Description)
		}

		_, _ = fmt.Fprint(f.writer, "### Columns\n\n")
		for _, col := range table.Columns {
			var constraints []string
			if col.Name == table.PrimaryKey {
				constraints = append(constraints, "PK")
			}
			if !col.Nullable {
				constraints = append(constraints, "NOT NULL")
			}
			if len(constraints) > 0 {
				_, _ = fmt.Fprintf(f.writer, "- **%s:** %s, %s\n", col.Name, columnType(col), strings.Join(constraints, ", "))
			} else {
				_, _ = fmt.Fprintf(f.writer, "- **%s:** %s\n", col.Name, columnType(col))
			}
		}
		_, _ = fmt.Fprintln(f.writer)

		if len(table.Relationships) > 0 {
			_, _ = fmt.Fprint(f.writer, "### References\n\n")
			for _, rel := range table.Relationships {
				_, _ = fmt.Fprintf(f.writer, "- %s → %s.%s\n", rel.LocalColumn, rel.ForeignTable, rel.ForeignColumn)
			}
			_, _ = fmt.Fprintln(f.writer)
		}
	}
	return nil
}

// Text renders the catalog with the TextFormatter.
func (c *Catalog) Text() string {
	var b strings.Builder
	_ = NewTextFormatter(&b).Format(c)
	return b.String()
}
