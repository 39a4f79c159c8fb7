package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/cargo2hf/pkg/columnar"
	"github.com/matzehuels/cargo2hf/pkg/pipeline"
	"github.com/matzehuels/cargo2hf/pkg/schema"
)

// inspectCommand creates the inspect command, which summarizes the phase
// tables in a dataset directory.
func (c *CLI) inspectCommand() *cobra.Command {
	var columns bool

	cmd := &cobra.Command{
		Use:   "inspect [dir]",
		Short: "Summarize the Parquet tables of an exported dataset",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := pipeline.DefaultOutputDir
			if len(args) == 1 {
				dir = args[0]
			}
			return c.runInspect(dir, columns)
		},
	}

	cmd.Flags().BoolVar(&columns, "columns", false, "list the columns of each table")

	return cmd
}

func (c *CLI) runInspect(dir string, columns bool) error {
	tables, err := columnar.Inspect(dir)
	if err != nil {
		return err
	}
	if len(tables) == 0 {
		printInfo(c.Out, "No phase tables in %s", dir)
		return nil
	}

	fmt.Fprintln(c.Out, StyleTitle.Render(dir))
	for _, t := range tables {
		summary := fmt.Sprintf("%d rows · %d row groups · %s", t.Rows, t.RowGroups, formatSize(t.Size))
		printKeyValue(c.Out, t.Phase.String(), summary)
		if !t.Conforms {
			printMismatch(c.Out, "%s does not match the %s layout", t.File, t.Phase)
		}
		if columns {
			for _, col := range t.Columns {
				printDetail(c.Out, "%s", describeColumn(col))
			}
		}
	}
	return nil
}

func describeColumn(col schema.Column) string {
	var b strings.Builder
	b.WriteString(col.Name)
	b.WriteString(" ")
	if col.Repeated {
		b.WriteString("list<")
		b.WriteString(col.Type)
		b.WriteString(">")
	} else {
		b.WriteString(col.Type)
	}
	return b.String()
}

// formatSize renders a byte count with a binary unit.
func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
