package importer

import (
	"fmt"
	"strings"

	"github.com/vitebski/tabular-seeder/internal/connector"
	"github.com/vitebski/tabular-seeder/pkg/models"
)

// BuildCreateTableSQL renders the CREATE TABLE statement for a loaded file:
// the surrogate identity column first, then one column per source column in source order.
func BuildCreateTableSQL(d connector.Dialect, qualifiedName string, table *models.Table) (string, error) {
	if len(table.Columns) == 0 {
		return "", fmt.Errorf("table %s: at least one column is required", qualifiedName)
	}

	cols := make([]string, 0, len(table.Columns)+1)
	cols = append(cols, d.IdentityColumn())
	for _, c := range table.Columns {
		if c.Name == "" {
			return "", fmt.Errorf("table %s: column with empty name", qualifiedName)
		}
		cols = append(cols, d.QuoteIdentifier(c.Name)+" "+d.ColumnType(c.Type))
	}

	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", qualifiedName, strings.Join(cols, ",\n  ")), nil
}

// BuildInsertSQL renders a parameterized INSERT for rowCount rows of the given columns
func BuildInsertSQL(d connector.Dialect, qualifiedName string, columns []string, rowCount int) string {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = d.QuoteIdentifier(col)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", qualifiedName, strings.Join(quoted, ", "))

	n := 1
	placeholders := make([]string, len(columns))
	for r := 0; r < rowCount; r++ {
		if r > 0 {
			sb.WriteString(", ")
		}
		for i := range columns {
			placeholders[i] = d.Placeholder(n)
			n++
		}
		sb.WriteString("(")
		sb.WriteString(strings.Join(placeholders, ", "))
		sb.WriteString(")")
	}

	return sb.String()
}
