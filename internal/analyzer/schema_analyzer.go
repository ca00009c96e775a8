package analyzer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/tabular-seeder/internal/connector"
	"github.com/vitebski/tabular-seeder/pkg/models"
	"github.com/yourbasic/graph"
)

// SchemaAnalyzer reads the existing tables of the target schema and the foreign keys between them
type SchemaAnalyzer struct {
	DB              *connector.DatabaseConnector
	Tables          []string
	ForeignKeys     map[string][]models.ForeignKey
	DependencyGraph *graph.Mutable
	TableIndexMap   map[string]int
	IndexTableMap   map[int]string
	Logger          *logrus.Logger
}

// NewSchemaAnalyzer creates a new schema analyzer
func NewSchemaAnalyzer(db *connector.DatabaseConnector, logger *logrus.Logger) *SchemaAnalyzer {
	return &SchemaAnalyzer{
		DB:            db,
		ForeignKeys:   make(map[string][]models.ForeignKey),
		TableIndexMap: make(map[string]int),
		IndexTableMap: make(map[int]string),
		Logger:        logger,
	}
}

// AnalyzeSchema loads base tables and foreign keys and builds the dependency graph
func (sa *SchemaAnalyzer) AnalyzeSchema(ctx context.Context) error {
	sa.reset()
	dialect := sa.DB.Dialect
	schema := sa.DB.Schema()

	tablesQuery, args := dialect.ListTablesQuery(schema)
	tablesResult, err := sa.DB.ExecuteQuery(ctx, tablesQuery, args...)
	if err != nil {
		sa.Logger.Errorf("Error getting tables: %v", err)
		return err
	}

	for _, row := range tablesResult {
		sa.Tables = append(sa.Tables, asString(row["table_name"]))
	}

	for i, table := range sa.Tables {
		sa.TableIndexMap[table] = i
		sa.IndexTableMap[i] = table
	}
	sa.DependencyGraph = graph.New(len(sa.Tables))

	if len(sa.Tables) == 0 {
		return nil
	}

	fkQuery, args := dialect.ForeignKeysQuery(schema)
	fkResult, err := sa.DB.ExecuteQuery(ctx, fkQuery, args...)
	if err != nil {
		sa.Logger.Errorf("Error getting foreign keys: %v", err)
		return err
	}

	for _, row := range fkResult {
		sa.AddForeignKey(models.ForeignKey{
			Table:           asString(row["table_name"]),
			ReferencedTable: asString(row["referenced_table_name"]),
		})
	}

	sa.Logger.Debugf("Schema %s: %d table(s), %d with foreign keys", schema, len(sa.Tables), len(sa.ForeignKeys))
	return nil
}

// AddForeignKey records a relationship and adds the matching graph edge.
// Self references and tables outside the schema get no edge.
func (sa *SchemaAnalyzer) AddForeignKey(fk models.ForeignKey) {
	sa.ForeignKeys[fk.Table] = append(sa.ForeignKeys[fk.Table], fk)

	if fk.Table == fk.ReferencedTable || sa.DependencyGraph == nil {
		return
	}
	srcIdx, ok := sa.TableIndexMap[fk.Table]
	if !ok {
		return
	}
	destIdx, ok := sa.TableIndexMap[fk.ReferencedTable]
	if !ok {
		return
	}
	sa.DependencyGraph.Add(srcIdx, destIdx)
}

// GetCircularTables returns tables involved in circular dependencies
func (sa *SchemaAnalyzer) GetCircularTables() map[string]bool {
	circularTables := make(map[string]bool)
	if sa.DependencyGraph == nil {
		return circularTables
	}

	for _, component := range graph.StrongComponents(sa.DependencyGraph) {
		if len(component) < 2 {
			continue
		}
		for _, idx := range component {
			circularTables[sa.IndexTableMap[idx]] = true
		}
	}

	return circularTables
}

// GetDropOrder returns the tables with every referencing table before the tables it references.
// When the graph has cycles the tables are returned in name order.
func (sa *SchemaAnalyzer) GetDropOrder() []string {
	if sa.DependencyGraph == nil || len(sa.Tables) == 0 {
		return nil
	}

	order, ok := graph.TopSort(sa.DependencyGraph)
	if !ok {
		circular := sa.GetCircularTables()
		names := make([]string, 0, len(circular))
		for table := range circular {
			names = append(names, table)
		}
		sort.Strings(names)
		sa.Logger.Warningf("Circular foreign keys between %s; dropping in name order", strings.Join(names, ", "))

		ordered := append([]string(nil), sa.Tables...)
		sort.Strings(ordered)
		return ordered
	}

	ordered := make([]string, 0, len(order))
	for _, idx := range order {
		ordered = append(ordered, sa.IndexTableMap[idx])
	}
	return ordered
}

func (sa *SchemaAnalyzer) reset() {
	sa.Tables = nil
	sa.ForeignKeys = make(map[string][]models.ForeignKey)
	sa.TableIndexMap = make(map[string]int)
	sa.IndexTableMap = make(map[int]string)
	sa.DependencyGraph = nil
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case nil:
		return ""
	default:
		return fmt.Sprint(s)
	}
}
