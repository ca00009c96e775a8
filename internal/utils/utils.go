package utils

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/tabular-seeder/internal/config"
	"github.com/vitebski/tabular-seeder/internal/connector"
	"github.com/vitebski/tabular-seeder/pkg/models"
)

// SetupLogging configures the logging system
func SetupLogging(logLevel string) *logrus.Logger {
	logger := logrus.New()

	// Get log level from environment variable or parameter
	levelStr := logLevel
	if levelStr == "" {
		levelStr = os.Getenv(config.EnvLogLevel)
		if levelStr == "" {
			levelStr = "info"
		}
	}

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetOutput(os.Stdout)

	logger.Debugf("Logging configured with level: %s", level)
	return logger
}

// ApplyLogLevel switches an existing logger to the named level; unknown names are ignored
func ApplyLogLevel(logger *logrus.Logger, logLevel string) {
	if logLevel == "" {
		return
	}
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logger.Warningf("Unknown log level %q, keeping %s", logLevel, logger.GetLevel())
		return
	}
	logger.SetLevel(level)
}

// LoadEnvironmentVariables loads environment variables from a .env file.
// Variables already set in the environment win over the file.
func LoadEnvironmentVariables(envFile string, logger *logrus.Logger) bool {
	if envFile == "" {
		return false
	}

	// Check if a sample .env file exists but not the actual .env file
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		sampleEnvFile := envFile + ".sample"
		if _, err := os.Stat(sampleEnvFile); err == nil {
			logger.Infof("No %s file found, but %s exists. Consider copying %s to %s and updating it.",
				envFile, sampleEnvFile, sampleEnvFile, envFile)
		} else {
			logger.Debugf("No %s file found, using existing environment variables", envFile)
		}
		return false
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warningf("Error loading %s file: %v", envFile, err)
		return false
	}
	logger.Infof("Loaded environment variables from %s", envFile)

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		for _, env := range os.Environ() {
			if !strings.HasPrefix(env, "DB_") {
				continue
			}
			parts := strings.SplitN(env, "=", 2)
			if len(parts) != 2 {
				continue
			}
			if parts[0] == config.EnvPassword {
				logger.Debugf("%s=********", parts[0])
			} else {
				logger.Debugf("%s=%s", parts[0], parts[1])
			}
		}
	}

	return true
}

// PrintSummary prints a summary of a folder import
func PrintSummary(summary *models.ImportSummary) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("IMPORT SUMMARY")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Source folder: %s\n", summary.Folder)
	fmt.Printf("Files imported: %d/%d\n", summary.Succeeded, summary.Total())
	fmt.Printf("Failed files: %d\n", summary.Failed)
	fmt.Printf("Unsupported files skipped: %d\n", summary.Unsupported)
	fmt.Printf("Total records inserted: %d\n", summary.InsertedRows())

	var imported, failed []models.FileResult
	for _, r := range summary.Results {
		switch r.Status {
		case models.StatusImported:
			imported = append(imported, r)
		case models.StatusFailed:
			failed = append(failed, r)
		}
	}

	if len(imported) > 0 {
		fmt.Println("\nImported tables:")
		for _, r := range imported {
			fmt.Printf("  ✓ %s <- %s (%d rows in %s)\n", r.Table, r.Path, r.InsertedRows, r.Duration.Round(time.Millisecond))
		}
	}

	if len(failed) > 0 {
		fmt.Println("\nFailed files:")
		for _, r := range failed {
			fmt.Printf("  ✗ %s: %v\n", r.Path, r.Err)
		}
	}

	fmt.Println(strings.Repeat("=", 60))
}

// VerifyImportedTables checks that every imported table holds as many rows as its source file
func VerifyImportedTables(ctx context.Context, db *connector.DatabaseConnector, results []models.FileResult, logger *logrus.Logger) models.VerificationResult {
	logger.Info("Verifying row counts of imported tables...")

	verification := models.VerificationResult{
		MismatchedTables: make(map[string]models.RowCountMismatch),
	}

	for _, r := range results {
		if r.Status != models.StatusImported {
			continue
		}

		qualified := db.Dialect.QualifiedName(db.Schema(), r.Table)
		query := fmt.Sprintf("SELECT COUNT(*) AS count FROM %s", qualified)
		result, err := db.ExecuteQuery(ctx, query)
		if err != nil || len(result) == 0 {
			logger.Warningf("Could not verify record count for table: %s", r.Table)
			verification.MissingTables = append(verification.MissingTables, r.Table)
			continue
		}

		count, err := toInt64(result[0]["count"])
		if err != nil {
			logger.Warningf("Could not parse count for table %s: %v", r.Table, err)
			verification.MissingTables = append(verification.MissingTables, r.Table)
			continue
		}

		if count != int64(r.SourceRows) {
			logger.Warningf("Table %s has %d records, source file has %d", r.Table, count, r.SourceRows)
			verification.MismatchedTables[r.Table] = models.RowCountMismatch{
				Expected: int64(r.SourceRows),
				Actual:   count,
			}
		}
	}

	verification.Success = len(verification.MissingTables) == 0 && len(verification.MismatchedTables) == 0

	if verification.Success {
		logger.Info("Verification successful: every table matches its source file")
	} else {
		if len(verification.MissingTables) > 0 {
			logger.Errorf("Verification failed: %d tables could not be counted", len(verification.MissingTables))
		}
		if len(verification.MismatchedTables) > 0 {
			logger.Errorf("Verification failed: %d tables have unexpected row counts", len(verification.MismatchedTables))
		}
	}

	return verification
}

// PrintVerificationResults prints the results of the row count verification
func PrintVerificationResults(verification models.VerificationResult) {
	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("ROW COUNT VERIFICATION RESULTS")
	fmt.Println(strings.Repeat("=", 50))

	if verification.Success {
		fmt.Println("✅ Every imported table matches its source file")
		fmt.Println(strings.Repeat("=", 50))
		return
	}

	if len(verification.MissingTables) > 0 {
		fmt.Printf("❌ %d tables could not be counted:\n", len(verification.MissingTables))
		for _, table := range verification.MissingTables {
			fmt.Printf("  - %s\n", table)
		}
		fmt.Println()
	}

	if len(verification.MismatchedTables) > 0 {
		tables := make([]string, 0, len(verification.MismatchedTables))
		for table := range verification.MismatchedTables {
			tables = append(tables, table)
		}
		sort.Strings(tables)

		fmt.Printf("⚠️  %d tables have unexpected row counts:\n", len(tables))
		for _, table := range tables {
			m := verification.MismatchedTables[table]
			fmt.Printf("  - %s: %d/%d records\n", table, m.Actual, m.Expected)
		}
		fmt.Println()
	}

	fmt.Println(strings.Repeat("=", 50))
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	default:
		return strconv.ParseInt(fmt.Sprintf("%v", v), 10, 64)
	}
}
