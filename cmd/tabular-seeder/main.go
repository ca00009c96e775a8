package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vitebski/tabular-seeder/internal/analyzer"
	"github.com/vitebski/tabular-seeder/internal/config"
	"github.com/vitebski/tabular-seeder/internal/connector"
	"github.com/vitebski/tabular-seeder/internal/generator"
	"github.com/vitebski/tabular-seeder/internal/importer"
	"github.com/vitebski/tabular-seeder/internal/utils"
	"github.com/vitebski/tabular-seeder/pkg/models"
)

func main() {
	var (
		driver      string
		host        string
		port        string
		database    string
		user        string
		password    string
		schema      string
		sslMode     string
		sourceDir   string
		tablePrefix string
		dropTables  bool
		batchSize   int
		envFile     string
		logLevel    string
		verify      bool
		tableName   string
		rows        int
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// loadConfig resolves flags over environment over .env over defaults
	loadConfig := func(cmd *cobra.Command) (config.Config, *logrus.Logger) {
		logger := utils.SetupLogging(logLevel)
		utils.LoadEnvironmentVariables(envFile, logger)

		cfg := config.Default()
		if err := cfg.ApplyEnvironment(); err != nil {
			logger.Errorf("Invalid environment: %v", err)
			os.Exit(1)
		}

		flags := cmd.Flags()
		if flags.Changed("log-level") {
			cfg.LogLevel = logLevel
		} else {
			// LOG_LEVEL may only have become visible once the .env file was loaded
			utils.ApplyLogLevel(logger, cfg.LogLevel)
		}
		if flags.Changed("driver") {
			cfg.Database.Driver = driver
			if !flags.Changed("port") {
				cfg.Database.Port = config.DefaultPort(driver)
			}
			if !flags.Changed("schema") {
				cfg.Database.Schema = config.DefaultSchema(driver, cfg.Database.Name)
			}
		}
		if flags.Changed("host") {
			cfg.Database.Host = host
		}
		if flags.Changed("port") {
			cfg.Database.Port = port
		}
		if flags.Changed("database") {
			cfg.Database.Name = database
			if cfg.Database.Driver == config.DriverMySQL && !flags.Changed("schema") {
				cfg.Database.Schema = database
			}
		}
		if flags.Changed("user") {
			cfg.Database.User = user
		}
		if flags.Changed("password") {
			cfg.Database.Password = password
		}
		if flags.Changed("schema") {
			cfg.Database.Schema = schema
		}
		if flags.Changed("sslmode") {
			cfg.Database.SSLMode = sslMode
		}
		if flags.Changed("source-dir") {
			cfg.SourceDir = sourceDir
		}
		if flags.Changed("table-prefix") {
			cfg.TablePrefix = tablePrefix
		}
		if flags.Changed("drop-tables") {
			cfg.DropTables = dropTables
		}
		if flags.Changed("batch-size") {
			cfg.BatchSize = batchSize
		}
		cfg.Verify = verify
		cfg.EnvFile = envFile

		if err := cfg.Validate(); err != nil {
			logger.Errorf("Invalid configuration: %v", err)
			os.Exit(1)
		}
		if cfg.Database.Password == "" && cfg.Database.Driver != config.DriverSQLite {
			logger.Warningf("No database password configured; set %s or pass --password", config.EnvPassword)
		}

		return cfg, logger
	}

	// connect opens the single session used for the whole run
	connect := func(cfg config.Config, logger *logrus.Logger) *connector.DatabaseConnector {
		db, err := connector.NewDatabaseConnector(cfg.Database, logger)
		if err != nil {
			logger.Errorf("Invalid database configuration: %v", err)
			os.Exit(1)
		}
		if err := db.Connect(ctx); err != nil {
			logger.Errorf("Failed to connect to database: %v", err)
			os.Exit(1)
		}
		return db
	}

	newImporter := func(cfg config.Config, db *connector.DatabaseConnector, logger *logrus.Logger) *importer.Importer {
		schemaAnalyzer := analyzer.NewSchemaAnalyzer(db, logger)
		return importer.NewImporter(db, schemaAnalyzer, cfg.TablePrefix, cfg.BatchSize, logger)
	}

	// verifyResults reports whether every imported table matches its source file
	verifyResults := func(db *connector.DatabaseConnector, results []models.FileResult, logger *logrus.Logger) bool {
		verification := utils.VerifyImportedTables(ctx, db, results, logger)
		utils.PrintVerificationResults(verification)
		return verification.Success
	}

	rootCmd := &cobra.Command{
		Use:   "tabular-seeder",
		Short: "Load every CSV and XLSX file of a folder into its own database table",
		Long: `Tabular Seeder

Reads CSV and XLSX files from a folder and loads each one into a table
with an inferred schema. Existing tables can be dropped first so every
run starts from a clean schema. Supports PostgreSQL, MySQL and SQLite.`,
		Run: func(cmd *cobra.Command, args []string) {
			cfg, logger := loadConfig(cmd)

			db := connect(cfg, logger)
			defer db.Disconnect()

			im := newImporter(cfg, db, logger)

			if cfg.DropTables {
				if err := im.DropAllTables(ctx); err != nil {
					logger.Errorf("Failed to drop tables: %v", err)
					db.Disconnect()
					os.Exit(1)
				}
			} else {
				logger.Info("Keeping existing tables")
			}

			summary := im.ImportAllFilesFromFolder(ctx, cfg.SourceDir)
			utils.PrintSummary(summary)

			if cfg.Verify && !verifyResults(db, summary.Results, logger) {
				db.Disconnect()
				os.Exit(1)
			}
		},
	}

	dropCmd := &cobra.Command{
		Use:   "drop",
		Short: "Drop every base table in the target schema",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cfg, logger := loadConfig(cmd)

			db := connect(cfg, logger)
			defer db.Disconnect()

			if err := newImporter(cfg, db, logger).DropAllTables(ctx); err != nil {
				logger.Errorf("Failed to drop tables: %v", err)
				db.Disconnect()
				os.Exit(1)
			}
		},
	}

	fileCmd := &cobra.Command{
		Use:   "file PATH",
		Short: "Import a single CSV or XLSX file",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg, logger := loadConfig(cmd)

			db := connect(cfg, logger)
			defer db.Disconnect()

			result := newImporter(cfg, db, logger).ImportSourceFile(ctx, args[0], tableName)

			summary := &models.ImportSummary{Folder: args[0]}
			summary.Add(result)
			utils.PrintSummary(summary)

			failed := result.Status != models.StatusImported
			if !failed && cfg.Verify {
				failed = !verifyResults(db, summary.Results, logger)
			}
			if failed {
				db.Disconnect()
				os.Exit(1)
			}
		},
	}
	fileCmd.Flags().StringVarP(&tableName, "table", "t", "", "Destination table name (default: prefix + upper-cased file name)")

	generateCmd := &cobra.Command{
		Use:   "generate [DIR]",
		Short: "Write sample CSV and XLSX files filled with fake data",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			logger := utils.SetupLogging(logLevel)
			utils.LoadEnvironmentVariables(envFile, logger)
			if !cmd.Flags().Changed("log-level") {
				utils.ApplyLogLevel(logger, os.Getenv(config.EnvLogLevel))
			}

			dir := os.Getenv(config.EnvSourceDir)
			if dir == "" {
				dir = config.Default().SourceDir
			}
			if cmd.Flags().Changed("source-dir") {
				dir = sourceDir
			}
			if len(args) == 1 {
				dir = args[0]
			}

			if rows < 1 {
				logger.Errorf("Row count must be positive, got %d", rows)
				os.Exit(1)
			}

			files, err := generator.NewSampleGenerator(rows, logger).GenerateFiles(dir)
			if err != nil {
				logger.Errorf("Failed to generate sample files: %v", err)
				os.Exit(1)
			}
			for _, f := range files {
				fmt.Println(f)
			}
		},
	}
	generateCmd.Flags().IntVarP(&rows, "rows", "r", 50, "Number of rows per generated file")

	// Define flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&driver, "driver", "", "Database driver: postgres, mysql or sqlite (default: postgres)")
	flags.StringVarP(&host, "host", "H", "", "Database host (default: localhost)")
	flags.StringVarP(&port, "port", "P", "", "Database port (default: 5432, 3306 for mysql)")
	flags.StringVarP(&database, "database", "d", "", "Database name, or file path for sqlite (default: postgres)")
	flags.StringVarP(&user, "user", "u", "", "Database user (default: postgres)")
	flags.StringVarP(&password, "password", "p", "", "Database password")
	flags.StringVar(&schema, "schema", "", "Target schema (default: public)")
	flags.StringVar(&sslMode, "sslmode", "", "PostgreSQL sslmode (default: disable)")
	flags.StringVarP(&sourceDir, "source-dir", "s", "", "Folder with the CSV and XLSX files (default: src)")
	flags.StringVar(&tablePrefix, "table-prefix", "", "Prefix of generated table names (default: TAB_)")
	flags.BoolVar(&dropTables, "drop-tables", true, "Drop every existing table before importing")
	flags.IntVarP(&batchSize, "batch-size", "b", importer.DefaultBatchSize, "Rows per INSERT statement")
	flags.StringVarP(&envFile, "env-file", "e", ".env", "Path to .env file")
	flags.StringVarP(&logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
	flags.BoolVarP(&verify, "verify", "v", false, "Verify that every imported table holds as many rows as its source file")

	rootCmd.AddCommand(dropCmd, fileCmd, generateCmd)

	// Execute
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
