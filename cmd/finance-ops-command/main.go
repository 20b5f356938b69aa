package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/RMendoza92-afk/finance-ops-command-sub002/internal/config"
	"github.com/RMendoza92-afk/finance-ops-command-sub002/internal/engine"
	"github.com/RMendoza92-afk/finance-ops-command-sub002/internal/ingest"
	"github.com/RMendoza92-afk/finance-ops-command-sub002/internal/server"
	"github.com/RMendoza92-afk/finance-ops-command-sub002/internal/store"
	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/constants"
	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/output"
	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/validation"
)

var version = "dev"

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// Determine log level (CLI override takes precedence)
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info" // Default to info level
	}

	// Parse log level
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	// Determine output format
	format := loggingConfig.Format
	if format == "" {
		format = "json" // Default to JSON for production
	}

	// Configure encoder
	var zapConfig zap.Config
	switch format {
	case "console":
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)
	case "json":
		zapConfig = zap.NewProductionConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}

	// Configure output file if specified
	if loggingConfig.OutputFile != "" {
		// Ensure the directory exists
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}

		// Test if we can create/write to the file
		if file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		} else {
			_ = file.Close()
		}

		zapConfig.OutputPaths = []string{loggingConfig.OutputFile}
		zapConfig.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return zapConfig.Build()
}

func main() {
	// Process command line flags first to get config location
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	triangleFile := flag.String("triangle", "", "triangle CSV override")
	aggregateFile := flag.String("aggregates", "", "aggregate CSV override")
	serve := flag.Bool("serve", false, "run the HTTP analytics server instead of a one-shot analysis")
	serverConfigLocation := flag.String("server-config", "", "path to server configuration file")
	flag.Parse()

	// Load the config file to get logging configuration
	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		return
	}

	// Initialize logging based on config and CLI override
	logger, err := initializeLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Validate configuration and display any warnings
	warnings := conf.ValidateConfiguration()
	for _, warning := range warnings {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	// Ladder and capital parameters fail fast; everything downstream
	// degrades instead of erroring.
	params, err := conf.EngineParams()
	if err != nil {
		logger.Fatal("invalid engine parameters",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	eng, err := engine.New(params, logger)
	if err != nil {
		logger.Fatal("failed to initialize engine",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	if *serve {
		runServer(logger, eng, conf, *serverConfigLocation)
		return
	}

	// Determine output format (CLI override takes precedence over config)
	outputFormat := conf.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty // Default to pretty format
	}

	err = validation.ValidateOutputFormat(outputFormat)
	if err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}

	trianglePath := conf.Data.TriangleFile
	if *triangleFile != "" {
		trianglePath = *triangleFile
	}
	aggregatePath := conf.Data.AggregateFile
	if *aggregateFile != "" {
		aggregatePath = *aggregateFile
	}
	if trianglePath == "" && aggregatePath == "" {
		logger.Fatal("no data sources configured; set data.triangleFile or pass -triangle",
			zap.String("op", "main"),
		)
	}

	snapshot, err := readSnapshot(logger, trianglePath, aggregatePath)
	if err != nil {
		logger.Fatal("failed to read input data",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	result := eng.Run(snapshot)

	// Handle output.
	switch outputFormat {
	case constants.OutputFormatPretty:
		output.PrettyFormat(result)
	case constants.OutputFormatCSV:
		output.CsvFormat(result)
	}
}

func readSnapshot(logger *zap.Logger, trianglePath, aggregatePath string) (snapshot engine.Snapshot, err error) {
	var triangleReader, aggregateReader *os.File

	if trianglePath != "" {
		triangleReader, err = os.Open(trianglePath)
		if err != nil {
			return snapshot, fmt.Errorf("open triangle file: %w", err)
		}
		defer func() {
			_ = triangleReader.Close()
		}()
	}
	if aggregatePath != "" {
		aggregateReader, err = os.Open(aggregatePath)
		if err != nil {
			return snapshot, fmt.Errorf("open aggregate file: %w", err)
		}
		defer func() {
			_ = aggregateReader.Close()
		}()
	}

	reader := ingest.NewReader(logger)
	if triangleReader != nil && aggregateReader != nil {
		return reader.ReadSnapshot(triangleReader, aggregateReader)
	}
	if triangleReader != nil {
		return reader.ReadSnapshot(triangleReader, nil)
	}
	return reader.ReadSnapshot(nil, aggregateReader)
}

func runServer(logger *zap.Logger, eng *engine.Engine, conf *config.Configuration, serverConfigLocation string) {
	serverConf, err := server.LoadConfig(serverConfigLocation)
	if err != nil {
		logger.Fatal("failed to load server configuration",
			zap.String("op", "main.runServer"),
			zap.Error(err),
		)
	}

	databasePath := serverConf.DatabasePath
	if databasePath == "" {
		databasePath = conf.Data.DatabasePath
	}

	var snapshots server.SnapshotStore
	var sqliteStore *store.SQLiteStore
	if databasePath != "" {
		sqliteStore, err = store.NewSQLiteStore(databasePath, logger)
		if err != nil {
			logger.Fatal("failed to open snapshot store",
				zap.String("op", "main.runServer"),
				zap.Error(err),
			)
		}
		defer func() {
			_ = sqliteStore.Close()
		}()
		snapshots = sqliteStore
	}

	handler, refreshable := server.NewRefreshableHandler(logger, eng, snapshots, serverConf.UploadSizeBytes(), version)

	// Publish whatever the store already holds before accepting traffic.
	if snapshots != nil {
		if err := refreshable.Refresh(); err != nil {
			logger.Warn("initial refresh failed",
				zap.String("op", "main.runServer"),
				zap.Error(err),
			)
		}
	}

	if snapshots != nil && serverConf.RefreshSchedule != "" {
		runner, err := refreshable.Schedule(serverConf.RefreshSchedule)
		if err != nil {
			logger.Fatal("failed to schedule refresh",
				zap.String("op", "main.runServer"),
				zap.Error(err),
			)
		}
		defer runner.Stop()
	}

	logger.Info("starting analytics server",
		zap.String("op", "main.runServer"),
		zap.String("address", serverConf.Address),
	)
	if err := http.ListenAndServe(serverConf.Address, handler); err != nil {
		logger.Fatal("server terminated",
			zap.String("op", "main.runServer"),
			zap.Error(err),
		)
	}
}
