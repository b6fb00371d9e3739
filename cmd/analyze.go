package cmd

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-extaint/internal/aggregate"
	"github.com/xkilldash9x/scalpel-extaint/internal/analyzer"
	"github.com/xkilldash9x/scalpel-extaint/internal/config"
	"github.com/xkilldash9x/scalpel-extaint/internal/detector"
	"github.com/xkilldash9x/scalpel-extaint/internal/extension"
	"github.com/xkilldash9x/scalpel-extaint/internal/observability"
	"github.com/xkilldash9x/scalpel-extaint/internal/parser"
	"github.com/xkilldash9x/scalpel-extaint/internal/store"
	"github.com/xkilldash9x/scalpel-extaint/internal/worker"
)

// newAnalyzeCmd creates and configures the `analyze` command.
func newAnalyzeCmd() *cobra.Command {
	analyzeCmd := &cobra.Command{
		Use:   "analyze [extension-dirs...]",
		Short: "Analyzes one or more unpacked browser extensions for message-channel taint bugs",
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			runID := uuid.New().String()
			logger.Info("starting analysis run", zap.String("run_id", runID), zap.Strings("targets", args))

			var cfg config.Config
			if err := viper.Unmarshal(&cfg); err != nil {
				return fmt.Errorf("failed to re-unmarshal config with flag overrides: %w", err)
			}
			cfg.SetRunConfig(config.RunConfig{
				ExtensionDirs: args,
				Output:        viper.GetString("output"),
			})

			exts, err := loadExtensions(cfg.Run().ExtensionDirs)
			if err != nil {
				return err
			}

			src, err := parser.New(cfg.Analyzer().Parser, cfg.Analyzer().ParserCommand, cfg.Analyzer().ParserTimeoutSeconds)
			if err != nil {
				return fmt.Errorf("failed to initialize parser: %w", err)
			}

			tables := detector.NewDefaultTables()
			if err := detector.LoadOverlay(tables, cfg.Detector().SourceTablePath); err != nil {
				return err
			}
			if err := detector.LoadOverlay(tables, cfg.Detector().SinkTablePath); err != nil {
				return err
			}

			pipeline := analyzer.NewPipeline(src, tables, cfg.Analyzer(), cfg.Detector())
			pool := worker.New(pipeline, cfg.Engine().ExtensionConcurrency, cfg.Engine().IntraExtensionConcurrency, cfg.Engine().ExtensionTimeout)

			cache, cacheCleanup, err := initializeStore(ctx, cfg.Store(), logger)
			if err != nil {
				return err
			}
			defer cacheCleanup()

			reports := make([]aggregate.Report, 0, len(exts))
			var toAnalyze []*extension.Extension
			hashes := make(map[string]string, len(exts))

			for _, ext := range exts {
				hash, err := contentHash(ext)
				if err != nil {
					return err
				}
				hashes[ext.ID] = hash

				if cache != nil {
					if cached, found, err := cache.GetCachedReport(ctx, ext.ID, hash); err != nil {
						logger.Warn("cache lookup failed, analyzing anyway", zap.String("extension", ext.ID), zap.Error(err))
					} else if found {
						logger.Info("reusing cached report", zap.String("extension", ext.ID))
						reports = append(reports, *cached)
						continue
					}
				}
				toAnalyze = append(toAnalyze, ext)
			}

			results := pool.Run(ctx, toAnalyze)
			for i, res := range results {
				ext := toAnalyze[i]
				report := aggregate.BuildReport(res, ext)
				reports = append(reports, report)

				if cache != nil && res.Crash == nil {
					if err := cache.PutReport(ctx, ext.ID, hashes[ext.ID], runID, report); err != nil {
						logger.Warn("failed to persist report to cache", zap.String("extension", ext.ID), zap.Error(err))
					}
				}
			}

			sort.Slice(reports, func(i, j int) bool { return reports[i].Extension < reports[j].Extension })
			logger.Info("analysis run complete", zap.String("run_id", runID), zap.Int("extensions", len(reports)))
			return writeReports(reports, cfg.Run().Output)
		},
	}

	analyzeCmd.Flags().StringP("output", "o", "", "Output file path for the JSON report. If unset, writes to stdout.")

	return analyzeCmd
}

func loadExtensions(dirs []string) ([]*extension.Extension, error) {
	exts := make([]*extension.Extension, 0, len(dirs))
	for _, dir := range dirs {
		ext, err := extension.Load(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to load extension at %s: %w", dir, err)
		}
		exts = append(exts, ext)
	}
	return exts, nil
}

// contentHash fingerprints an extension's analyzed files by size and
// modification time, so an unchanged extension hits the store's cache
// without the analyzer re-reading every file's contents twice.
func contentHash(ext *extension.Extension) (string, error) {
	h := sha256.New()
	files := append(append([]string{}, ext.Background...), ext.ContentJS...)
	sort.Strings(files)
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			return "", fmt.Errorf("failed to stat %s: %w", f, err)
		}
		fmt.Fprintf(h, "%s:%d:%d\n", f, info.Size(), info.ModTime().UnixNano())
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func initializeStore(ctx context.Context, sc config.StoreConfig, logger *zap.Logger) (*store.Store, func(), error) {
	noop := func() {}
	if !sc.Enabled {
		return nil, noop, nil
	}
	pool, err := pgxpool.New(ctx, sc.DSN)
	if err != nil {
		return nil, noop, fmt.Errorf("failed to connect to store database: %w", err)
	}
	s, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, noop, fmt.Errorf("failed to initialize store: %w", err)
	}
	return s, pool.Close, nil
}

func writeReports(reports []aggregate.Report, outputPath string) error {
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode reports: %w", err)
	}
	if outputPath == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", outputPath, err)
	}
	observability.GetLogger().Info("wrote analysis report", zap.String("path", outputPath), zap.Int("extensions", len(reports)))
	return nil
}
