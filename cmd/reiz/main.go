// Command reiz is the CLI surface over pkg/engine: query, stats, and
// ingest, the same rootCmd/subcommand shape as the teacher's demo CLI
// (demo/cmd/main.go), rebuilt against this module's own domain.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/reizio/reiz/internal/config"
	"github.com/reizio/reiz/internal/contenthash"
	"github.com/reizio/reiz/internal/ledger"
	"github.com/reizio/reiz/internal/scanner"
	"github.com/reizio/reiz/internal/statscache"
	"github.com/reizio/reiz/internal/store"
	"github.com/reizio/reiz/pkg/engine"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "reiz",
		Short: "Structural code search over an ingested Python corpus",
		Long:  "Query, stats, and ingest commands over Reiz's graph store.",
	}

	rootCmd.AddCommand(newQueryCmd(), newStatsCmd(), newIngestCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newEngine(cfg *config.Config) *engine.Engine {
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		if opts, err := redis.ParseURL(cfg.RedisURL); err == nil {
			rdb = redis.NewClient(opts)
		} else {
			fmt.Fprintf(os.Stderr, "reiz: ignoring invalid REIZ_REDIS_URL: %v\n", err)
		}
	}
	cache := statscache.New(rdb, cfg.StatsCacheSize, cfg.StatsCacheTTL)
	return engine.New(cache)
}

func connectStore(ctx context.Context, cfg *config.Config) (*store.PostgresConnection, error) {
	return store.Connect(ctx, cfg.DatabaseDSN)
}

func newQueryCmd() *cobra.Command {
	var stats bool
	var limit int

	cmd := &cobra.Command{
		Use:   "query <reizql>",
		Short: "Run a ReizQL pattern against the graph store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			ctx := cmd.Context()

			conn, err := connectStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			eng := newEngine(cfg)
			if limit == 0 {
				limit = cfg.QueryLimit
			}
			result, err := eng.RunQuery(ctx, conn, args[0], stats, limit)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().BoolVar(&stats, "stats", false, "return a count instead of matching rows")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows to return (default: REIZ_QUERY_LIMIT)")
	return cmd
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats [kind...]",
		Short: "Count nodes per kind (defaults to Module, AST, stmt, expr)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			ctx := cmd.Context()

			conn, err := connectStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			kinds := args
			if len(kinds) == 0 {
				kinds = engine.DefaultStatsKinds
			}

			eng := newEngine(cfg)
			result, err := eng.GetStats(ctx, conn, kinds)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	return cmd
}

func newIngestCmd() *cobra.Command {
	var ledgerPath string
	var root bool

	cmd := &cobra.Command{
		Use:   "ingest <project> <path...>",
		Short: "Parse and insert one or more Python source files",
		Long:  "Parse and insert Python source files. With --root, each path is a directory walked recursively for .py files instead of a single file.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			ctx := cmd.Context()
			projectName, targets := args[0], args[1:]

			files := targets
			if root {
				discovered, err := scanner.New(scanner.Config{}).Discover(ctx, targets)
				if err != nil {
					return err
				}
				files = discovered
			}

			conn, err := connectStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			ldb, err := ledger.Connect(ledgerPath, false)
			if err != nil {
				return err
			}
			led := ledger.New(ldb)

			eng := newEngine(cfg)
			projectRef, err := engine.InsertProjectMetadata(ctx, conn, projectName)
			if err != nil {
				return err
			}

			var failed []string
			var skipped int
			for _, filename := range files {
				data, err := os.ReadFile(filename)
				if err != nil {
					led.RecordFailure(projectName, filename, err)
					failed = append(failed, filename)
					continue
				}

				hash := contenthash.Hex(data)
				if led.UpToDate(projectName, filename, hash) {
					skipped++
					continue
				}

				ok := eng.IngestFile(ctx, conn, bytes.NewReader(data), filename, projectRef)
				if ok {
					led.RecordSuccess(projectName, filename, hash)
				} else {
					led.RecordFailure(projectName, filename, fmt.Errorf("ingest failed"))
					failed = append(failed, filename)
				}
			}

			if len(failed) > 0 {
				return fmt.Errorf("failed to ingest %d file(s): %s", len(failed), strings.Join(failed, ", "))
			}
			fmt.Printf("ingested %d file(s) into project %q (%d unchanged, skipped)\n", len(files)-skipped, projectName, skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&ledgerPath, "ledger", "./.reiz/ledger.db", "path to the local ingestion ledger")
	cmd.Flags().BoolVar(&root, "root", false, "treat each path argument as a directory to scan recursively for .py files")
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
