package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	gksync "github.com/alfredjeanlab/guildkeeper/internal/sync"
)

var exportCmd = &cobra.Command{
	Use:     "export",
	Short:   "Write all tenant settings and bindings as JSONL",
	GroupID: "data",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		var w io.Writer = os.Stdout
		if output != "" && output != "-" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			defer f.Close()
			w = f
		}

		if err := gksync.ExportJSONL(cmd.Context(), store, w); err != nil {
			return err
		}
		if output != "" && output != "-" {
			logger.Info("export written", "path", output)
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:     "import <file>",
	Short:   "Replay a JSONL export into the database",
	GroupID: "data",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		var r io.Reader = os.Stdin
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		sink := &prefixRecorder{Sink: store}
		stats, err := gksync.ImportJSONL(cmd.Context(), r, sink)
		logger.Info("import finished", "tenants", stats.Tenants, "bindings", stats.Bindings)
		// Tenants written before a failure still need announcing.
		if aerr := announcePrefixes(cmd.Context(), cfg.NATSURL, logger, sink.changes); aerr != nil {
			if err == nil {
				return aerr
			}
			logger.Error("announcing imported prefixes", "err", aerr)
		}
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d tenants and %d bindings.\n", stats.Tenants, stats.Bindings)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "file to write (default stdout)")
}
