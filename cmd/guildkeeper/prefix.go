package main

import (
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/guildkeeper/internal/events"
	"github.com/alfredjeanlab/guildkeeper/internal/model"
	"github.com/alfredjeanlab/guildkeeper/internal/prefix"
)

var prefixCmd = &cobra.Command{
	Use:     "prefix <tenant-id> [new-prefix]",
	Short:   "Show or change a server's command prefix",
	GroupID: "data",
	Args:    cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tenantID, err := parseTenantID(args[0])
		if err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("name")

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		cache := prefix.New(store, prefix.Config{
			Default:     cfg.DefaultPrefix,
			LockTimeout: cfg.PrefixLockTimeout,
		}, logger)

		var (
			p      string
			source string
		)
		if len(args) == 2 {
			p, err = cache.GetOrSet(cmd.Context(), tenantID, name, &args[1])
		} else {
			var src prefix.Source
			p, src, err = cache.Get(cmd.Context(), tenantID)
			source = src.String()
		}
		if err != nil {
			return err
		}
		if len(args) == 2 {
			changed := events.PrefixChanged{TenantID: tenantID, Prefix: p}
			if err := announcePrefixes(cmd.Context(), cfg.NATSURL, logger, []events.PrefixChanged{changed}); err != nil {
				return err
			}
		}

		out := &model.TenantConfig{TenantID: tenantID, DisplayName: name, Prefix: p}
		if jsonOutput {
			printJSON(out)
			return nil
		}
		printTenantConfig(out, source)
		return nil
	},
}

func init() {
	prefixCmd.Flags().String("name", "", "server name to record with a new prefix")
}
