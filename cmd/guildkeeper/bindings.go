package main

import (
	"github.com/spf13/cobra"
)

var bindingsCmd = &cobra.Command{
	Use:     "bindings [tenant-id]",
	Short:   "List reaction-role bindings (all servers when no id is given)",
	GroupID: "data",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var tenantID uint64
		if len(args) == 1 {
			id, err := parseTenantID(args[0])
			if err != nil {
				return err
			}
			tenantID = id
		}

		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		bindings, err := store.ListBindings(cmd.Context(), tenantID)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(bindings)
			return nil
		}
		printBindingsTable(bindings)
		return nil
	},
}
