package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/alfredjeanlab/guildkeeper/internal/events"
	"github.com/alfredjeanlab/guildkeeper/internal/model"
	"github.com/alfredjeanlab/guildkeeper/internal/ui"
)

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func printBindingsTable(bindings []*model.ReactionBinding) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TENANT\tMESSAGE\tEMOJI\tROLE\tUPDATED")
	for _, b := range bindings {
		fmt.Fprintf(w, "%d\t%d\t%s\t%d\t%s\n",
			b.TenantID,
			b.MessageID,
			b.Emoji,
			b.RoleID,
			b.UpdatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush()
	fmt.Printf("\n%d bindings\n", len(bindings))
}

func printTenantConfig(cfg *model.TenantConfig, source string) {
	fmt.Printf("Tenant:   %d\n", cfg.TenantID)
	if cfg.DisplayName != "" {
		fmt.Printf("Name:     %s\n", cfg.DisplayName)
	}
	fmt.Printf("Prefix:   %s\n", ui.RenderAccent(cfg.Prefix))
	if source != "" {
		fmt.Printf("Source:   %s\n", ui.RenderMuted(source))
	}
}

func printEnvelope(env *events.Envelope) {
	fmt.Printf("%s  %s  %s\n",
		ui.RenderMuted(env.At.Format("15:04:05")),
		ui.RenderTopic(env.Topic),
		string(env.Data),
	)
}

func parseTenantID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid tenant id %q", s)
	}
	return id, nil
}
