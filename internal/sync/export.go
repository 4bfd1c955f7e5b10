// Package sync exports the bot's persistent state (tenant prefixes and
// reaction bindings) as JSONL and ships it to backup destinations.
package sync

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alfredjeanlab/guildkeeper/internal/model"
)

// FormatVersion is written in the header of every export.
const FormatVersion = "1"

// Record types.
const (
	TypeHeader  = "header"
	TypeTenant  = "tenant"
	TypeBinding = "binding"
)

// Source is the read side of the store used for exports.
type Source interface {
	ListTenantConfigs(ctx context.Context) ([]*model.TenantConfig, error)
	ListBindings(ctx context.Context, tenantID uint64) ([]*model.ReactionBinding, error)
}

// Sink is the write side of the store used for imports.
type Sink interface {
	UpsertTenantConfig(ctx context.Context, cfg *model.TenantConfig) error
	UpsertBinding(ctx context.Context, b *model.ReactionBinding) error
}

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version      string    `json:"version"`
	Type         string    `json:"type"`
	Timestamp    time.Time `json:"timestamp"`
	TenantCount  int       `json:"tenant_count"`
	BindingCount int       `json:"binding_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ExportJSONL writes every tenant config and reaction binding to w, one
// JSON object per line, after a header line. Tenants come out ordered by
// id; bindings by tenant, message and role.
func ExportJSONL(ctx context.Context, s Source, w io.Writer) error {
	tenants, err := s.ListTenantConfigs(ctx)
	if err != nil {
		return fmt.Errorf("list tenant configs: %w", err)
	}
	bindings, err := s.ListBindings(ctx, 0)
	if err != nil {
		return fmt.Errorf("list bindings: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:      FormatVersion,
		Type:         TypeHeader,
		Timestamp:    time.Now().UTC(),
		TenantCount:  len(tenants),
		BindingCount: len(bindings),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, t := range tenants {
		if err := enc.Encode(record{Type: TypeTenant, Data: t}); err != nil {
			return fmt.Errorf("encode tenant %d: %w", t.TenantID, err)
		}
	}
	for _, b := range bindings {
		if err := enc.Encode(record{Type: TypeBinding, Data: b}); err != nil {
			return fmt.Errorf("encode binding for role %d: %w", b.RoleID, err)
		}
	}
	return nil
}

// ImportStats counts what ImportJSONL applied.
type ImportStats struct {
	Tenants  int
	Bindings int
}

// ImportJSONL replays an export into s. Each record is upserted, so
// importing the same file twice is harmless. Records are validated before
// they are written; the first invalid record stops the import.
func ImportJSONL(ctx context.Context, r io.Reader, s Sink) (ImportStats, error) {
	var stats ImportStats

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}

		var rec struct {
			Type    string          `json:"type"`
			Version string          `json:"version"`
			Data    json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &rec); err != nil {
			return stats, fmt.Errorf("line %d: %w", line, err)
		}

		switch rec.Type {
		case TypeHeader:
			if rec.Version != FormatVersion {
				return stats, fmt.Errorf("line %d: unsupported export version %q", line, rec.Version)
			}
		case TypeTenant:
			var c model.TenantConfig
			if err := json.Unmarshal(rec.Data, &c); err != nil {
				return stats, fmt.Errorf("line %d: %w", line, err)
			}
			if c.TenantID == 0 {
				return stats, fmt.Errorf("line %d: tenant record without tenant_id", line)
			}
			if err := model.ValidatePrefix(c.Prefix); err != nil {
				return stats, fmt.Errorf("line %d: %w", line, err)
			}
			if err := s.UpsertTenantConfig(ctx, &c); err != nil {
				return stats, fmt.Errorf("line %d: %w", line, err)
			}
			stats.Tenants++
		case TypeBinding:
			var b model.ReactionBinding
			if err := json.Unmarshal(rec.Data, &b); err != nil {
				return stats, fmt.Errorf("line %d: %w", line, err)
			}
			if err := model.ValidateBinding(&b); err != nil {
				return stats, fmt.Errorf("line %d: %w", line, err)
			}
			if err := s.UpsertBinding(ctx, &b); err != nil {
				return stats, fmt.Errorf("line %d: %w", line, err)
			}
			stats.Bindings++
		default:
			return stats, fmt.Errorf("line %d: unknown record type %q", line, rec.Type)
		}
	}
	if err := sc.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}
