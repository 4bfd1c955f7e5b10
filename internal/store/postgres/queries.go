package postgres

import (
	"context"
	"database/sql"

	"github.com/alfredjeanlab/guildkeeper/internal/model"
)

// tenantConfigColumns is the column list used for SELECT statements on tenant_config.
const tenantConfigColumns = `tenant_id, display_name, prefix, updated_at`

// bindingColumns is the column list used for SELECT statements on reaction_binding.
const bindingColumns = `role_id, tenant_id, message_id, emoji_id, emoji_name, emoji_animated, updated_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryGetTenantConfig(ctx context.Context, db executor, tenantID uint64) (*model.TenantConfig, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+tenantConfigColumns+`
		FROM tenant_config WHERE tenant_id = $1`, int64(tenantID))
	return scanTenantConfig(row)
}

// An empty display name keeps the stored one.
func queryUpsertTenantConfig(ctx context.Context, db executor, c *model.TenantConfig) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO tenant_config (tenant_id, display_name, prefix)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id) DO UPDATE
		SET display_name = COALESCE(NULLIF($2, ''), tenant_config.display_name), prefix = $3, updated_at = NOW()
		RETURNING updated_at`,
		int64(c.TenantID), c.DisplayName, c.Prefix,
	).Scan(&c.UpdatedAt)
}

func queryListTenantConfigs(ctx context.Context, db executor) ([]*model.TenantConfig, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+tenantConfigColumns+`
		FROM tenant_config ORDER BY tenant_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTenantConfigs(rows)
}

// queryUpsertBinding replaces the whole tuple for an existing role_id; fields
// are never merged.
func queryUpsertBinding(ctx context.Context, db executor, b *model.ReactionBinding) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO reaction_binding (role_id, tenant_id, message_id, emoji_id, emoji_name, emoji_animated)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (role_id) DO UPDATE SET
			tenant_id = $2, message_id = $3, emoji_id = $4, emoji_name = $5,
			emoji_animated = $6, updated_at = NOW()
		RETURNING updated_at`,
		int64(b.RoleID), int64(b.TenantID), int64(b.MessageID),
		emojiIDColumn(b.Emoji), b.Emoji.Name, b.Emoji.Animated,
	).Scan(&b.UpdatedAt)
}

// queryFindBinding matches on emoji_id for custom emoji and on emoji_name
// otherwise. If several roles share a reaction the most recent binding wins.
func queryFindBinding(ctx context.Context, db executor, tenantID, messageID uint64, emoji model.EmojiKey) (*model.ReactionBinding, error) {
	var row *sql.Row
	if emoji.IsCustom() {
		row = db.QueryRowContext(ctx, `
			SELECT `+bindingColumns+`
			FROM reaction_binding
			WHERE tenant_id = $1 AND message_id = $2 AND emoji_id = $3
			ORDER BY updated_at DESC, role_id LIMIT 1`,
			int64(tenantID), int64(messageID), int64(emoji.ID))
	} else {
		row = db.QueryRowContext(ctx, `
			SELECT `+bindingColumns+`
			FROM reaction_binding
			WHERE tenant_id = $1 AND message_id = $2 AND emoji_id IS NULL AND emoji_name = $3
			ORDER BY updated_at DESC, role_id LIMIT 1`,
			int64(tenantID), int64(messageID), emoji.Name)
	}
	return scanBinding(row)
}

func queryListBindings(ctx context.Context, db executor, tenantID uint64) ([]*model.ReactionBinding, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if tenantID == 0 {
		rows, err = db.QueryContext(ctx, `
			SELECT `+bindingColumns+`
			FROM reaction_binding ORDER BY tenant_id, message_id, role_id`)
	} else {
		rows, err = db.QueryContext(ctx, `
			SELECT `+bindingColumns+`
			FROM reaction_binding WHERE tenant_id = $1
			ORDER BY message_id, role_id`, int64(tenantID))
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBindings(rows)
}
