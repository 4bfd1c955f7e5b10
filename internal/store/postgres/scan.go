package postgres

import (
	"database/sql"

	"github.com/alfredjeanlab/guildkeeper/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanTenantConfig scans a single row in tenantConfigColumns order.
func scanTenantConfig(row scannable) (*model.TenantConfig, error) {
	var (
		c        model.TenantConfig
		tenantID int64
	)
	if err := row.Scan(&tenantID, &c.DisplayName, &c.Prefix, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.TenantID = uint64(tenantID)
	return &c, nil
}

// scanTenantConfigs scans multiple rows into a slice of model.TenantConfig pointers.
func scanTenantConfigs(rows *sql.Rows) ([]*model.TenantConfig, error) {
	var cfgs []*model.TenantConfig
	for rows.Next() {
		c, err := scanTenantConfig(rows)
		if err != nil {
			return nil, err
		}
		cfgs = append(cfgs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cfgs, nil
}

// scanBinding scans a single row in bindingColumns order.
func scanBinding(row scannable) (*model.ReactionBinding, error) {
	var (
		b                         model.ReactionBinding
		roleID, tenantID, message int64
		emojiID                   sql.NullInt64
	)
	err := row.Scan(&roleID, &tenantID, &message, &emojiID, &b.Emoji.Name, &b.Emoji.Animated, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}

	b.RoleID = uint64(roleID)
	b.TenantID = uint64(tenantID)
	b.MessageID = uint64(message)
	if emojiID.Valid {
		b.Emoji.ID = uint64(emojiID.Int64)
	}
	return &b, nil
}

// scanBindings scans multiple rows into a slice of model.ReactionBinding pointers.
func scanBindings(rows *sql.Rows) ([]*model.ReactionBinding, error) {
	var bs []*model.ReactionBinding
	for rows.Next() {
		b, err := scanBinding(rows)
		if err != nil {
			return nil, err
		}
		bs = append(bs, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bs, nil
}

// emojiIDColumn returns the emoji_id value, NULL for unicode emoji.
func emojiIDColumn(e model.EmojiKey) sql.NullInt64 {
	if !e.IsCustom() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(e.ID), Valid: true}
}
