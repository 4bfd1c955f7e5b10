package model

import "time"

// DefaultPrefix is the command prefix used by tenants that never set one.
const DefaultPrefix = "a."

// TenantConfig is a guild's stored settings, keyed by TenantID.
// DisplayName is the last observed guild name and is refreshed on every prefix write.
type TenantConfig struct {
	TenantID    uint64    `json:"tenant_id"`
	DisplayName string    `json:"display_name"`
	Prefix      string    `json:"prefix"`
	UpdatedAt   time.Time `json:"updated_at"`
}
