package redis

import "billpay/internal/service"

// Ensure concrete types implement interfaces.
var (
	_ service.CatalogCache    = (*CatalogStore)(nil)
	_ service.PreferenceStore = (*PreferenceStore)(nil)
)
