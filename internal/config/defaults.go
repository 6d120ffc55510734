package config

var defaults = map[string]any{
	"secret":            "",
	"token_expiry_skew": 5,
	"log_level":         "info",
	"listen":            ":8080",

	"nonce_store": "memory",

	"allowed_networks": "",

	"rbac.policy_file": "",
	"rbac.admins":      []string{},
	"user_auth_ttl":    8, // 8 days
	"support_url":      DEFAULT_SUPPORT_URL,
	"base_url":         "/",

	"email.host":     "host.docker.internal",
	"email.port":     25,
	"email.username": "",
	"email.password": "",
	"email.from":     "noreply@example.com",
	"email.notify":   []string{},

	"storage.local.path": "./data/timesheet.db",

	"timesheet.default_target_hours":    "8.00",
	"timesheet.max_range_days":          365,
	"timesheet.employee_max_range_days": 366,
	"timesheet.strict_hours":            false,
	"timesheet.reset_stale_week":        false,
	"timesheet.timezone":                "UTC",

	"export.encoding": "utf-8",
}

func Defaults() map[string]any {
	values := make(map[string]any)
	for k, v := range defaults {
		values[k] = v
	}
	return values
}
