// Package config loads the lovable-ctl configuration.
//
// Configuration lives in a TOML file, by default
// ~/.config/lovable-ctl/config.toml. Every key is optional; missing keys
// keep the values from Default. A few environment variables override the
// file after it is read:
//
//	EXTERNAL_FOLDER  mirror.folder
//	MORPH_API_KEY    edits.api_key (selects the morph backend if none is set)
//	LOVABLE_LISTEN   server.listen
//
// Durations are written as Go duration strings:
//
//	[server]
//	rate_limit_window = "60s"
//	restart_cooldown  = "5s"
package config
