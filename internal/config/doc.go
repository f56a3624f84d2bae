// Package config loads the client configuration.
//
// The configuration file is TOML or YAML, chosen by extension:
//
//	[log]
//	level = "info"
//
//	[accounts.work]
//	jid = "alice@example.com"
//	password = "secret"
//	autoconnect = true
//
// Environment variables prefixed with APARTE_ override the file. A Watcher
// reloads the file when it changes on disk.
package config
