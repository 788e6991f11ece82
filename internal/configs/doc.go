// Package configs loads Kaitiaki's configuration.
//
// Configuration is optional. When present it is read from TOML or YAML,
// chosen by file extension:
//
//   - --config flag, or the KAITIAKI_CONFIG environment variable
//   - <user config dir>/kaitiaki/config.toml
//   - <user config dir>/kaitiaki/config.yaml (or config.yml)
//
// The first candidate that exists wins. An explicitly named file that does
// not exist is an error; missing default files are not.
//
// # Example
//
//	[vault]
//	path = "~/secrets/vault.db"
//	driver = "sqlite"
//
//	[audit]
//	enabled = true
//
//	[ui]
//	banner = true
//
// # Overrides
//
// The vault location can be overridden with --vault or KAITIAKI_VAULT, in
// that order of precedence over the file. Unset values fall back to
// Default(), which keeps the vault under $XDG_DATA_HOME/kaitiaki.
package configs
