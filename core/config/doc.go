// Package config loads the mrbox configuration.
//
// Defaults come from the `default` struct tags of each section and are
// registered with Viper by reflection, which also makes every key reachable
// through AutomaticEnv. An optional mrbox.yaml (or any format Viper reads) in
// the config path overrides the defaults, and environment variables, including
// those loaded from a .env file, override both.
//
// # Sections
//
//   - sync: local and remote roots, link threshold, descriptor extensions
//   - storage: MinIO endpoint, credentials and bucket
//   - database: catalogue driver (sqlite or mysql) and connection
//   - log: level and format
//   - server: status API switch, port and API key
//   - job: Hadoop installation and streaming jar
//   - verify: sweep concurrency
//
// Environment keys are the upper-cased section and key joined by an
// underscore, e.g. SYNC_LOCAL_FILE_SIZE_MB.
package config
