// Package config loads the agent configuration.
//
// Values come from, in increasing precedence: built-in defaults, a YAML file,
// a .env file and the process environment. Environment keys are the
// mapstructure path upper-cased with dots replaced by underscores and the
// VOICECAP_ prefix added:
//
//	schedule.poll_interval -> VOICECAP_SCHEDULE_POLL_INTERVAL
//
// # Usage
//
//	var cfg config.Config
//	err := config.Load(&cfg, config.WithConfigFile("voicecap.yml"))
package config
