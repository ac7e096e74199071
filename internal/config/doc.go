// Package config defines scanner configuration, defaults, validation,
// and the YAML configuration file loader.
package config
