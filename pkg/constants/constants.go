// Package constants holds process-wide names shared by the CLI and config loader.
package constants

const (
	AppName      = "tutorly"
	ServiceName  = "tutorly_backend"
	ConfigName   = "config"
	ConfigFormat = "yaml"
	EnvPrefix    = "TUTORLY"
)
