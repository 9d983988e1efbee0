package bootstrap

import (
	"github.com/kbukum/filevault/config"
)

// Config is the interface constraint for application configuration types.
// Any struct that embeds config.ServiceConfig (value embedding) satisfies
// GetServiceConfig through method promotion and adds its own ApplyDefaults
// and Validate.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
