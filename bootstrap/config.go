package bootstrap

import (
	"github.com/kbukum/sweep/config"
)

// Config is the constraint for application configuration types. A struct that
// embeds config.ServiceConfig satisfies it through promoted methods, and may
// shadow ApplyDefaults/Validate to cover its own sections.
//
//	type Config struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    S3 s3.Config         `yaml:"s3" mapstructure:"s3"`
//	}
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
