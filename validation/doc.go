// Package validation checks configuration and options before a run starts.
//
// Struct tag validation (backed by go-playground/validator) covers numeric
// bounds on pipeline options; the programmatic Validator collects
// cross-field rules that tags cannot express.
//
// # Struct Tag Validation
//
//	type Options struct {
//	    Workers int `mapstructure:"workers" validate:"gte=1"`
//	}
//	err := validation.Validate(opts)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Custom(cfg.CacheControl != "" || len(cfg.Metadata) > 0, "headers", "at least one header must be set")
//	err := v.Err()
package validation
