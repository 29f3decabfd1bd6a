// Package config loads service configuration from a YAML file, a .env file,
// environment variables and command-line flags.
//
// Precedence, highest first: flags set on the command line, environment
// variables, the config file, flag defaults.
//
// # Usage
//
//	var cfg AppConfig
//	err := config.LoadConfig("setheader", &cfg,
//	    config.WithConfigFile(path),
//	    config.WithEnvPrefix("SETHEADER"),
//	    config.WithPFlag("pipeline.workers", cmd.Flags().Lookup("workers")),
//	)
//
// With prefix SETHEADER, the key pipeline.page_size is read from
// SETHEADER_PIPELINE_PAGE_SIZE.
package config
