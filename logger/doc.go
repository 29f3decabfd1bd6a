// Package logger provides structured logging using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers. Pipeline components tag their lines with a
// component name and the run id so concurrent workers can be told apart.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.WithComponent("lister")
//	log.Info("page fetched", logger.Fields("page", 3, "size", 1000))
package logger
