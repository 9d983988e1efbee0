// Package logger provides structured logging for filevault using zerolog.
//
// It supports JSON and console output, level configuration and
// component-scoped loggers carrying structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.NewDefault("filevault").WithComponent("storage.local")
//	log.Warn("path rejected", logger.Fields(logger.FieldPath, p, logger.FieldSecurityEvent, true))
package logger
