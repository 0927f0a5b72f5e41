// Package logger provides structured logging for mediascribe using zerolog.
//
// It supports JSON and console output, level configuration, component-scoped
// loggers and job/request IDs carried through context.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//	  output: "stderr"
//
// # Usage
//
//	log := logger.Get("acquire")
//	log.Info("adapter succeeded", logger.Fields("adapter", "youtube"))
package logger
