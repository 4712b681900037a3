// Package common holds the pieces shared by the library packages and the CLI: the client
// configuration and the logger factory.
//
// Logging follows the dragonboat convention. Every package declares its logger once with
// logger.GetLogger("<name>") and InitLoggers installs a factory that routes all of them
// through a single zap core:
//
//	var plog = logger.GetLogger("bridge")
//	...
//	_ = common.InitLoggers("debug")
package common
