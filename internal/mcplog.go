package internal

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

var (
	mcpLogger     = zap.NewNop()
	mcpLoggerOnce sync.Once
)

// MCPLogPath is where the MCP server writes its log when enabled
func MCPLogPath(config *Config) string {
	return filepath.Join(config.CacheDir, "mcp.log")
}

// InitMCPLogging initializes MCP logging based on config. stdout belongs to
// the stdio transport, so logs only ever go to a file.
func InitMCPLogging(config *Config) *zap.Logger {
	mcpLoggerOnce.Do(func() {
		if !config.MCPLogEnabled {
			return
		}
		logger, err := NewFileLogger(MCPLogPath(config), config.Verbose)
		if err != nil {
			// Logging is best effort here
			return
		}
		mcpLogger = logger.Named("mcp").With(zap.Int("pid", os.Getpid()))
	})
	return mcpLogger
}
