package logger

import (
	"go.uber.org/zap"
)

// New builds the process logger. Release mode gets the JSON production
// config, everything else the human-readable development config.
func New(ginMode string) (*zap.Logger, error) {
	if ginMode == "release" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
