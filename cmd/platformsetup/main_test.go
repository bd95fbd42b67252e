package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/windowsadmins/platformsetup/pkg/config"
)

func TestEffectiveLogLevel(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.Configuration
		verbosity int
		want      string
	}{
		{"configured level kept", config.Configuration{LogLevel: "WARN"}, 0, "WARN"},
		{"single -v raises to INFO", config.Configuration{LogLevel: "WARN"}, 1, "INFO"},
		{"double -v raises to DEBUG", config.Configuration{LogLevel: "WARN"}, 2, "DEBUG"},
		{"config Verbose raises to INFO", config.Configuration{LogLevel: "WARN", Verbose: true}, 0, "INFO"},
		{"config Debug raises to DEBUG", config.Configuration{LogLevel: "WARN", Debug: true}, 0, "DEBUG"},
		{"config Debug beats single -v", config.Configuration{LogLevel: "WARN", Debug: true}, 1, "DEBUG"},
		{"-vv beats config Verbose", config.Configuration{LogLevel: "WARN", Verbose: true}, 2, "DEBUG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, effectiveLogLevel(&tt.cfg, tt.verbosity))
		})
	}
}
