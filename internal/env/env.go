package env

import (
	"os"
	"strings"

	"github.com/ekisa-team/ttsapi/internal/envvar"
)

// Environment is the deployment environment the service runs in.
type Environment string

const (
	// Development enables human-friendly console logs at debug level.
	Development Environment = "development"

	// Production emits JSON logs at info level.
	Production Environment = "production"
)

// FromEnv reads the environment from TTSAPI_ENV. Unknown or empty values fall back to Development.
func FromEnv() Environment {
	return Parse(os.Getenv(envvar.TTSAPIEnv))
}

// Parse converts a raw string into an Environment.
func Parse(s string) Environment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prod", "production":
		return Production
	default:
		return Development
	}
}

// IsProduction reports whether e is the production environment.
func (e Environment) IsProduction() bool {
	return e == Production
}
