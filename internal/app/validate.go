package app

import (
	"fmt"

	"chatrelay/pkg/config"
	"chatrelay/pkg/logger"
)

// validateConfig fails fast on configurations the server cannot run with.
func validateConfig(eff config.EffectiveConfigResult) error {
	if eff.Config == nil {
		return fmt.Errorf("no effective config")
	}
	if eff.DBPath == "" {
		return fmt.Errorf("db path required")
	}
	if len(eff.Config.Security.SigningKeys) == 0 {
		// Sessions cannot be verified without keys; every chat request
		// would answer 401. Startup still proceeds for probe-only runs.
		logger.Warn("no_signing_keys_configured")
	}
	tls := eff.Config.Server.TLS
	if (tls.CertFile == "") != (tls.KeyFile == "") {
		return fmt.Errorf("tls requires both cert_file and key_file")
	}
	return nil
}
