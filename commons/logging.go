package commons

import (
	"github.com/getsentry/raven-go"
	log "github.com/sirupsen/logrus"
)

// SetupLogging configures the global logrus logger. Release builds log JSON.
func SetupLogging(cfg Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn("[Main] Unknown log level ", cfg.LogLevel, ", falling back to debug")
		level = log.DebugLevel
	}
	log.SetLevel(level)

	if cfg.Release {
		log.SetFormatter(&log.JSONFormatter{})
	}
}

// SetupSentry enables error reporting if a DSN is configured.
func SetupSentry(cfg Config, component string) {
	if cfg.SentryDSN == "" {
		log.Debug("[Main] No Sentry DSN configured, error reporting disabled")
		return
	}

	if err := raven.SetDSN(cfg.SentryDSN); err != nil {
		log.Error("[Main] Couldn't set Sentry DSN: ", err.Error())
		return
	}
	if cfg.Release {
		raven.SetEnvironment("production")
	} else {
		raven.SetEnvironment("development")
	}
	raven.SetTagsContext(map[string]string{"component": component})
}

// ReportError logs err and forwards it to Sentry (a no-op without DSN).
func ReportError(err error, tags map[string]string) {
	if err == nil {
		return
	}
	log.WithFields(toFields(tags)).Error(err.Error())
	raven.CaptureError(err, tags)
}

func toFields(tags map[string]string) log.Fields {
	fields := log.Fields{}
	for k, v := range tags {
		fields[k] = v
	}
	return fields
}
