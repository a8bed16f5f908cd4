package educhainChat

import (
	log "github.com/sirupsen/logrus"
)

// ConfigureLogging switches logrus to JSON with the message under
// "message", the key Cloud Logging reads.
func ConfigureLogging(cfg Logging) {
	log.SetFormatter(&log.JSONFormatter{
		FieldMap: log.FieldMap{log.FieldKeyMsg: "message"},
	})

	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		log.Errorf("unknown log level %q, using info", cfg.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
