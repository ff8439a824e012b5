// Package version holds the application identity. Build metadata is set
// with -ldflags "-X schedule-bot/internal/version.Version=...".
package version

import "runtime"

const (
	AppName        = "schedule-bot"
	AppDescription = "Schedules with reminders and background music for your server."
)

var (
	Version   = "dev"
	BuildDate = ""
	GoVersion = runtime.Version()
)
