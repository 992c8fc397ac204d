package cli

import (
	"time"

	"github.com/spf13/pflag"
)

// Config values are only overridden by flags the user actually set, so the
// defaults shown in help never mask the environment or the config file.

func overrideString(fs *pflag.FlagSet, name string, dst *string) {
	if fs.Changed(name) {
		*dst, _ = fs.GetString(name)
	}
}

func overrideBool(fs *pflag.FlagSet, name string, dst *bool) {
	if fs.Changed(name) {
		*dst, _ = fs.GetBool(name)
	}
}

func overrideDuration(fs *pflag.FlagSet, name string, dst *time.Duration) {
	if fs.Changed(name) {
		*dst, _ = fs.GetDuration(name)
	}
}
