package config

import (
	"reflect"
)

// ConfigDiff describes what changed between two configs.
// Only fields the running engine can apply without restart are tracked; the
// lexicon source and listener addresses need a restart.
type ConfigDiff struct {
	EnabledChanged     bool
	DisplayModeChanged bool
	HoverChanged       bool
	PopupChanged       bool

	// SpeechChanged is set when anything in the speech block moved, which
	// means the dispatcher must be rebuilt.
	SpeechChanged bool

	LogLevelChanged bool
	NewLogLevel     LogLevel

	// RestartRequired lists top-level keys that changed but are only read at
	// start-up.
	RestartRequired []string
}

// Empty reports whether nothing hot-reloadable changed.
func (d ConfigDiff) Empty() bool {
	return !d.EnabledChanged && !d.DisplayModeChanged && !d.HoverChanged &&
		!d.PopupChanged && !d.SpeechChanged && !d.LogLevelChanged
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{
		EnabledChanged:     old.Enabled != new.Enabled,
		DisplayModeChanged: old.DisplayMode != new.DisplayMode,
		HoverChanged:       old.Hover != new.Hover,
		PopupChanged:       old.Popup != new.Popup,
		SpeechChanged:      !reflect.DeepEqual(old.Speech, new.Speech),
	}
	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.LogLevel
	}

	if old.Lexicon != new.Lexicon {
		d.RestartRequired = append(d.RestartRequired, "lexicon")
	}
	if !reflect.DeepEqual(old.Relay, new.Relay) {
		d.RestartRequired = append(d.RestartRequired, "relay")
	}
	if old.Server != new.Server {
		d.RestartRequired = append(d.RestartRequired, "server")
	}
	return d
}
