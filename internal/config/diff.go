package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely applied without a restart are tracked;
// storage and search changes require a restart and are not diffed.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// SpeechChanged is true when language, sample rate, or grace delay
	// changed. The next dictation session picks the new values up.
	SpeechChanged bool

	// AssistChanged is true when the backend chain changed in any way
	// (order, names, models, or credentials).
	AssistChanged bool
}

// HotReloadable reports whether the diff carries any applicable change.
func (d ConfigDiff) HotReloadable() bool {
	return d.LogLevelChanged || d.SpeechChanged || d.AssistChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.LogLevel
	}

	if old.Speech.Language != new.Speech.Language ||
		old.Speech.SampleRate != new.Speech.SampleRate ||
		old.Speech.GraceDelay != new.Speech.GraceDelay {
		d.SpeechChanged = true
	}

	if assistChainChanged(old.Assist.Backends, new.Assist.Backends) {
		d.AssistChanged = true
	}

	return d
}

func assistChainChanged(old, new []AssistBackend) bool {
	if len(old) != len(new) {
		return true
	}
	for i := range old {
		if old[i] != new[i] {
			return true
		}
	}
	return false
}
