package config

import (
	"github.com/spf13/viper"

	"github.com/Veraticus/scribe/internal/engine"
	"github.com/Veraticus/scribe/internal/prune"
)

// LoadAssistantConfig applies the context.* caps and chat.history_turns over the defaults.
func LoadAssistantConfig(v *viper.Viper) engine.Config {
	cfg := engine.DefaultConfig()

	override := func(key string, target *int) {
		if v.IsSet(key) && v.GetInt(key) >= 0 {
			*target = v.GetInt(key)
		}
	}

	limits := prune.DefaultLimits()
	override("context.contacts", &limits.Contacts)
	override("context.past_schedule", &limits.PastSchedule)
	override("context.future_schedule", &limits.FutureSchedule)
	override("context.expenses", &limits.Expenses)
	override("context.diary", &limits.Diary)
	cfg.Limits = limits

	override("chat.history_turns", &cfg.HistoryTurns)
	return cfg
}

// DatabasePath returns the expanded database.path setting.
func DatabasePath(v *viper.Viper) string {
	path := v.GetString("database.path")
	if path == "" {
		path = DefaultDatabasePath
	}
	return ExpandPath(path)
}
