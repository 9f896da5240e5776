package remote

import "context"

// Settings is the persisted sync configuration.
type Settings struct {
	Enabled bool
	ClubID  string
}

// SettingsStore persists Settings. records.Store implements it.
type SettingsStore interface {
	LoadSyncEnabled(ctx context.Context) bool
	SaveSyncEnabled(ctx context.Context, enabled bool) error
	LoadClubID(ctx context.Context) string
	SaveClubID(ctx context.Context, id string) error
}

// LoadSettings reads Settings from s.
func LoadSettings(ctx context.Context, s SettingsStore) Settings {
	return Settings{
		Enabled: s.LoadSyncEnabled(ctx),
		ClubID:  s.LoadClubID(ctx),
	}
}

// saveSettings writes both fields, stopping at the first failure.
func saveSettings(ctx context.Context, s SettingsStore, settings Settings) error {
	if err := s.SaveClubID(ctx, settings.ClubID); err != nil {
		return err
	}
	return s.SaveSyncEnabled(ctx, settings.Enabled)
}
