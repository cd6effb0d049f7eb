package db

// DefaultWelcomeMessage is used when a chat has no stored template.
// {user_name} is replaced with the joining user's display name.
const DefaultWelcomeMessage = "Welcome, {user_name}! Please read the group rules."

func DefaultSettings(chatID int64) *Settings {
	return &Settings{
		ID:       chatID,
		Enabled:  true,
		Language: "en",
	}
}

func (s *Settings) WelcomeTemplate() string {
	if s == nil || s.WelcomeMessage == "" {
		return DefaultWelcomeMessage
	}
	return s.WelcomeMessage
}
