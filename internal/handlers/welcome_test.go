package handlers

import (
	"strings"
	"testing"

	"github.com/iamwavecut/guardbot/internal/db"
)

func TestRenderWelcome(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		userName string
		want     string
	}{
		{
			name:     "single placeholder",
			template: "Hello, {user_name}!",
			userName: "alice",
			want:     "Hello, alice!",
		},
		{
			name:     "repeated placeholder",
			template: "{user_name}, welcome. Enjoy your stay, {user_name}.",
			userName: "bob",
			want:     "bob, welcome. Enjoy your stay, bob.",
		},
		{
			name:     "no placeholder",
			template: "Welcome to the chat",
			userName: "carol",
			want:     "Welcome to the chat",
		},
		{
			name:     "empty user name",
			template: "Hi {user_name}",
			userName: "",
			want:     "Hi ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := RenderWelcome(tt.template, tt.userName); got != tt.want {
				t.Fatalf("got %q want %q", got, tt.want)
			}
		})
	}
}

func TestRenderWelcomeDefaultTemplate(t *testing.T) {
	t.Parallel()

	var settings *db.Settings
	got := RenderWelcome(settings.WelcomeTemplate(), "dave")
	if !strings.Contains(got, "dave") {
		t.Fatalf("default template must mention the user, got %q", got)
	}
	if strings.Contains(got, "{user_name}") {
		t.Fatalf("placeholder left unsubstituted: %q", got)
	}
}
