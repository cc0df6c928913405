package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("FIREBASE_PROJECT_ID", "demo-project")
	t.Setenv("FIREBASE_API_KEY", "key-123")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("AUTH_MIN_PASSWORD_LENGTH", "8")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "demo-project", cfg.Firebase.ProjectID)
	require.Equal(t, "firestore", cfg.Profiles.Backend)
	require.Equal(t, "firebase", cfg.Firebase.Verifier)
	require.Equal(t, 8, cfg.Auth.MinPasswordLength)
	require.Equal(t, "localhost:6379", cfg.RedisAddr())
	require.Equal(t, "users", cfg.Profiles.Collection)
}

func TestLoadConfig_DefaultsToMemoryWithoutProject(t *testing.T) {
	t.Setenv("FIREBASE_PROJECT_ID", "")
	t.Setenv("PROFILES_BACKEND", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "memory", cfg.Profiles.Backend)
	require.Equal(t, 6, cfg.Auth.MinPasswordLength)
	require.Equal(t, "", cfg.RedisAddr())
	require.Equal(t, 7*24*time.Hour, cfg.Auth.SessionTTL)
}

func TestValidate_RejectsMissingBackendSettings(t *testing.T) {
	cases := map[string]*Config{
		"firestore": {Profiles: ProfilesConfig{Backend: "firestore"}, Firebase: FirebaseConfig{Verifier: "firebase"}, Auth: AuthConfig{MinPasswordLength: 6, SessionTTL: time.Hour}},
		"mongo":     {Profiles: ProfilesConfig{Backend: "mongo"}, Firebase: FirebaseConfig{Verifier: "firebase"}, Auth: AuthConfig{MinPasswordLength: 6, SessionTTL: time.Hour}},
		"postgres":  {Profiles: ProfilesConfig{Backend: "postgres"}, Firebase: FirebaseConfig{Verifier: "firebase"}, Auth: AuthConfig{MinPasswordLength: 6, SessionTTL: time.Hour}},
		"unknown":   {Profiles: ProfilesConfig{Backend: "sqlite"}, Firebase: FirebaseConfig{Verifier: "firebase"}, Auth: AuthConfig{MinPasswordLength: 6, SessionTTL: time.Hour}},
		"ttl":       {Profiles: ProfilesConfig{Backend: "memory"}, Firebase: FirebaseConfig{Verifier: "oidc"}, Auth: AuthConfig{MinPasswordLength: 6}},
		"verifier":  {Profiles: ProfilesConfig{Backend: "memory"}, Firebase: FirebaseConfig{Verifier: "jwks"}, Auth: AuthConfig{MinPasswordLength: 6, SessionTTL: time.Hour}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, cfg.Validate())
		})
	}

	ok := &Config{Profiles: ProfilesConfig{Backend: "memory"}, Firebase: FirebaseConfig{Verifier: "oidc"}, Auth: AuthConfig{MinPasswordLength: 6, SessionTTL: time.Hour}}
	require.NoError(t, ok.Validate())
}
