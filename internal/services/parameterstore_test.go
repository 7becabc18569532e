package services

import (
	"context"
	"testing"
)

var (
	_ ParameterStore = (*SSMParameterStore)(nil)
	_ ParameterStore = (*EnvParameterStore)(nil)
)

func TestEnvParameterStore_GetConfig(t *testing.T) {
	t.Setenv("REGISTRY_HOST", "registry.example.com")
	t.Setenv("SOURCE_URL", "https://github.com/dtbase/dtbase.git")
	t.Setenv("SOURCE_REF", "develop")
	t.Setenv("BUILD_TABLE", "dev-dt-deployer-runs")
	t.Setenv("LOCK_TABLE", "dev-dt-deployer-locks")
	t.Setenv("STATE_BUCKET", "dev-dt-deployer-state")
	t.Setenv("DISABLE_LOCKS", "true")

	store := NewEnvParameterStore("dev")
	config, err := store.GetConfig(context.Background())
	if err != nil {
		t.Fatalf("GetConfig() unexpected error: %v", err)
	}

	want := Config{
		RegistryHost: "registry.example.com",
		SourceURL:    "https://github.com/dtbase/dtbase.git",
		SourceRef:    "develop",
		BuildTable:   "dev-dt-deployer-runs",
		LockTable:    "dev-dt-deployer-locks",
		StateBucket:  "dev-dt-deployer-state",
		DisableLocks: true,
	}
	if *config != want {
		t.Errorf("GetConfig() = %+v, want %+v", *config, want)
	}
}

func TestEnvParameterStore_GetConfig_Unset(t *testing.T) {
	for _, name := range []string{
		"REGISTRY_HOST", "SOURCE_URL", "SOURCE_REF",
		"BUILD_TABLE", "LOCK_TABLE", "STATE_BUCKET", "DISABLE_LOCKS",
	} {
		t.Setenv(name, "")
	}

	store := NewEnvParameterStore("dev")
	config, err := store.GetConfig(context.Background())
	if err != nil {
		t.Fatalf("GetConfig() unexpected error: %v", err)
	}

	if *config != (Config{}) {
		t.Errorf("expected zero config, got %+v", *config)
	}
}

func TestEnvParameterStore_GetParameter(t *testing.T) {
	t.Setenv("REGISTRY_HOST", "registry.example.com")

	store := NewEnvParameterStore("dev")
	value, err := store.GetParameter(context.Background(), "REGISTRY_HOST")
	if err != nil {
		t.Fatalf("GetParameter() unexpected error: %v", err)
	}
	if value != "registry.example.com" {
		t.Errorf("GetParameter() = %q, want %q", value, "registry.example.com")
	}
}

func TestParseBoolDefault(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		fallback bool
		want     bool
	}{
		{name: "empty uses fallback", value: "", fallback: true, want: true},
		{name: "true", value: "true", fallback: false, want: true},
		{name: "numeric true", value: "1", fallback: false, want: true},
		{name: "uppercase true", value: "TRUE", fallback: false, want: true},
		{name: "false", value: "false", fallback: true, want: false},
		{name: "garbage uses fallback", value: "definitely", fallback: false, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseBoolDefault(tt.value, tt.fallback); got != tt.want {
				t.Errorf("parseBoolDefault(%q, %v) = %v, want %v", tt.value, tt.fallback, got, tt.want)
			}
		})
	}
}
