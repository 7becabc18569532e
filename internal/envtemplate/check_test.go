package envtemplate

import (
	"testing"
)

// completeEnv returns a lookup map that satisfies every registered variable
func completeEnv() map[string]string {
	return map[string]string{
		"DT_SQL_TESTUSER":             "dt_test",
		"DT_SQL_TESTPASS":             "s3cr3t-pass",
		"DT_SQL_TESTHOST":             "localhost",
		"DT_SQL_TESTPORT":             "5432",
		"DT_SQL_TESTDBNAME":           "dt_test",
		"DT_DOCKER_USER":              "dtbase-ci",
		"DT_DOCKER_PASS":              "registry-pass",
		"DT_OPENWEATHERMAP_APIKEY":    "44b1c6a0e7f94ad",
		"DT_HYPER_APIKEY":             "9f8e7d6c5b4a392",
		"AZURE_STORAGE_KEY":           "WnBhZmVrZXkxMjM0==",
		"AZURE_STORAGE_ACCOUNT":       "dtstateaccount",
		"AZURE_KEYVAULT_AUTH_VIA_CLI": "true",
	}
}

func TestCheckComplete(t *testing.T) {
	problems := CheckMap(completeEnv())
	if len(problems) != 0 {
		t.Fatalf("CheckMap() on a complete context returned problems: %v", problems)
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(env map[string]string)
		wantName   string
		wantReason string
	}{
		{
			name:       "missing variable",
			mutate:     func(env map[string]string) { delete(env, "DT_HYPER_APIKEY") },
			wantName:   "DT_HYPER_APIKEY",
			wantReason: ReasonMissing,
		},
		{
			name:       "empty value",
			mutate:     func(env map[string]string) { env["AZURE_STORAGE_KEY"] = "" },
			wantName:   "AZURE_STORAGE_KEY",
			wantReason: ReasonEmpty,
		},
		{
			name:       "whitespace only value",
			mutate:     func(env map[string]string) { env["DT_SQL_TESTPASS"] = "   " },
			wantName:   "DT_SQL_TESTPASS",
			wantReason: ReasonEmpty,
		},
		{
			name:       "template placeholder left in place",
			mutate:     func(env map[string]string) { env["DT_DOCKER_PASS"] = "<registry-password>" },
			wantName:   "DT_DOCKER_PASS",
			wantReason: ReasonPlaceholder,
		},
		{
			name:       "angle bracket placeholder",
			mutate:     func(env map[string]string) { env["DT_SQL_TESTUSER"] = "<your-username>" },
			wantName:   "DT_SQL_TESTUSER",
			wantReason: ReasonPlaceholder,
		},
		{
			name:       "well known throwaway",
			mutate:     func(env map[string]string) { env["DT_OPENWEATHERMAP_APIKEY"] = "CHANGEME" },
			wantName:   "DT_OPENWEATHERMAP_APIKEY",
			wantReason: ReasonPlaceholder,
		},
		{
			name:       "port is not a number",
			mutate:     func(env map[string]string) { env["DT_SQL_TESTPORT"] = "default" },
			wantName:   "DT_SQL_TESTPORT",
			wantReason: ReasonInvalid,
		},
		{
			name:       "port out of range",
			mutate:     func(env map[string]string) { env["DT_SQL_TESTPORT"] = "99999" },
			wantName:   "DT_SQL_TESTPORT",
			wantReason: ReasonInvalid,
		},
		{
			name:       "keyvault flag is not a boolean",
			mutate:     func(env map[string]string) { env["AZURE_KEYVAULT_AUTH_VIA_CLI"] = "yes please" },
			wantName:   "AZURE_KEYVAULT_AUTH_VIA_CLI",
			wantReason: ReasonInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := completeEnv()
			tt.mutate(env)

			problems := CheckMap(env)
			if len(problems) != 1 {
				t.Fatalf("CheckMap() returned %d problems, want 1: %v", len(problems), problems)
			}
			if problems[0].Name != tt.wantName {
				t.Errorf("problem name = %v, want %v", problems[0].Name, tt.wantName)
			}
			if problems[0].Reason != tt.wantReason {
				t.Errorf("problem reason = %v, want %v", problems[0].Reason, tt.wantReason)
			}
		})
	}
}

func TestCheckOrderMatchesRegistry(t *testing.T) {
	// Problems come back in registry order so operators can fix them top
	// to bottom.
	problems := CheckMap(map[string]string{})
	if len(problems) != len(Registry()) {
		t.Fatalf("CheckMap() on an empty context returned %d problems, want %d", len(problems), len(Registry()))
	}
	for i, v := range Registry() {
		if problems[i].Name != v.Name {
			t.Errorf("problem %d = %v, want %v", i, problems[i].Name, v.Name)
		}
	}
}

func TestCheckBoolFormats(t *testing.T) {
	// strconv.ParseBool accepts the usual spellings; all must pass.
	for _, value := range []string{"true", "false", "1", "0", "TRUE", "False"} {
		env := completeEnv()
		env["AZURE_KEYVAULT_AUTH_VIA_CLI"] = value
		if problems := CheckMap(env); len(problems) != 0 {
			t.Errorf("value %q rejected: %v", value, problems)
		}
	}
}
