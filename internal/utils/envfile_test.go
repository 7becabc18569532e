package utils

import (
	"strings"
	"testing"
)

func TestParseEnvFile(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []EnvEntry
		wantErr bool
	}{
		{
			name:  "plain assignments",
			input: "DT_SQL_TESTHOST=localhost\nDT_SQL_TESTPORT=5432\n",
			want: []EnvEntry{
				{Key: "DT_SQL_TESTHOST", Value: "localhost"},
				{Key: "DT_SQL_TESTPORT", Value: "5432"},
			},
		},
		{
			name:  "export prefix and quotes",
			input: "export DT_DOCKER_USER=\"dtbase-ci\"\nexport DT_DOCKER_PASS='hunter2'\n",
			want: []EnvEntry{
				{Key: "DT_DOCKER_USER", Value: "dtbase-ci"},
				{Key: "DT_DOCKER_PASS", Value: "hunter2"},
			},
		},
		{
			name:  "comments and blank lines skipped",
			input: "# test database\n\nDT_SQL_TESTDBNAME=test_db\n\n# registry\nDT_DOCKER_USER=ci\n",
			want: []EnvEntry{
				{Key: "DT_SQL_TESTDBNAME", Value: "test_db"},
				{Key: "DT_DOCKER_USER", Value: "ci"},
			},
		},
		{
			name:  "empty value",
			input: "AZURE_STORAGE_KEY=\n",
			want:  []EnvEntry{{Key: "AZURE_STORAGE_KEY", Value: ""}},
		},
		{
			name:  "value containing equals sign",
			input: "DT_HYPER_APIKEY=abc=def==\n",
			want:  []EnvEntry{{Key: "DT_HYPER_APIKEY", Value: "abc=def=="}},
		},
		{
			name:  "duplicate keys preserved in order",
			input: "DT_SQL_TESTUSER=first\nDT_SQL_TESTUSER=second\n",
			want: []EnvEntry{
				{Key: "DT_SQL_TESTUSER", Value: "first"},
				{Key: "DT_SQL_TESTUSER", Value: "second"},
			},
		},
		{
			name:    "line without assignment",
			input:   "DT_SQL_TESTUSER\n",
			wantErr: true,
		},
		{
			name:    "empty key",
			input:   "=value\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEnvFile(strings.NewReader(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatal("ParseEnvFile() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseEnvFile() unexpected error: %v", err)
			}

			if len(got) != len(tt.want) {
				t.Fatalf("ParseEnvFile() returned %d entries, want %d", len(got), len(tt.want))
			}
			for i, entry := range got {
				if entry != tt.want[i] {
					t.Errorf("entry %d = %+v, want %+v", i, entry, tt.want[i])
				}
			}
		})
	}
}

func TestEnvMap(t *testing.T) {
	entries := []EnvEntry{
		{Key: "DT_SQL_TESTUSER", Value: "first"},
		{Key: "DT_SQL_TESTPASS", Value: "secret"},
		{Key: "DT_SQL_TESTUSER", Value: "second"},
	}

	m := EnvMap(entries)
	if len(m) != 2 {
		t.Fatalf("EnvMap() returned %d keys, want 2", len(m))
	}
	if m["DT_SQL_TESTUSER"] != "second" {
		t.Errorf("EnvMap() duplicate key = %q, want last assignment to win", m["DT_SQL_TESTUSER"])
	}
}

func TestMergeEnv(t *testing.T) {
	got := MergeEnv(
		map[string]string{"DT_DOCKER_USER": "base", "DT_DOCKER_PASS": "base-pass"},
		map[string]string{"DT_DOCKER_USER": "override"},
	)

	if got["DT_DOCKER_USER"] != "override" {
		t.Errorf("MergeEnv() DT_DOCKER_USER = %q, want %q", got["DT_DOCKER_USER"], "override")
	}
	if got["DT_DOCKER_PASS"] != "base-pass" {
		t.Errorf("MergeEnv() DT_DOCKER_PASS = %q, want %q", got["DT_DOCKER_PASS"], "base-pass")
	}
}
