package migrations

import "testing"

func TestMigrationVersion(t *testing.T) {
	tests := map[string]string{
		"migrations/001_init.sql":          "001",
		"/abs/path/002_add_search.sql":     "002",
		"003.sql":                          "003.sql",
		"20240101_communities_domains.sql": "20240101",
	}
	for path, want := range tests {
		if got := migrationVersion(path); got != want {
			t.Errorf("migrationVersion(%q) = %q, want %q", path, got, want)
		}
	}
}
