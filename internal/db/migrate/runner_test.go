package migrate

import (
	"strings"
	"testing"
)

func TestRun_EmptyDSN(t *testing.T) {
	err := Run("", "up")
	if err == nil {
		t.Fatal("Run with empty DSN should return error")
	}
	if !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("error = %q, should mention DATABASE_URL", err)
	}
}

func TestRun_InvalidDirection(t *testing.T) {
	for _, direction := range []string{"", "sideways", "UP", "Down"} {
		if err := Run("postgres://localhost/tracking", direction); err == nil {
			t.Errorf("Run with direction %q should return error", direction)
		}
	}
}

func TestRun_UnreachableDatabase(t *testing.T) {
	err := Run("postgres://tracking@invalid-host-that-does-not-exist:5432/tracking", "up")
	if err == nil {
		t.Fatal("Run against an unreachable database should return error")
	}
	// Direction and source validation passed; the failure is the connection.
	if strings.Contains(err.Error(), "direction") {
		t.Errorf("unexpected direction error: %v", err)
	}
}
