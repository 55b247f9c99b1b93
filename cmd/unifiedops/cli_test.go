package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Kritarthpandey2003/unified-ops-platform/internal/config"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/db"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/errors"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/store"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

const firstSlot = "2026-03-11T09:00:00Z"

type testEnv struct {
	db  *sql.DB
	st  *store.Store
	cfg *config.Config
}

// setupTest creates a temporary database and workspace for testing.
func setupTest(t *testing.T) *testEnv {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	st, err := store.Open(db.NewSlotStore(database), store.WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true // Allow temp dirs in tests
	return &testEnv{db: database, st: st, cfg: cfg}
}

// run executes one command on a fresh app and returns what it printed to stdout.
func (e *testEnv) run(t *testing.T, args ...string) ([]byte, error) {
	t.Helper()
	app := newCLIApp(e.db, e.st, e.cfg)

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := app.Run(append([]string{"unifiedops"}, args...))

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout

	return buf.Bytes(), err
}

// mustRun runs a command that must succeed and decodes its JSON output.
func (e *testEnv) mustRun(t *testing.T, args ...string) map[string]any {
	t.Helper()
	out, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("%s failed: %v", args[0], err)
	}
	var result map[string]any
	if err := json.Unmarshal(out, &result); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	return result
}

func TestCLIWorkflow(t *testing.T) {
	e := setupTest(t)

	onboard := e.mustRun(t, "onboard", "--name=Acme Repairs", "--email")
	require.Equal(t, true, onboard["workspace"].(map[string]any)["activated"])

	ws := e.mustRun(t, "workspace", "--timezone=Europe/London")
	require.Equal(t, "Europe/London", ws["workspace"].(map[string]any)["timezone"])

	shown := e.mustRun(t, "workspace")
	require.Equal(t, "Acme Repairs", shown["workspace"].(map[string]any)["name"])

	services := e.mustRun(t, "services")
	require.Len(t, services["services"], 3)

	// London is on UTC in March, so the first slot is 09:00Z tomorrow.
	booked := e.mustRun(t, "book", "--service=srv-2", "--slot="+firstSlot, "--name=Jane Doe", "--email=jane@example.com")
	bookingID := booked["booking"].(map[string]any)["id"].(string)
	formID := booked["form"].(map[string]any)["id"].(string)
	contactID := booked["contact"].(map[string]any)["id"].(string)
	require.Equal(t, "Service Repair", booked["booking"].(map[string]any)["serviceName"])

	bookings := e.mustRun(t, "bookings")
	require.Len(t, bookings["bookings"], 1)

	reply := e.mustRun(t, "reply", contactID, "--content=See you tomorrow", "--channel=sms")
	require.Equal(t, "sms", reply["type"])

	conv := e.mustRun(t, "conversation", contactID)
	require.Len(t, conv["conversation"].(map[string]any)["messages"], 3)

	pending := e.mustRun(t, "forms", "--status=pending")
	require.Len(t, pending["forms"], 1)

	form := e.mustRun(t, "complete-form", formID)
	require.Equal(t, "completed", form["status"])

	booking := e.mustRun(t, "booking-status", bookingID, "completed")
	require.Equal(t, "completed", booking["status"])
	require.Equal(t, "completed", booking["formStatus"])

	adjusted := e.mustRun(t, "adjust", "inv-2", "--delta=-12")
	require.Equal(t, float64(3), adjusted["item"].(map[string]any)["quantity"])

	added := e.mustRun(t, "add-item", "--name=Gloves", "--quantity=4", "--threshold=2")
	require.Equal(t, "Gloves", added["name"])

	low := e.mustRun(t, "inventory", "--low")
	require.Len(t, low["items"], 3)

	dash := e.mustRun(t, "dashboard")
	require.Equal(t, "Overview for Acme Repairs", dash["greeting"])

	role := e.mustRun(t, "role")
	require.Equal(t, "staff", role["role"])
	role = e.mustRun(t, "role", "owner")
	require.Equal(t, "owner", role["role"])
}

func TestCLIContact(t *testing.T) {
	e := setupTest(t)

	out := e.mustRun(t, "contact", "--name=Sam", "--email=sam@example.com", "--message=Leaking tap")
	require.Equal(t, true, out["new_contact"])
	require.Equal(t, "Leaking tap", out["inbound"].(map[string]any)["content"])

	again := e.mustRun(t, "contact", "--name=Sam", "--email=SAM@example.com", "--message=Any update?")
	require.Equal(t, false, again["new_contact"])

	inbox := e.mustRun(t, "inbox")
	require.Len(t, inbox["conversations"], 1)
}

func TestCLIRemindAndHistory(t *testing.T) {
	e := setupTest(t)
	e.mustRun(t, "onboard", "--name=Acme Repairs")
	e.mustRun(t, "book", "--service=srv-1", "--slot="+firstSlot, "--name=Jane", "--email=jane@example.com")

	first := e.mustRun(t, "remind")
	require.Len(t, first["reminded"], 1)

	second := e.mustRun(t, "remind", "--lead-hours=48")
	require.Len(t, second["reminded"], 0)

	_, err := e.run(t, "remind", "--lead-hours=-1")
	require.Error(t, err)

	history := e.mustRun(t, "history", "--job=form_reminders")
	require.Len(t, history["runs"], 2)

	limited := e.mustRun(t, "history", "--limit=1")
	require.Len(t, limited["runs"], 1)
}

func TestCLIExportImport(t *testing.T) {
	e := setupTest(t)
	e.mustRun(t, "onboard", "--name=Acme Repairs")
	e.mustRun(t, "book", "--service=srv-3", "--slot="+firstSlot, "--name=Jane", "--email=jane@example.com")

	path := filepath.Join(t.TempDir(), "snapshot.jsonl")
	exported := e.mustRun(t, "export", "--path="+path)
	if exported["path"] != path {
		t.Errorf("expected path=%s, got %v", path, exported["path"])
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("export file not written: %v", err)
	}

	fresh := setupTest(t)

	if _, err := fresh.run(t, "import", path, "--mode=overwrite"); err == nil {
		t.Error("expected error for unknown mode")
	}

	imported := fresh.mustRun(t, "import", "--mode=replace", "--path="+path)
	if imported["imported"] == float64(0) {
		t.Error("expected records to be imported")
	}
	if !fresh.st.Workspace().Activated {
		t.Error("replace import should restore the activated workspace")
	}
	if got := len(fresh.st.Snapshot().Bookings); got != 1 {
		t.Errorf("bookings after import = %d, want 1", got)
	}
}

// TestCLIErrorHandling tests error handling in CLI commands.
func TestCLIErrorHandling(t *testing.T) {
	e := setupTest(t)

	t.Run("back office mutation before onboarding", func(t *testing.T) {
		_, err := e.run(t, "adjust", "inv-1", "--delta=1")
		if err == nil || !strings.Contains(err.Error(), "[NOT_ACTIVATED]") {
			t.Errorf("expected NOT_ACTIVATED, got %v", err)
		}
	})

	e.mustRun(t, "onboard", "--name=Acme Repairs")

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"unknown conversation", []string{"conversation", "nobody"}, "[NOT_FOUND]"},
		{"unknown booking", []string{"booking-status", "missing", "completed"}, "[NOT_FOUND]"},
		{"bad status", []string{"booking-status", "missing", "done"}, "[INVALID_REQUEST]"},
		{"bad slot", []string{"book", "--service=srv-1", "--slot=tomorrow", "--name=Jane", "--email=j@example.com"}, "[INVALID_REQUEST]"},
		{"slot not offered", []string{"book", "--service=srv-1", "--slot=2026-03-11T10:00:00Z", "--name=Jane", "--email=j@example.com"}, "[INVALID_REQUEST]"},
		{"bad role", []string{"role", "admin"}, "[INVALID_REQUEST]"},
		{"bad filter", []string{"bookings", "--filter=soon"}, "[INVALID_REQUEST]"},
		{"missing import file", []string{"import", filepath.Join(t.TempDir(), "missing.jsonl")}, "[FILE_NOT_FOUND]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.run(t, tt.args...)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.code) {
				t.Errorf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestOutputError(t *testing.T) {
	err := outputError(errors.NewNotFound("booking", "b1"))
	if err.Error() != "[NOT_FOUND] booking not found: b1" {
		t.Errorf("got %q", err.Error())
	}
}

// TestIsCLIMode tests the isCLIMode function.
func TestIsCLIMode(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{"no args", []string{"unifiedops"}, false},
		{"serve command", []string{"unifiedops", "serve"}, true},
		{"dashboard command", []string{"unifiedops", "dashboard"}, true},
		{"hyphenated command", []string{"unifiedops", "booking-status"}, true},
		{"help flag", []string{"unifiedops", "--help"}, true},
		{"version flag", []string{"unifiedops", "--version"}, true},
		{"short help flag", []string{"unifiedops", "-h"}, true},
		{"unknown arg defaults to MCP", []string{"unifiedops", "--unknown"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			if result := isCLIMode(); result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

// TestIsHelpOrVersion tests the isHelpOrVersion function.
func TestIsHelpOrVersion(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{"no args", []string{"unifiedops"}, false},
		{"help flag", []string{"unifiedops", "--help"}, true},
		{"short version flag", []string{"unifiedops", "-v"}, true},
		{"help subcommand", []string{"unifiedops", "help"}, true},
		{"inbox command is not help", []string{"unifiedops", "inbox"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			if result := isHelpOrVersion(); result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

// TestReadStdinWithLimit tests the readStdin function respects size limits.
func TestReadStdinWithLimit(t *testing.T) {
	withStdin := func(t *testing.T, content string) {
		t.Helper()
		r, w, err := os.Pipe()
		if err != nil {
			t.Fatalf("Failed to create pipe: %v", err)
		}
		go func() {
			_, _ = w.WriteString(content)
			w.Close()
		}()
		oldStdin := os.Stdin
		os.Stdin = r
		t.Cleanup(func() { os.Stdin = oldStdin })
	}

	t.Run("within limit", func(t *testing.T) {
		withStdin(t, "  small content\n")
		result, err := readStdin(1000)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if result != "small content" {
			t.Errorf("expected %q, got %q", "small content", result)
		}
	})

	t.Run("exceeds limit", func(t *testing.T) {
		withStdin(t, strings.Repeat("x", 100))
		if _, err := readStdin(50); err == nil {
			t.Error("expected error for content exceeding limit, got nil")
		}
	})
}

func TestCLIRefusesWritesWhileServed(t *testing.T) {
	e := setupTest(t)
	e.mustRun(t, "onboard", "--name=Acme Repairs")

	// Another process is serving this data directory.
	lease := db.ServerLease{PID: os.Getpid() + 1, Addr: "127.0.0.1:8080"}
	require.NoError(t, db.RenewServerLease(e.db, lease, time.Now()))

	_, err := e.run(t, "adjust", "inv-2", "--delta=-1")
	if err == nil || !strings.Contains(err.Error(), "[SERVER_RUNNING]") {
		t.Fatalf("expected SERVER_RUNNING, got %v", err)
	}
	if qty := e.st.Snapshot().Inventory[1].Quantity; qty != 15 {
		t.Errorf("quantity = %d after refused write, want 15", qty)
	}

	inv := e.mustRun(t, "inventory")
	require.Len(t, inv["items"], 3)

	require.NoError(t, db.ReleaseServerLease(e.db, lease.PID))
	adjusted := e.mustRun(t, "adjust", "inv-2", "--delta=-1")
	require.Equal(t, float64(14), adjusted["item"].(map[string]any)["quantity"])
}
