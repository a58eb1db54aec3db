package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"TutorChat/internal/evaluation/evaltest"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags restores every flag to its default so tests do not leak state
// through the package-level commands.
func resetFlags(t *testing.T) {
	t.Helper()
	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			if err := f.Value.Set(f.DefValue); err != nil {
				t.Fatalf("failed to reset flag %s: %v", f.Name, err)
			}
			f.Changed = false
		})
	}
	reset(rootCmd.PersistentFlags())
	for _, c := range []*cobra.Command{rootCmd, historyCmd} {
		reset(c.Flags())
	}
}

func execute(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	resetFlags(t)

	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)

	err := rootCmd.Execute()
	return stdout.String(), err
}

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{
			name: "version flag",
			args: []string{"--version"},
			want: version,
		},
		{
			name: "help flag",
			args: []string{"--help"},
			want: "TUTOR_API_URL",
		},
		{
			name:    "unexpected argument",
			args:    []string{"hello"},
			wantErr: true,
		},
		{
			name:    "invalid api url",
			args:    []string{"--api-url", "ftp://example.com", "--log-dir", t.TempDir()},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "", tt.args...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.want != "" && !strings.Contains(out, tt.want) {
				t.Errorf("expected output to contain %q, got:\n%s", tt.want, out)
			}
		})
	}
}

func TestRootCommandRunsExercise(t *testing.T) {
	srv := evaltest.NewServer(t, "Translate: The cat sleeps.", "Translate: The dog runs.")
	srv.SetResult(json.RawMessage(`{"score":9}`))

	logDir := t.TempDir()
	journalPath := filepath.Join(t.TempDir(), "journal.db")

	out, err := execute(t, "Кошка спит.\n/quit\n",
		"--api-url", srv.URL,
		"--log-dir", logDir,
		"--telemetry=false",
		"--no-color",
		"--journal",
		"--journal-path", journalPath,
	)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	for _, want := range []string{"Translate: The cat sleeps.", "score: 9", "Translate: The dog runs.", "Goodbye!"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	// The attempt is visible through the history command
	out, err = execute(t, "", "history", "--journal-path", journalPath, "--format", "json", "--log-dir", logDir)
	if err != nil {
		t.Fatalf("history error = %v", err)
	}

	var records []map[string]interface{}
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("history output is not JSON: %v\n%s", err, out)
	}
	if len(records) != 1 || records[0]["translation"] != "Кошка спит." {
		t.Errorf("unexpected history records: %v", records)
	}
}

func TestLoadConfigFlagsOverrideEnv(t *testing.T) {
	t.Setenv("TUTOR_API_URL", "http://env.example.com/api")
	t.Setenv("TUTOR_TIMEOUT", "15s")
	resetFlags(t)

	if err := rootCmd.ParseFlags([]string{"--timeout", "5s"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	cfg, err := loadConfig(rootCmd)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.BaseURL != "http://env.example.com/api" {
		t.Errorf("BaseURL = %q, want the env value", cfg.BaseURL)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want flag value 5s", cfg.Timeout)
	}
}
