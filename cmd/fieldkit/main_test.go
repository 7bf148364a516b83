package main

import (
	"bytes"
	"io"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/scanform/fieldkit/internal/config"
)

const (
	testVersion = "1.2.3"
	devVersion  = "dev"
)

func captureVersionOutput(t *testing.T) string {
	t.Helper()

	originalStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = originalStdout }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		printVersion()
		w.Close()
	}()

	var buf bytes.Buffer
	io.Copy(&buf, r)
	<-done
	return buf.String()
}

func TestPrintVersion(t *testing.T) {
	oldVersion := version
	oldBuildTime := buildTime
	oldGitCommit := gitCommit

	version = testVersion
	buildTime = "2023-12-01_10:30:00"
	gitCommit = "abc123"

	defer func() {
		version = oldVersion
		buildTime = oldBuildTime
		gitCommit = oldGitCommit
	}()

	output := captureVersionOutput(t)

	expectedStrings := []string{
		"fieldkit",
		"Version: " + testVersion,
		"Build Time: 2023-12-01_10:30:00",
		"Git Commit: abc123",
		"Built with:",
	}

	for _, expected := range expectedStrings {
		if !strings.Contains(output, expected) {
			t.Errorf("printVersion() output missing expected string: %s\nActual output:\n%s", expected, output)
		}
	}
}

func TestPrintVersionWithDefaults(t *testing.T) {
	oldVersion := version
	oldBuildTime := buildTime
	oldGitCommit := gitCommit

	version = devVersion
	buildTime = "unknown"
	gitCommit = "unknown"

	defer func() {
		version = oldVersion
		buildTime = oldBuildTime
		gitCommit = oldGitCommit
	}()

	output := captureVersionOutput(t)

	expectedStrings := []string{
		"fieldkit",
		"Version: dev",
		"Build Time: unknown",
		"Git Commit: unknown",
	}

	for _, expected := range expectedStrings {
		if !strings.Contains(output, expected) {
			t.Errorf("printVersion() output missing expected string: %s\nActual output:\n%s", expected, output)
		}
	}
}

func TestSetupLogging_StdioMode(t *testing.T) {
	// Save original log settings
	originalOutput := log.Writer()
	originalFlags := log.Flags()

	defer func() {
		log.SetOutput(originalOutput)
		log.SetFlags(originalFlags)
	}()

	tests := []struct {
		name     string
		wantType string
		config   *config.Config
	}{
		{
			name: "stdio mode - debug enabled",
			config: &config.Config{
				Mode:     "stdio",
				LogLevel: "debug",
			},
			wantType: "stderr",
		},
		{
			name: "stdio mode - debug disabled",
			config: &config.Config{
				Mode:     "stdio",
				LogLevel: "info",
			},
			wantType: "discard",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupLogging(tt.config)

			currentOutput := log.Writer()

			switch tt.wantType {
			case "stderr":
				if currentOutput != os.Stderr {
					t.Errorf("setupLogging() for stdio debug mode should set output to stderr")
				}
			case "discard":
				// Non-debug stdio mode must swallow logs without touching
				// any process file descriptor. Writing to a wrapped fd 0
				// would corrupt the MCP protocol stream on stdin.
				if currentOutput != io.Discard {
					t.Errorf("setupLogging() for stdio non-debug mode should set output to io.Discard, got %T", currentOutput)
				}
			}
		})
	}
}

func TestSetupLogging_ServerMode(t *testing.T) {
	// Save original log settings
	originalOutput := log.Writer()
	originalFlags := log.Flags()

	defer func() {
		log.SetOutput(originalOutput)
		log.SetFlags(originalFlags)
	}()

	cfg := &config.Config{
		Mode:     "server",
		LogLevel: "info",
	}

	setupLogging(cfg)

	// In server mode, flags should include LstdFlags and Lshortfile
	currentFlags := log.Flags()
	expectedFlags := log.LstdFlags | log.Lshortfile

	if currentFlags != expectedFlags {
		t.Errorf("setupLogging() for server mode: flags = %v, want %v", currentFlags, expectedFlags)
	}
}

func TestVersionFlagDetection(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		hasVersion bool
	}{
		{
			name:       "no version flag",
			args:       []string{"program"},
			hasVersion: false,
		},
		{
			name:       "-version flag",
			args:       []string{"program", "-version"},
			hasVersion: true,
		},
		{
			name:       "--version flag",
			args:       []string{"program", "--version"},
			hasVersion: true,
		},
		{
			name:       "-v flag",
			args:       []string{"program", "-v"},
			hasVersion: true,
		},
		{
			name:       "version flag with other args",
			args:       []string{"program", "-mode=server", "-version", "-port=8080"},
			hasVersion: true,
		},
		{
			name:       "similar but not version flag",
			args:       []string{"program", "-verbose", "-versions"},
			hasVersion: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found := false
			for _, arg := range tt.args[1:] { // Skip program name
				if arg == "-version" || arg == "--version" || arg == "-v" {
					found = true
					break
				}
			}

			if found != tt.hasVersion {
				t.Errorf("Version flag detection for %v: got %v, want %v", tt.args, found, tt.hasVersion)
			}
		})
	}
}

func TestMainFunctionLogic(t *testing.T) {
	// We can't test main() directly due to os.Exit calls, but we can test the logic

	t.Run("version setting logic", func(t *testing.T) {
		cfg := config.DefaultConfig()

		// Simulate version being set during build
		buildVersion := "1.2.3"

		if buildVersion != devVersion {
			cfg.Version = buildVersion
		}

		if cfg.Version != testVersion {
			t.Errorf("Version setting logic: got %s, want %s", cfg.Version, testVersion)
		}
	})

	t.Run("version not set logic", func(t *testing.T) {
		cfg := config.DefaultConfig()
		originalVersion := cfg.Version

		// Simulate version not being set during build (remains "dev")
		buildVersion := devVersion

		if buildVersion != devVersion {
			cfg.Version = buildVersion
		}

		if cfg.Version != originalVersion {
			t.Errorf("Version not set logic: version should remain unchanged, got %s, want %s", cfg.Version, originalVersion)
		}
	})
}
