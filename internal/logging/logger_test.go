package logging

import (
	"testing"
)

func TestSecretNeverStringifies(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "passphrase is redacted", input: "correct-horse-battery-staple"},
		{name: "empty value is still redacted", input: ""},
		{name: "value with format verbs", input: "pass%sword"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Secret(tt.input).String(); got != "[REDACTED]" {
				t.Errorf("Secret(%q).String() = %q, want [REDACTED]", tt.input, got)
			}
			if got := Secret(tt.input).GoString(); got != "[REDACTED]" {
				t.Errorf("Secret(%q).GoString() = %q, want [REDACTED]", tt.input, got)
			}
		})
	}
}

func TestLoggerLevels(t *testing.T) {
	// The methods write to stderr; here we only verify they accept format
	// arguments without panicking at every level.
	logger := New(true, true)

	logger.Info("unlocking container %s", "wallet.json")
	logger.Warn("memory locking degraded on %s", "this host")
	logger.Error("container rejected: %v", "bad version")
	logger.Debug("derived key in %dms", 210)

	quiet := New(false, true)
	quiet.Debug("suppressed when debug is off")
}

func TestWarnOnceKeys(t *testing.T) {
	logger := New(false, true)

	logger.WarnOnce("unlocked-memory", "running without locked memory")
	logger.WarnOnce("unlocked-memory", "running without locked memory")
	logger.WarnOnce("deprecated-flag", "flag is deprecated")

	logger.warnedMu.Lock()
	defer logger.warnedMu.Unlock()
	if len(logger.warned) != 2 {
		t.Errorf("warned keys = %d, want 2", len(logger.warned))
	}
	if !logger.warned["unlocked-memory"] || !logger.warned["deprecated-flag"] {
		t.Error("expected both warning keys to be recorded")
	}
}

func TestRedact(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		secrets  []string
		expected string
	}{
		{
			name:     "passphrase redacted",
			input:    "unlock failed for passphrase hunter2-hunter2",
			secrets:  []string{"hunter2-hunter2"},
			expected: "unlock failed for passphrase [REDACTED]",
		},
		{
			name:     "multiple values redacted",
			input:    "account alice-signer with passphrase open-sesame",
			secrets:  []string{"alice-signer", "open-sesame"},
			expected: "account [REDACTED] with passphrase [REDACTED]",
		},
		{
			name:     "nothing to redact",
			input:    "container parsed",
			secrets:  nil,
			expected: "container parsed",
		},
		{
			name:     "short values left alone",
			input:    "key is abc",
			secrets:  []string{"abc"},
			expected: "key is abc",
		},
		{
			name:     "empty value ignored",
			input:    "key is set",
			secrets:  []string{""},
			expected: "key is set",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Redact(tt.input, tt.secrets); got != tt.expected {
				t.Errorf("Redact() = %q, want %q", got, tt.expected)
			}
		})
	}
}
