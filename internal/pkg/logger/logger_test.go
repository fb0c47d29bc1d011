package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactEmail(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"normal address", "john.doe@example.com", "jo***@example.com"},
		{"short local part", "ab@example.com", "***@example.com"},
		{"single char local part", "a@example.com", "***@example.com"},
		{"not an email", "not-an-email", "***@***"},
		{"two at signs", "a@b@c.com", "***@***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RedactEmail(tt.input))
		})
	}
}

func TestLoggerRedactsEmailFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(INFO, true, &buf)

	log.Info("recipient outcome", "recipient", "john.doe@example.com", "status", "sent")

	var entry map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "jo***@example.com", entry["recipient"])
	assert.Equal(t, "sent", entry["status"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestLoggerRedactsEmbeddedEmails(t *testing.T) {
	var buf bytes.Buffer
	log := New(INFO, true, &buf)

	log.Warn("send failed", "detail", "550 mailbox john.doe@example.com unavailable")

	var entry map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "550 mailbox jo***@example.com unavailable", entry["detail"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(WARN, false, &buf)

	log.Debug("not emitted")
	log.Info("not emitted")
	assert.Zero(t, buf.Len())

	log.Warn("emitted")
	assert.NotZero(t, buf.Len())
}

func TestLoggerNoRedaction(t *testing.T) {
	var buf bytes.Buffer
	log := New(INFO, false, &buf)

	log.Info("recipient outcome", "recipient", "john.doe@example.com")

	var entry map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "john.doe@example.com", entry["recipient"])
}
