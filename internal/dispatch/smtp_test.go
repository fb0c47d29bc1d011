package dispatch

import (
	"errors"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/mail-dispatch/internal/domain"
)

func TestClassifySMTPError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantSession bool
	}{
		{"mailbox rejection", &textproto.Error{Code: 550, Msg: "mailbox unavailable"}, false},
		{"transient rejection", &textproto.Error{Code: 451, Msg: "try again later"}, false},
		{"421 service closing", &textproto.Error{Code: 421, Msg: "closing transmission channel"}, true},
		{"timeout", &net.OpError{Op: "write", Err: timeoutErr{}}, true},
		{"connection reset", errors.New("connection reset by peer"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifySMTPError("RCPT TO", tt.err)
			var sessionErr *SessionError
			var sendErr *SendError
			if tt.wantSession {
				assert.ErrorAs(t, got, &sessionErr)
			} else {
				assert.ErrorAs(t, got, &sendErr)
				assert.Contains(t, sendErr.Detail, "RCPT TO")
			}
		})
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestBuildMIME(t *testing.T) {
	msg := &domain.Message{
		To:        "ann@x.com",
		FromName:  "Example News",
		FromEmail: "news@example.com",
		Subject:   "Hi Ann",
		HTML:      "<p>Hello Ann</p>",
		Text:      "Hello Ann",
	}

	raw := string(buildMIME(msg))

	assert.Contains(t, raw, "From: Example News <news@example.com>\r\n")
	assert.Contains(t, raw, "To: ann@x.com\r\n")
	assert.Contains(t, raw, "Subject: Hi Ann\r\n")
	assert.Contains(t, raw, "MIME-Version: 1.0\r\n")
	assert.Contains(t, raw, "Content-Type: multipart/alternative; boundary=")
	assert.Contains(t, raw, "Content-Type: text/plain; charset=UTF-8\r\n")
	assert.Contains(t, raw, "Content-Type: text/html; charset=UTF-8\r\n")
	assert.Contains(t, raw, "<p>Hello Ann</p>")
	assert.Contains(t, raw, "Hello Ann")

	// Plain part must come before the HTML part so clients prefer HTML.
	assert.Less(t,
		strings.Index(raw, "text/plain"),
		strings.Index(raw, "text/html"))

	// The boundary closes the message.
	assert.True(t, strings.HasSuffix(raw, "--\r\n"))
}

func TestBuildMIMEWithoutFromName(t *testing.T) {
	msg := &domain.Message{
		To:        "ann@x.com",
		FromEmail: "news@example.com",
		Subject:   "Hi",
		HTML:      "<p>x</p>",
	}

	raw := string(buildMIME(msg))
	assert.Contains(t, raw, "From: news@example.com\r\n")
}

func TestBuildMIMESkipsEmptyTextPart(t *testing.T) {
	msg := &domain.Message{
		To:        "ann@x.com",
		FromEmail: "news@example.com",
		Subject:   "Hi",
		HTML:      "<p>x</p>",
	}

	raw := string(buildMIME(msg))
	assert.NotContains(t, raw, "text/plain")
	assert.Contains(t, raw, "text/html")
}

func TestBuildMIMECustomHeaders(t *testing.T) {
	msg := &domain.Message{
		To:        "ann@x.com",
		FromEmail: "news@example.com",
		Subject:   "Hi",
		HTML:      "<p>x</p>",
		Headers:   map[string]string{"List-Unsubscribe": "<mailto:stop@example.com>"},
	}

	raw := string(buildMIME(msg))
	assert.Contains(t, raw, "List-Unsubscribe: <mailto:stop@example.com>\r\n")
}

func TestPlainAuth(t *testing.T) {
	auth := &plainAuth{user: "user", pass: "secret"}

	mech, resp, err := auth.Start(nil)
	require.NoError(t, err)
	assert.Equal(t, "PLAIN", mech)
	assert.Equal(t, []byte("\x00user\x00secret"), resp)
}

func TestNewSMTPOpenerDefaultsAreStrict(t *testing.T) {
	o := NewSMTPOpener(15*time.Second, 30*time.Second, false)
	assert.False(t, o.insecureSkipVerify)
	assert.Equal(t, 30*time.Second, o.sendTimeout)
}
