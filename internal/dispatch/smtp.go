package dispatch

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"net/textproto"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/mail-dispatch/internal/domain"
)

// Opener establishes SMTP sessions. Implementations must be safe for
// concurrent use; each returned Session belongs to exactly one batch.
type Opener interface {
	Open(ctx context.Context, ep domain.Endpoint) (Session, error)
}

// Session is one authenticated SMTP connection, reused sequentially
// across all recipients of a batch. Send returns nil on acceptance,
// *SendError on a per-message rejection (session still usable), and
// *SessionError when the connection is no longer usable.
type Session interface {
	Send(ctx context.Context, msg *domain.Message) error
	Close() error
}

// SMTPOpener dials real SMTP endpoints. Secure endpoints use implicit
// TLS on connect; plain endpoints upgrade via STARTTLS when the server
// advertises it. Certificate validation is on unless the deployment
// explicitly opts out via config.
type SMTPOpener struct {
	connectTimeout     time.Duration
	sendTimeout        time.Duration
	insecureSkipVerify bool
}

// NewSMTPOpener creates an opener with the given session policy.
func NewSMTPOpener(connectTimeout, sendTimeout time.Duration, insecureSkipVerify bool) *SMTPOpener {
	return &SMTPOpener{
		connectTimeout:     connectTimeout,
		sendTimeout:        sendTimeout,
		insecureSkipVerify: insecureSkipVerify,
	}
}

// Open dials the endpoint, negotiates TLS, and authenticates. Any
// failure returns a *ConnectError.
func (o *SMTPOpener) Open(ctx context.Context, ep domain.Endpoint) (Session, error) {
	addr := fmt.Sprintf("%s:%d", ep.Host, ep.Port)
	dialer := &net.Dialer{Timeout: o.connectTimeout}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectError{Err: fmt.Errorf("dial %s: %w", addr, err)}
	}

	// The dialer timeout only covers the TCP connect; bound the
	// greeting, TLS handshake, and AUTH exchange too.
	conn.SetDeadline(time.Now().Add(o.connectTimeout))

	tlsCfg := &tls.Config{ServerName: ep.Host, InsecureSkipVerify: o.insecureSkipVerify}
	if ep.Secure {
		conn = tls.Client(conn, tlsCfg)
	}

	client, err := smtp.NewClient(conn, ep.Host)
	if err != nil {
		conn.Close()
		return nil, &ConnectError{Err: fmt.Errorf("greeting from %s: %w", addr, err)}
	}

	if !ep.Secure {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsCfg); err != nil {
				client.Close()
				return nil, &ConnectError{Err: fmt.Errorf("STARTTLS: %w", err)}
			}
		}
	}

	if ep.Username != "" && ep.Password != "" {
		if err := client.Auth(&plainAuth{user: ep.Username, pass: ep.Password}); err != nil {
			client.Close()
			return nil, &ConnectError{Err: fmt.Errorf("AUTH: %w", err)}
		}
	}

	conn.SetDeadline(time.Time{})

	return &smtpSession{
		client:      client,
		conn:        conn,
		endpoint:    ep,
		sendTimeout: o.sendTimeout,
	}, nil
}

type smtpSession struct {
	client      *smtp.Client
	conn        net.Conn
	endpoint    domain.Endpoint
	sendTimeout time.Duration
}

// Send runs one MAIL/RCPT/DATA transaction over the open session. The
// whole transaction is bounded by the per-send timeout (or the
// request's context deadline, whichever is sooner); a deadline expiry
// leaves the connection mid-transaction, so it is reported as a
// *SessionError and the session must not be used again.
func (s *smtpSession) Send(ctx context.Context, msg *domain.Message) error {
	deadline := time.Now().Add(s.sendTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	s.conn.SetDeadline(deadline)
	defer s.conn.SetDeadline(time.Time{})

	err := s.transact(msg)
	if err == nil {
		return nil
	}

	var sendErr *SendError
	if errors.As(err, &sendErr) {
		// Abort the half-built transaction so the next recipient
		// starts clean.
		_ = s.client.Reset()
	}
	return err
}

func (s *smtpSession) transact(msg *domain.Message) error {
	if err := s.client.Mail(s.endpoint.FromEmail); err != nil {
		return classifySMTPError("MAIL FROM", err)
	}
	if err := s.client.Rcpt(msg.To); err != nil {
		return classifySMTPError("RCPT TO", err)
	}
	w, err := s.client.Data()
	if err != nil {
		return classifySMTPError("DATA", err)
	}
	if _, err := w.Write(buildMIME(msg)); err != nil {
		return classifySMTPError("write", err)
	}
	if err := w.Close(); err != nil {
		return classifySMTPError("DATA close", err)
	}
	return nil
}

// Close quits the session politely, falling back to a hard close when
// QUIT fails (e.g. the connection is already gone).
func (s *smtpSession) Close() error {
	if err := s.client.Quit(); err != nil {
		return s.client.Close()
	}
	return nil
}

// classifySMTPError separates per-message rejections from session
// death. A protocol-level reply (textproto.Error) is a rejection of
// this message only — except 421, which is the server closing the
// channel. Everything else (deadline expiry, connection reset, EOF)
// means the session is gone.
func classifySMTPError(stage string, err error) error {
	var proto *textproto.Error
	if errors.As(err, &proto) && proto.Code != 421 {
		return &SendError{Detail: fmt.Sprintf("%s: %v", stage, err)}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &SessionError{Detail: fmt.Sprintf("%s: send timed out: %v", stage, err)}
	}
	return &SessionError{Detail: fmt.Sprintf("%s: %v", stage, err)}
}

// buildMIME assembles the wire message: From/To/Subject headers and a
// multipart/alternative body with the plain-text part first and the
// HTML part as the primary representation.
func buildMIME(msg *domain.Message) []byte {
	messageID := fmt.Sprintf("%s@mail-dispatch", uuid.New().String())
	boundary := fmt.Sprintf("=_%s", uuid.New().String()[:16])

	var buf bytes.Buffer
	from := msg.FromEmail
	if msg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", msg.FromName), msg.FromEmail)
	}
	buf.WriteString(fmt.Sprintf("From: %s\r\n", from))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", msg.To))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject)))
	buf.WriteString(fmt.Sprintf("Message-ID: <%s>\r\n", messageID))
	buf.WriteString("MIME-Version: 1.0\r\n")

	for k, v := range msg.Headers {
		buf.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}

	buf.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary))
	buf.WriteString("\r\n")

	if msg.Text != "" {
		buf.WriteString(fmt.Sprintf("--%s\r\n", boundary))
		buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
		buf.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
		buf.WriteString(msg.Text)
		buf.WriteString("\r\n")
	}
	buf.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	buf.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	buf.WriteString(msg.HTML)
	buf.WriteString("\r\n")
	buf.WriteString(fmt.Sprintf("--%s--\r\n", boundary))

	return buf.Bytes()
}

// plainAuth implements smtp.Auth without the TLS requirement that
// stdlib's PlainAuth enforces. Batches may legitimately target
// plaintext submission ports on private relays.
type plainAuth struct {
	user, pass string
}

func (a *plainAuth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	resp := []byte("\x00" + a.user + "\x00" + a.pass)
	return "PLAIN", resp, nil
}

func (a *plainAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	return nil, nil
}
