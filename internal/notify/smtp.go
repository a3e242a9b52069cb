package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"time"
)

// Security is the connection security mode of an SMTP endpoint.
type Security string

const (
	SecurityNone     Security = "none"
	SecurityStartTLS Security = "starttls"
	SecurityTLS      Security = "tls"
)

// Endpoint configures one SMTP server.
type Endpoint struct {
	Name            string
	Host            string
	Port            int
	Security        Security
	Username        string
	Password        string
	ConnectTimeout  time.Duration
	GreetingTimeout time.Duration
	SocketTimeout   time.Duration
	// TLSConfig overrides the default {ServerName: Host}.
	TLSConfig *tls.Config
}

func (e Endpoint) addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// SMTPTransport sends each message on its own connection.
type SMTPTransport struct {
	endpoint  Endpoint
	from      string
	localName string
}

// NewSMTPTransport creates a transport for ep sending as from.
func NewSMTPTransport(ep Endpoint, from string) *SMTPTransport {
	if ep.ConnectTimeout <= 0 {
		ep.ConnectTimeout = 10 * time.Second
	}
	if ep.GreetingTimeout <= 0 {
		ep.GreetingTimeout = 10 * time.Second
	}
	if ep.SocketTimeout <= 0 {
		ep.SocketTimeout = 30 * time.Second
	}
	if ep.Security == "" {
		ep.Security = SecurityNone
	}
	return &SMTPTransport{endpoint: ep, from: from, localName: "localhost"}
}

// Name identifies the endpoint in logs and metrics.
func (t *SMTPTransport) Name() string {
	if t.endpoint.Name != "" {
		return t.endpoint.Name
	}
	return "smtp://" + t.endpoint.addr()
}

func (t *SMTPTransport) tlsConfig() *tls.Config {
	if t.endpoint.TLSConfig != nil {
		return t.endpoint.TLSConfig
	}
	return &tls.Config{ServerName: t.endpoint.Host, MinVersion: tls.VersionTLS12}
}

// connect dials, reads the greeting, negotiates security and authenticates.
func (t *SMTPTransport) connect(ctx context.Context) (*smtp.Client, net.Conn, error) {
	ep := t.endpoint
	dialer := &net.Dialer{Timeout: ep.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", ep.addr())
	if err != nil {
		return nil, nil, err
	}

	if ep.Security == SecurityTLS {
		tlsConn := tls.Client(conn, t.tlsConfig())
		_ = tlsConn.SetDeadline(time.Now().Add(ep.ConnectTimeout))
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("tls handshake: %w", err)
		}
		conn = tlsConn
	}

	_ = conn.SetDeadline(time.Now().Add(ep.GreetingTimeout))
	c, err := smtp.NewClient(conn, ep.Host)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("smtp greeting: %w", err)
	}

	_ = conn.SetDeadline(time.Now().Add(ep.SocketTimeout))
	if err := c.Hello(t.localName); err != nil {
		c.Close()
		return nil, nil, fmt.Errorf("smtp hello: %w", err)
	}
	if ep.Security == SecurityStartTLS {
		if ok, _ := c.Extension("STARTTLS"); !ok {
			c.Close()
			return nil, nil, errors.New("smtp server does not offer STARTTLS")
		}
		if err := c.StartTLS(t.tlsConfig()); err != nil {
			c.Close()
			return nil, nil, fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if ep.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", ep.Username, ep.Password, ep.Host)); err != nil {
			c.Close()
			return nil, nil, fmt.Errorf("smtp auth: %w", err)
		}
	}
	return c, conn, nil
}

// Verify opens and cleanly closes a session.
func (t *SMTPTransport) Verify(ctx context.Context) error {
	c, _, err := t.connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()
	return c.Quit()
}

// Send delivers msg in a fresh session.
func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	c, conn, err := t.connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	_ = conn.SetDeadline(time.Now().Add(t.endpoint.SocketTimeout))
	if err := c.Mail(t.from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(t.compose(msg, time.Now())); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data end: %w", err)
	}
	// accepted once DATA is closed; a failed QUIT does not undo delivery
	_ = c.Quit()
	return nil
}

func (t *SMTPTransport) compose(msg Message, now time.Time) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", t.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return b.Bytes()
}
