// Package smtpprobe runs a single SMTP envelope round-trip against one host:
// banner, EHLO (or HELO), optional STARTTLS, MAIL FROM, RCPT TO and QUIT.
// It never issues DATA.
package smtpprobe

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/proxy"

	"github.com/optimode/emailfinder/types"
)

// DialFunc opens the TCP connection to an SMTP host.
type DialFunc func(network, address string, timeout time.Duration) (net.Conn, error)

// Config configures the probe client.
type Config struct {
	HeloDomain string
	// MailFrom is the envelope sender; "{domain}" is replaced by the
	// domain of the probed address.
	MailFrom       string
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
	Port           string
	StartTLS       bool
	TLSVerify      bool
	// Dial is injectable for testing. Defaults to net.DialTimeout.
	Dial DialFunc
}

// Client probes recipients. It holds no connection state and is safe
// for concurrent use.
type Client struct {
	cfg Config
}

// Reply is the server's answer to RCPT TO.
type Reply struct {
	Host    string
	Code    int
	Message string
	TLS     bool
}

type conn struct {
	netConn net.Conn
	reader  *bufio.Reader
	writer  *bufio.Writer
	timeout time.Duration
}

// New creates a probe client.
func New(cfg Config) *Client {
	if cfg.Dial == nil {
		cfg.Dial = net.DialTimeout
	}
	if cfg.Port == "" {
		cfg.Port = "25"
	}
	if cfg.HeloDomain == "" {
		cfg.HeloDomain = "localhost"
	}
	if cfg.MailFrom == "" {
		cfg.MailFrom = "verify@{domain}"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 10 * time.Second
	}
	return &Client{cfg: cfg}
}

// SOCKS5 returns a DialFunc that tunnels through a SOCKS5 proxy.
func SOCKS5(proxyAddr string) DialFunc {
	return func(network, address string, timeout time.Duration) (net.Conn, error) {
		d, err := proxy.SOCKS5("tcp", proxyAddr, nil, &net.Dialer{Timeout: timeout})
		if err != nil {
			return nil, err
		}
		return d.Dial(network, address)
	}
}

// MailFrom returns the envelope sender used for addresses at domain.
func (c *Client) MailFrom(domain string) string {
	return strings.ReplaceAll(c.cfg.MailFrom, "{domain}", domain)
}

// Check runs one session against host and returns the RCPT TO reply.
// Failures are *types.TransportError or *types.ProtocolError; a connect
// failure has Op "connect". The connection is closed on every path.
func (c *Client) Check(ctx context.Context, host, email string) (Reply, error) {
	address := net.JoinHostPort(host, c.cfg.Port)
	netConn, err := c.cfg.Dial("tcp", address, c.cfg.ConnectTimeout)
	if err != nil {
		return Reply{}, &types.TransportError{Op: "connect", Err: errors.Wrapf(err, "connect to %s", address)}
	}
	if err := ctx.Err(); err != nil {
		_ = netConn.Close()
		return Reply{}, &types.TransportError{Op: "connect", Err: err}
	}

	cn := &conn{
		netConn: netConn,
		reader:  bufio.NewReader(netConn),
		writer:  bufio.NewWriter(netConn),
		timeout: c.cfg.CommandTimeout,
	}
	// unblock reads and writes when the caller gives up
	stop := context.AfterFunc(ctx, func() { _ = netConn.Close() })
	defer func() {
		stop()
		sendQuit(cn)
		_ = cn.netConn.Close()
	}()

	reply, err := c.session(cn, host, email)
	if err != nil && ctx.Err() != nil {
		return Reply{}, &types.TransportError{Op: "cancelled", Err: ctx.Err()}
	}
	reply.Host = host
	return reply, err
}

func (c *Client) session(cn *conn, host, email string) (Reply, error) {
	code, lines, err := cn.read()
	if err != nil {
		return Reply{}, &types.TransportError{Op: "banner", Err: err}
	}
	if code >= 400 {
		return Reply{}, &types.ProtocolError{Step: "banner", Code: code, Message: join(lines)}
	}

	exts, err := c.hello(cn)
	if err != nil {
		return Reply{}, err
	}

	secure := false
	if c.cfg.StartTLS && exts["STARTTLS"] {
		upgraded, err := c.startTLS(cn, host)
		if err != nil {
			return Reply{}, err
		}
		if upgraded {
			secure = true
			if _, err := c.hello(cn); err != nil {
				return Reply{}, err
			}
		}
	}

	domain := email
	if at := strings.LastIndex(email, "@"); at >= 0 {
		domain = email[at+1:]
	}

	code, lines, err = cn.command(fmt.Sprintf("MAIL FROM:<%s>\r\n", c.MailFrom(domain)))
	if err != nil {
		return Reply{}, &types.TransportError{Op: "mail-from", Err: err}
	}
	if code >= 400 {
		return Reply{}, &types.ProtocolError{Step: "mail-from", Code: code, Message: join(lines)}
	}

	code, lines, err = cn.command(fmt.Sprintf("RCPT TO:<%s>\r\n", email))
	if err != nil {
		return Reply{}, &types.TransportError{Op: "rcpt", Err: err}
	}
	return Reply{Code: code, Message: join(lines), TLS: secure}, nil
}

// hello sends EHLO and falls back to HELO when EHLO is refused.
// It returns the advertised extensions (empty after HELO).
func (c *Client) hello(cn *conn) (map[string]bool, error) {
	code, lines, err := cn.command(fmt.Sprintf("EHLO %s\r\n", c.cfg.HeloDomain))
	if err != nil {
		return nil, &types.TransportError{Op: "ehlo", Err: err}
	}
	if code < 400 {
		return extensions(lines), nil
	}

	code, lines, err = cn.command(fmt.Sprintf("HELO %s\r\n", c.cfg.HeloDomain))
	if err != nil {
		return nil, &types.TransportError{Op: "helo", Err: err}
	}
	if code >= 400 {
		return nil, &types.ProtocolError{Step: "helo", Code: code, Message: join(lines)}
	}
	return map[string]bool{}, nil
}

// startTLS upgrades the connection. A refused STARTTLS leaves the session
// in clear text and returns false; a failed handshake is a transport error.
func (c *Client) startTLS(cn *conn, host string) (bool, error) {
	code, _, err := cn.command("STARTTLS\r\n")
	if err != nil {
		return false, &types.TransportError{Op: "starttls", Err: err}
	}
	if code != 220 {
		return false, nil
	}

	tlsConn := tls.Client(cn.netConn, &tls.Config{
		ServerName:         host,
		InsecureSkipVerify: !c.cfg.TLSVerify, //nolint:gosec // no payload is sent
	})
	if err := tlsConn.SetDeadline(time.Now().Add(cn.timeout)); err != nil {
		return false, &types.TransportError{Op: "starttls", Err: err}
	}
	if err := tlsConn.Handshake(); err != nil {
		return false, &types.TransportError{Op: "starttls", Err: err}
	}
	cn.netConn = tlsConn
	cn.reader = bufio.NewReader(tlsConn)
	cn.writer = bufio.NewWriter(tlsConn)
	return true, nil
}

// command sends an SMTP command and reads the response.
func (cn *conn) command(cmd string) (int, []string, error) {
	if err := cn.netConn.SetDeadline(time.Now().Add(cn.timeout)); err != nil {
		return 0, nil, errors.Wrap(err, "set deadline")
	}
	if _, err := cn.writer.WriteString(cmd); err != nil {
		return 0, nil, err
	}
	if err := cn.writer.Flush(); err != nil {
		return 0, nil, err
	}
	return readResponse(cn.reader)
}

func (cn *conn) read() (int, []string, error) {
	if err := cn.netConn.SetDeadline(time.Now().Add(cn.timeout)); err != nil {
		return 0, nil, errors.Wrap(err, "set deadline")
	}
	return readResponse(cn.reader)
}

// sendQuit sends a QUIT command (best-effort, ignores errors).
func sendQuit(cn *conn) {
	_ = cn.netConn.SetDeadline(time.Now().Add(2 * time.Second))
	_, _ = cn.writer.WriteString("QUIT\r\n")
	_ = cn.writer.Flush()
}

// readResponse reads a (possibly multi-line) SMTP response.
func readResponse(r *bufio.Reader) (code int, lines []string, err error) {
	for {
		line, readErr := r.ReadString('\n')
		if readErr != nil {
			return 0, nil, errors.Wrap(readErr, "read SMTP response")
		}
		line = strings.TrimRight(line, "\r\n")
		if len(line) < 3 {
			return 0, nil, errors.New("SMTP response line too short")
		}
		lines = append(lines, line)
		// the last line has no '-' after the code
		if len(line) < 4 || line[3] != '-' {
			break
		}
	}

	last := lines[len(lines)-1]
	if _, err := fmt.Sscanf(last[:3], "%d", &code); err != nil {
		return 0, nil, errors.Wrapf(err, "invalid SMTP response code %q", last[:3])
	}
	return code, lines, nil
}

// extensions parses EHLO keywords; the first line is the greeting.
func extensions(lines []string) map[string]bool {
	out := make(map[string]bool, len(lines))
	for i, line := range lines {
		if i == 0 || len(line) < 5 {
			continue
		}
		kw, _, _ := strings.Cut(line[4:], " ")
		out[strings.ToUpper(kw)] = true
	}
	return out
}

func join(lines []string) string {
	return strings.Join(lines, " | ")
}
