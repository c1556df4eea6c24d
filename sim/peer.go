// Package sim answers the reporting script the way a BC66 module does. It
// stands in for the modem in end-to-end tests and behind a pseudo-terminal
// for bench runs without hardware.
package sim

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"i4.energy/across/watchible/at"
)

// Peer is a scripted BC66. The zero value registers on the first query and
// answers every known command with OK.
type Peer struct {
	// RegisterAfter is the number of registration queries answered as
	// "searching" before the peer reports itself registered.
	RegisterAfter int
	// Errors maps a command (without "at+") to the number of times it is
	// answered with ERROR before it succeeds.
	Errors map[string]int
	// Clock is the +CCLK argument. Empty uses a fixed network time.
	Clock   string
	CCID    string
	Battery string
	// Silent suppresses the power-save event after the final sleep command.
	Silent bool

	Logger *slog.Logger

	mu          sync.Mutex
	queries     int
	commands    []string
	certificate []byte
	published   []string
	uploading   bool
}

// Serve answers commands read from rw until rw fails or ctx is done. When
// ctx is done rw is closed if it implements io.Closer.
func (p *Peer) Serve(ctx context.Context, rw io.ReadWriter) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if c, ok := rw.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { c.Close() })
		defer stop()
	}

	sc := bufio.NewScanner(rw)
	sc.Buffer(make([]byte, 4096), 1<<20)
	sc.Split(p.split)

	for sc.Scan() {
		token := sc.Bytes()
		var reply string
		if p.isUploading() {
			reply = p.upload(token)
			logger.Debug("Certificate received", "bytes", len(token))
		} else {
			cmd := strings.TrimSpace(string(token))
			if cmd == "" {
				continue
			}
			reply = p.answer(cmd)
			logger.Debug("Command", "command", cmd, "reply", strings.TrimSpace(reply))
		}
		if _, err := io.WriteString(rw, reply); err != nil {
			return p.serveErr(ctx, err)
		}
	}
	if err := sc.Err(); err != nil {
		return p.serveErr(ctx, err)
	}
	return ctx.Err()
}

func (p *Peer) serveErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, io.ErrClosedPipe) {
		return io.EOF
	}
	return err
}

// split hands out command lines, or the certificate up to Ctrl-Z while an
// upload is in progress.
func (p *Peer) split(data []byte, atEOF bool) (int, []byte, error) {
	if p.isUploading() {
		if i := bytes.IndexByte(data, at.CtrlZ); i >= 0 {
			return i + 1, data[:i], nil
		}
		if atEOF && len(data) > 0 {
			return len(data), data, nil
		}
		return 0, nil, nil
	}
	return at.Splitter(data, atEOF)
}

func (p *Peer) isUploading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uploading
}

func (p *Peer) upload(cert []byte) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.certificate = append([]byte(nil), cert...)
	p.uploading = false
	return lines("OK")
}

func (p *Peer) answer(line string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	lower := strings.ToLower(line)
	if !strings.HasPrefix(lower, at.CommandPrefix) {
		return lines("ERROR")
	}
	cmd := line[len(at.CommandPrefix):]
	p.commands = append(p.commands, cmd)

	if n := p.Errors[cmd]; n > 0 {
		p.Errors[cmd] = n - 1
		return lines("ERROR")
	}

	switch {
	case cmd == "cereg?":
		p.queries++
		if p.queries <= p.RegisterAfter {
			return lines("+CEREG: 1,2", "OK")
		}
		return lines("+CEREG: 1,1", "OK")
	case cmd == "cclk?":
		return lines("+CCLK: "+or(p.Clock, "2023/03/26,16:32:07GMT-4"), "OK")
	case cmd == "qccid":
		return lines("+QCCID: "+or(p.CCID, "89882280666027595366"), "OK")
	case cmd == "cbc":
		return lines("+CBC: "+or(p.Battery, "0,78,3802"), "OK")
	case strings.HasPrefix(cmd, "qsslcfg=") && strings.Contains(cmd, `"cacert"`):
		p.uploading = true
		return "> "
	case strings.HasPrefix(cmd, "qmtopen="):
		return lines("OK", "+QMTOPEN: 0,0")
	case strings.HasPrefix(cmd, "qmtconn="):
		return lines("OK", "+QMTCONN: 0,0,0")
	case strings.HasPrefix(cmd, "qmtpub="):
		p.published = append(p.published, payload(cmd))
		return lines("OK", "+QMTPUB: 0,0,0")
	case strings.HasPrefix(cmd, "qmtclose="):
		return lines("OK", "+QMTCLOSE: 0,0")
	case cmd == "qsclk=1":
		if p.Silent {
			return lines("OK")
		}
		return lines("OK", fmt.Sprintf("+QNBIOTEVENT: %q", at.EnterPSM))
	case strings.HasPrefix(cmd, "cereg="),
		strings.HasPrefix(cmd, "qsclk="),
		strings.HasPrefix(cmd, "qnbiotevent="),
		strings.HasPrefix(cmd, "cpsms="),
		strings.HasPrefix(cmd, "qsslcfg="),
		strings.HasPrefix(cmd, "qmtcfg="):
		return lines("OK")
	default:
		return lines("ERROR")
	}
}

// Commands returns the commands received so far, without the "at+" prefix.
func (p *Peer) Commands() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.commands...)
}

// Certificate returns the last uploaded certificate.
func (p *Peer) Certificate() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.certificate...)
}

// Published returns the payloads of all publish commands.
func (p *Peer) Published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.published...)
}

// payload extracts the message of qmtpub=<id>,<msgid>,<qos>,<retain>,"<topic>","<msg>".
func payload(cmd string) string {
	fields := strings.SplitN(cmd, ",", 6)
	if len(fields) < 6 {
		return ""
	}
	msg := fields[5]
	msg = strings.TrimPrefix(msg, `"`)
	msg = strings.TrimSuffix(msg, `"`)
	return msg
}

func lines(ls ...string) string {
	var b strings.Builder
	for _, l := range ls {
		b.WriteString(at.CRLF)
		b.WriteString(l)
		b.WriteString(at.CRLF)
	}
	return b.String()
}

func or(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
