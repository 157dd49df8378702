package smtp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"

	"github.com/google/uuid"

	"github.com/shineum/smtp-mailsink/internal/mailstore"
)

// mode selects how a session interprets the next input line.
type mode int

const (
	modeCommand mode = iota
	modeData
)

// dataTerminator is the lone line that ends message input.
const dataTerminator = "."

// Session represents a single client connection and runs the protocol
// state machine for it. A Session is owned by one goroutine and is never
// shared.
type Session struct {
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
	store  mailstore.Store
	banner string
	logger *slog.Logger

	mode mode
	env  Envelope
	body []string
}

// NewSession creates a new session for the given connection.
func NewSession(conn net.Conn, store mailstore.Store, banner string) *Session {
	return &Session{
		conn:   conn,
		reader: bufio.NewReader(conn),
		writer: bufio.NewWriter(conn),
		store:  store,
		banner: banner,
		logger: slog.Default().With(
			"session_id", uuid.NewString(),
			"remote_addr", conn.RemoteAddr().String(),
		),
		mode: modeCommand,
	}
}

// Handle runs the session until the client sends QUIT, the stream ends,
// or a read, write or store error occurs. The connection is closed on
// return. ctx is passed to the store and is not otherwise observed.
func (s *Session) Handle(ctx context.Context) {
	defer s.conn.Close()

	s.logger.Info("connection opened")
	defer s.logger.Info("connection closed")

	if err := s.reply(fmt.Sprintf(ReplyReady, s.banner)); err != nil {
		return
	}

	for {
		raw, err := s.reader.ReadString('\n')
		if raw == "" && err != nil {
			s.logReadError(err)
			return
		}

		if done := s.handleLine(ctx, trimLineEnding(raw)); done {
			return
		}

		// A final line without a newline was handled above; the stream is done.
		if err != nil {
			s.logReadError(err)
			return
		}
	}
}

// handleLine processes one input line and reports whether the session
// should end.
func (s *Session) handleLine(ctx context.Context, line string) bool {
	s.logger.Debug("C: " + line)

	if s.mode == modeData {
		return s.handleDataLine(ctx, line)
	}

	if isCommand(line, cmdData) {
		s.mode = modeData
		return s.reply(ReplyStartMailInput) != nil
	}

	if err := s.reply(Interpret(line, &s.env)); err != nil {
		return true
	}

	return isCommand(line, cmdQuit)
}

// handleDataLine buffers a message line, or on the terminator hands the
// buffered body to the store. A store failure ends the session without a
// reply.
func (s *Session) handleDataLine(ctx context.Context, line string) bool {
	if line != dataTerminator {
		s.body = append(s.body, line)
		return false
	}

	s.mode = modeCommand
	body := strings.Join(s.body, crlf)
	s.body = nil

	if err := s.store.Deliver(ctx, s.env.Recipient, body); err != nil {
		s.logger.Error("failed to store message",
			"store", s.store.Name(),
			"recipient", s.env.Recipient,
			"error", err,
		)
		return true
	}

	s.logger.Info("message accepted",
		"store", s.store.Name(),
		"sender", s.env.Sender,
		"recipient", s.env.Recipient,
		"size", len(body),
	)

	return s.reply(ReplyAccepted) != nil
}

// reply writes one line followed by CRLF and flushes it to the client.
func (s *Session) reply(line string) error {
	s.logger.Debug("S: " + line)

	if _, err := s.writer.WriteString(line + crlf); err != nil {
		s.logger.Warn("failed to write to client", "error", err)
		return err
	}
	if err := s.writer.Flush(); err != nil {
		s.logger.Warn("failed to flush to client", "error", err)
		return err
	}
	return nil
}

func (s *Session) logReadError(err error) {
	if errors.Is(err, io.EOF) {
		return
	}
	s.logger.Warn("connection read error", "error", err)
}

// trimLineEnding removes a trailing LF and at most one CR before it.
func trimLineEnding(raw string) string {
	line := strings.TrimSuffix(raw, "\n")
	return strings.TrimSuffix(line, "\r")
}
