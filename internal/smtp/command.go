package smtp

import "strings"

// Command prefixes, matched case-insensitively against the start of a line.
const (
	cmdHelo     = "HELO"
	cmdMailFrom = "MAIL FROM:"
	cmdRcptTo   = "RCPT TO:"
	cmdData     = "DATA"
	cmdQuit     = "QUIT"
)

// Envelope holds the transaction state a session accumulates between
// messages. Values are overwritten by later commands and never validated.
type Envelope struct {
	Sender    string
	Recipient string
}

// Interpret maps one command-mode line to its reply, updating env for
// MAIL FROM and RCPT TO. The first matching prefix wins.
//
// Arguments are taken from a fixed offset into the original line, the
// length of the matched prefix, so a line such as "MAIL FROM :<x>" is not
// recognized. DATA is not handled here; the session intercepts it.
func Interpret(line string, env *Envelope) string {
	switch {
	case hasPrefixFold(line, cmdHelo):
		return ReplyHello
	case hasPrefixFold(line, cmdMailFrom):
		env.Sender = strings.TrimSpace(line[len(cmdMailFrom):])
		return ReplyOK
	case hasPrefixFold(line, cmdRcptTo):
		env.Recipient = strings.TrimSpace(line[len(cmdRcptTo):])
		return ReplyOK
	case isCommand(line, cmdQuit):
		return ReplyBye
	default:
		return ReplyNotImplemented
	}
}

// hasPrefixFold reports whether line begins with prefix, ignoring case.
func hasPrefixFold(line, prefix string) bool {
	return len(line) >= len(prefix) && strings.EqualFold(line[:len(prefix)], prefix)
}

// isCommand reports whether line is exactly cmd, ignoring case.
func isCommand(line, cmd string) bool {
	return strings.EqualFold(line, cmd)
}
