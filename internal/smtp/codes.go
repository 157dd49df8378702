package smtp

// crlf terminates every line the server writes.
const crlf = "\r\n"

// Replies sent by the server. Each is a single line without the trailing CRLF.
const (
	ReplyReady          = "220 %s Ready" // banner
	ReplyBye            = "221 Bye"
	ReplyHello          = "250 Hello"
	ReplyOK             = "250 OK"
	ReplyAccepted       = "250 OK: message accepted"
	ReplyStartMailInput = "354 End data with <CR><LF>.<CR><LF>"
	ReplyNotImplemented = "502 Command not implemented"
)
