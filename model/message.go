package model

// Message represents a single message fetched from an IMAP folder.
type Message struct {
	SeqNum uint32
	Size   int64
	Body   []byte
}

// HasBody reports whether the server returned a raw body for this message.
// A zero-length body still counts as a body; only a missing body section
// (permission error, expunged message, malformed store entry) yields false.
func (m Message) HasBody() bool {
	return m.Body != nil
}
