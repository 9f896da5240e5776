package snapshot

import (
	"errors"
	"fmt"
)

// ErrBrokenToken matches every DecodeError via errors.Is.
var ErrBrokenToken = errors.New("import code is broken")

// Kind classifies why a token could not be decoded.
type Kind int

const (
	// KindEmpty means nothing was pasted.
	KindEmpty Kind = iota + 1
	// KindCorrupt means the token is not decodable text, or the text stops
	// part way through. Truncation by a messaging app is the common cause.
	KindCorrupt
	// KindMalformed means the text decoded but is not a club snapshot.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindCorrupt:
		return "corrupt"
	case KindMalformed:
		return "malformed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// DecodeError is returned by Decode.
type DecodeError struct {
	Kind Kind
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("decode snapshot: %s token", e.Kind)
	}
	return fmt.Sprintf("decode snapshot: %s token: %v", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrBrokenToken) match any DecodeError.
func (e *DecodeError) Is(target error) bool {
	return target == ErrBrokenToken
}

// Guidance is a short message telling the user what to do next.
func (e *DecodeError) Guidance() string {
	switch e.Kind {
	case KindEmpty:
		return "Nothing was pasted. Copy the whole code or link and try again."
	case KindCorrupt:
		return "The code or link is incomplete. Chat apps often cut long links off at \"see more\"; " +
			"ask the sender to share the file or copy the full code instead."
	case KindMalformed:
		return "This is not club data. Make sure you copied a code exported from the club app."
	default:
		return "The import code could not be read."
	}
}
