package snapshot

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/mmynk/clubhouse/internal/models"
)

// Encode serializes s as compact JSON and wraps it in unpadded base64url, so
// the token can travel in a URL fragment, a chat message or a file.
func Encode(s models.Snapshot) (string, error) {
	data, err := marshal(s.Normalize())
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Decode reverses Encode. It also accepts the standard base64 alphabet,
// padding, embedded whitespace and tokens produced by the first version of
// the club app (base64 of percent-encoded JSON).
//
// Fields missing from the payload, or null, are absent in the result.
func Decode(token string) (models.PartialSnapshot, error) {
	var p models.PartialSnapshot

	compact := strings.Join(strings.Fields(token), "")
	if compact == "" {
		return p, &DecodeError{Kind: KindEmpty}
	}

	raw, err := decodeBase64(compact)
	if err != nil {
		return p, &DecodeError{Kind: KindCorrupt, Err: err}
	}
	if !utf8.Valid(raw) {
		return p, &DecodeError{Kind: KindCorrupt, Err: errors.New("payload is not UTF-8 text")}
	}

	text := strings.TrimSpace(string(raw))
	if isPercentEncoded(text) {
		unescaped, err := url.PathUnescape(text)
		if err != nil {
			return p, &DecodeError{Kind: KindCorrupt, Err: err}
		}
		text = strings.TrimSpace(unescaped)
	}

	if !strings.HasPrefix(text, "{") {
		return p, &DecodeError{Kind: KindMalformed, Err: errors.New("payload is not a JSON object")}
	}

	dec := json.NewDecoder(strings.NewReader(text))
	if err := dec.Decode(&p); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF) {
			// Cut-off text: the usual result of a truncated link.
			return models.PartialSnapshot{}, &DecodeError{Kind: KindCorrupt, Err: err}
		}
		return models.PartialSnapshot{}, &DecodeError{Kind: KindMalformed, Err: err}
	}
	if dec.More() {
		return models.PartialSnapshot{}, &DecodeError{Kind: KindMalformed, Err: errors.New("trailing data after snapshot")}
	}
	return p, nil
}

func marshal(s models.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// decodeBase64 accepts either alphabet, with or without padding.
func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")
	s = strings.NewReplacer("-", "+", "_", "/").Replace(s)
	return base64.RawStdEncoding.DecodeString(s)
}

// isPercentEncoded detects the legacy payload, whose opening brace was
// escaped as %7B.
func isPercentEncoded(text string) bool {
	return len(text) >= 3 && strings.EqualFold(text[:3], "%7B")
}
