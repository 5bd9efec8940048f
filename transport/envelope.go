package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// PendingAuthorizationText is the provider error returned while the user has
// not yet approved the login.
const PendingAuthorizationText = "No authed oidc is found"

// ErrMalformedBody is returned when a response body is not a JSON object.
var ErrMalformedBody = errors.New("malformed response body")

// Kind classifies a decoded response envelope.
type Kind uint8

const (
	// KindOther is any body that is a JSON object but neither a payload nor an error.
	KindOther Kind = iota
	// KindData carries a decoded payload.
	KindData
	// KindError carries a provider-reported error message.
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindError:
		return "error"
	default:
		return "other"
	}
}

// Response is one decoded provider response. Data is set only for KindData and
// Error only for KindError.
type Response[T any] struct {
	Kind  Kind
	Data  *T
	Error string
}

// Decode classifies body. An "error" member holding a string yields KindError.
// Otherwise the "data" member, or the whole object when there is none, is
// decoded into T; a decode failure yields KindOther. A body that is not a JSON
// object is returned as an error.
func Decode[T any](body []byte) (Response[T], error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(body, &members); err != nil || members == nil {
		return Response[T]{}, fmt.Errorf("%w: %s", ErrMalformedBody, preview(body))
	}

	if raw, ok := members["error"]; ok {
		var msg string
		if isNull(raw) || json.Unmarshal(raw, &msg) != nil {
			return Response[T]{Kind: KindOther}, nil
		}
		return Response[T]{Kind: KindError, Error: msg}, nil
	}

	payload := json.RawMessage(body)
	if raw, ok := members["data"]; ok {
		payload = raw
	}

	var data T
	if err := json.Unmarshal(payload, &data); err != nil {
		return Response[T]{Kind: KindOther}, nil
	}
	return Response[T]{Kind: KindData, Data: &data}, nil
}

// IsPendingAuthorization reports whether a provider error only means the user
// has not finished authorizing yet.
func IsPendingAuthorization(msg string) bool {
	return strings.Contains(msg, PendingAuthorizationText)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func preview(body []byte) string {
	const max = 64
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
