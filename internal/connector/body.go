package connector

import (
	"net/url"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type bodyKind int

const (
	bodyNone bodyKind = iota
	bodyEmptyObject
	bodyJSON
	bodyForm
)

// Body is the tri-state request payload a flow emits. An explicit empty
// object is distinct from an absent body: many settlement APIs require a
// literal "{}" for a full capture, and null is never equivalent to "{}".
type Body struct {
	kind    bodyKind
	payload []byte
}

// NoBody marks a request with no payload at all (GET syncs, some voids).
func NoBody() Body {
	return Body{kind: bodyNone}
}

// EmptyObject marks a request whose payload is the literal empty JSON object.
func EmptyObject() Body {
	return Body{kind: bodyEmptyObject, payload: []byte("{}")}
}

// JSONBody serializes v as the request payload.
func JSONBody(v any) (Body, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return Body{}, err
	}
	return Body{kind: bodyJSON, payload: payload}, nil
}

// FormBody encodes values as a form-urlencoded payload.
func FormBody(values url.Values) Body {
	return Body{kind: bodyForm, payload: []byte(values.Encode())}
}

// Bytes returns the payload and whether one is present. An empty object
// returns ("{}", true); an absent body returns (nil, false).
func (b Body) Bytes() ([]byte, bool) {
	if b.kind == bodyNone {
		return nil, false
	}
	return b.payload, true
}

// IsEmptyObject reports whether the body is the explicit empty JSON object.
func (b Body) IsEmptyObject() bool {
	return b.kind == bodyEmptyObject
}

// ContentType returns the MIME type matching the body encoding, or "" when
// there is no body.
func (b Body) ContentType() string {
	switch b.kind {
	case bodyJSON, bodyEmptyObject:
		return "application/json"
	case bodyForm:
		return "application/x-www-form-urlencoded"
	default:
		return ""
	}
}
