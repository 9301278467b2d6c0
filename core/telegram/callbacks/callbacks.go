// Package callbacks decodes inline button payloads.
package callbacks

import (
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Sep separates the unique key and payload fields in callback data.
const Sep = "|"

// ParseCallbackData splits Telebot's "\f<unique>|<payload>" encoding.
// The payload may be empty.
func ParseCallbackData(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw := strings.TrimPrefix(cb.Data, "\f")
	unique, payload, _ := strings.Cut(raw, Sep)
	return strings.TrimSpace(unique), payload
}

// CallbackKey returns the unique key of the current callback.
func CallbackKey(c tele.Context) string {
	k, _ := ParseCallbackData(c.Callback())
	return k
}

// CallbackPayload returns everything after the unique key.
func CallbackPayload(c tele.Context) string {
	_, p := ParseCallbackData(c.Callback())
	return p
}

// PayloadParts splits the payload into exactly n fields.
func PayloadParts(c tele.Context, n int) ([]string, error) {
	return SplitPayload(CallbackPayload(c), n)
}

// SplitPayload splits payload into exactly n non-empty fields.
func SplitPayload(payload string, n int) ([]string, error) {
	if payload == "" {
		return nil, strconv.ErrSyntax
	}
	parts := strings.Split(payload, Sep)
	if len(parts) != n {
		return nil, strconv.ErrSyntax
	}
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return nil, strconv.ErrSyntax
		}
	}
	return parts, nil
}

// ActionID parses payloads shaped "<action>|<id>".
func ActionID(payload string) (string, int64, error) {
	parts, err := SplitPayload(payload, 2)
	if err != nil {
		return "", 0, err
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, err
	}
	return parts[0], id, nil
}

// PayloadInt parses the payload as a single int.
func PayloadInt(c tele.Context) (int, error) {
	return strconv.Atoi(CallbackPayload(c))
}

// Data joins fields into a payload for markup.Data.
func Data(fields ...string) string {
	return strings.Join(fields, Sep)
}
