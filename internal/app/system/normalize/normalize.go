// internal/app/system/normalize/normalize.go
// Package normalize cleans user-supplied names, free text and id lists
// before they reach a store.
package normalize

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/microcosm-cc/bluemonday"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// strict drops every tag; group names and descriptions are rendered as text
// by the chat provider and by the client.
var strict = bluemonday.StrictPolicy()

// Name trims s and collapses internal runs of whitespace.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// PlainText removes markup from s, decodes entities left behind by the
// sanitizer and trims the result.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// Len counts runes, which is how name and description limits are measured.
func Len(s string) int { return utf8.RuneCountInString(s) }

// Query folds a search query for comparison against *_ci fields.
func Query(s string) string {
	return text.Fold(strings.TrimSpace(s))
}

// ObjectID parses a hex id.
func ObjectID(hex string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(hex))
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid id %q: %w", hex, err)
	}
	return oid, nil
}

// ObjectIDs parses a list of hex ids; the first bad id fails the whole list.
func ObjectIDs(hexes []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(hexes))
	for _, h := range hexes {
		oid, err := ObjectID(h)
		if err != nil {
			return nil, err
		}
		out = append(out, oid)
	}
	return out, nil
}

// UniqueIDs returns ids without duplicates and without any id in exclude,
// keeping first-seen order.
func UniqueIDs(ids []primitive.ObjectID, exclude ...primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(ids)+len(exclude))
	for _, x := range exclude {
		seen[x] = struct{}{}
	}
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Hexes renders ids as hex strings, the form the chat provider uses.
func Hexes(ids []primitive.ObjectID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Hex()
	}
	return out
}
