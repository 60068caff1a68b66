package sheets

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"time"

	"libraquant/internal/domain"
)

// embeddedJSON finds the outermost object or array inside noisy output
var embeddedJSON = regexp.MustCompile(`(?s)(\{.*\}|\[.*\])`)

var errNullBody = errors.New("empty response")

// ParseSnapshot decodes a raw response body into a snapshot
func ParseSnapshot(body []byte) (*domain.Snapshot, error) {
	return parseSnapshotAt(body, time.Now())
}

func parseSnapshotAt(body []byte, now time.Time) (*domain.Snapshot, error) {
	if looksLikeHTML(body) {
		return nil, &domain.FormatError{Reason: domain.FormatBlocked}
	}

	doc, err := extractJSON(bytes.TrimSpace(body))
	if err != nil {
		return nil, &domain.FormatError{Reason: domain.FormatMalformed, Err: err}
	}

	// A bare array has no named collections
	if doc[0] == '[' {
		return normalize(&rawSnapshot{}, now), nil
	}

	var raw rawSnapshot
	if err := json.Unmarshal(doc, &raw); err != nil {
		return nil, &domain.FormatError{Reason: domain.FormatMalformed, Err: err}
	}
	return normalize(&raw, now), nil
}

// looksLikeHTML reports a sign-in or error page served instead of data
func looksLikeHTML(body []byte) bool {
	lower := bytes.ToLower(body)
	return bytes.Contains(lower, []byte("<!doctype")) || bytes.Contains(lower, []byte("<html"))
}

// extractJSON returns the strict document, or the first embedded one
func extractJSON(body []byte) ([]byte, error) {
	if json.Valid(body) {
		if bytes.Equal(body, []byte("null")) {
			return nil, errNullBody
		}
		if body[0] != '{' && body[0] != '[' {
			return nil, errors.New("response is not an object")
		}
		return body, nil
	}

	match := embeddedJSON.Find(body)
	if match == nil {
		return nil, errors.New("no JSON document in response")
	}
	if !json.Valid(match) {
		return nil, errors.New("invalid JSON structure")
	}
	return match, nil
}
