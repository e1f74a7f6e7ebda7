// Package http exposes the tag service as a JSON API.
//
// This file implements utilities for parsing and validating request data.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"mapesa/internal/core"
)

const (
	maxBodyBytes = 1 << 20

	// HeaderUserID identifies the acting user
	HeaderUserID = "X-User-ID"
)

var (
	ErrMissingUser = errors.New("missing or invalid " + HeaderUserID + " header")
	ErrEmptyBody   = errors.New("request body is empty")
)

// UserIDFromRequest returns the positive user id carried in X-User-ID.
func UserIDFromRequest(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.Header.Get(HeaderUserID)), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrMissingUser
	}
	return id, nil
}

// ParseIDList parses a comma separated list of positive ids, keeping order
// and duplicates.
func ParseIDList(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("ids parameter is required")
	}

	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid id %q", strings.TrimSpace(p))
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// IsTruthy accepts the usual spellings of a boolean query flag.
func IsTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// readBody reads a bounded request body.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}
	return body, nil
}

// DecodeJSON decodes a bounded JSON body into v.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// ParseTags accepts either a single tag object or an array of them.
func ParseTags(body []byte) ([]core.NewTag, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}

	if body[0] == '[' {
		var tags []core.NewTag
		if err := json.Unmarshal(body, &tags); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		return tags, nil
	}

	var tag core.NewTag
	if err := json.Unmarshal(body, &tag); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return []core.NewTag{tag}, nil
}
