package http

import (
	"strings"

	"mapesa/internal/core"
)

// sanitizeInput removes control characters except tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

func sanitizeTags(tags []core.NewTag) []core.NewTag {
	out := make([]core.NewTag, len(tags))
	for i, t := range tags {
		out[i] = core.NewTag{
			Name:        sanitizeInput(t.Name),
			Description: sanitizeInput(t.Description),
			UserID:      t.UserID,
		}
	}
	return out
}

type loginResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}
