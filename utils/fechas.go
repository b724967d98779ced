package utils

import (
	"fmt"
	"strings"
	"time"
)

// DateFormat is the plain date layout accepted in forms.
const DateFormat = "2006-01-02"

// ParseFecha accepts a plain date or an RFC 3339 timestamp. An empty
// string yields nil.
func ParseFecha(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(DateFormat, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, use %s or RFC 3339", s, DateFormat)
	}
	return &t, nil
}
