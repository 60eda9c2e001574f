package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateRunID generates a sweep run ID with a timestamp prefix and a
// random uuid suffix, e.g. "sweep-20260101-120000-1a2b3c4d".
func GenerateRunID() string {
	timestamp := time.Now().UTC().Format("20060102-150405")
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("sweep-%s-%s", timestamp, suffix)
}

// ValidateRunID reports whether id can be used as a run identifier in URLs
// and log attributes.
func ValidateRunID(id string) error {
	if id == "" {
		return fmt.Errorf("run id cannot be empty")
	}
	if len(id) > 128 {
		return fmt.Errorf("run id cannot be longer than 128 characters")
	}
	if strings.ContainsAny(id, "/:?# \t\n") {
		return fmt.Errorf("run id cannot contain '/', ':', '?', '#' or whitespace")
	}
	return nil
}
