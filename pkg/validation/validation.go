package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// RoomIDRegex validates room identifier format
	RoomIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// IdentityRegex validates participant identity format
	IdentityRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
)

// ValidateRoomID validates a room identifier
func ValidateRoomID(roomID string) error {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return fmt.Errorf("roomId is required")
	}
	if len(roomID) > 100 {
		return fmt.Errorf("roomId is too long (max 100 characters)")
	}
	if !RoomIDRegex.MatchString(roomID) {
		return fmt.Errorf("roomId contains invalid characters (only letters, numbers, _, - allowed)")
	}
	return nil
}

// ValidateDisplayName validates a participant display name
func ValidateDisplayName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if utf8.RuneCountInString(name) > 64 {
		return fmt.Errorf("name is too long (max 64 characters)")
	}
	return nil
}

// ValidateIdentity validates an optional client-supplied identity
func ValidateIdentity(identity string) error {
	if identity == "" {
		return nil
	}
	if len(identity) > 128 {
		return fmt.Errorf("identity is too long (max 128 characters)")
	}
	if !IdentityRegex.MatchString(identity) {
		return fmt.Errorf("identity contains invalid characters (only letters, numbers, _, -, . allowed)")
	}
	return nil
}
