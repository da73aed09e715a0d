package utils

import "github.com/google/uuid"

// GenerateConnectionID generates a unique signaling connection id
func GenerateConnectionID() string {
	return uuid.New().String()
}
