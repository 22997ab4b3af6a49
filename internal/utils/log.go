package utils

import "log"

// LogError logs a non-nil error with the failing operation's name.
func LogError(err error, context string) {
	if err != nil {
		log.Printf("Error [%s]: %v", context, err)
	}
}
