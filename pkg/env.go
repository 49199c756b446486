package pkg

import "os"

// Getenv returns the value of the environment variable key if it is set
// (even to an empty string) and defaultValue otherwise.
func Getenv(key, defaultValue string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	return value
}
