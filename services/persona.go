package services

import (
	"os"
)

// LoadPersona reads the persona document in full and prefixes it with the
// preamble. A missing or unreadable file yields preamble + fallback.
func LoadPersona(path, preamble, fallback string) string {
	if path == "" {
		return preamble + fallback
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return preamble + fallback
	}
	return preamble + string(data)
}
