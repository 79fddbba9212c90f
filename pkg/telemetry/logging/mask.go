package logging

import "strings"

// Mask shortens a credential for safe logging. Long values keep a
// four-character prefix so operators can tell rotated keys apart;
// short values are fully masked.
func Mask(secret string) string {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****"
}
