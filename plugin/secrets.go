package plugin

import "strings"

// Config keys treated as secrets regardless of value.
var commonSecretKeys = map[string]bool{
	"db_password":   true,
	"password":      true,
	"access_key":    true,
	"private_key":   true,
	"client_id":     true,
	"client_secret": true,
	"refresh_token": true,
	"access_token":  true,
}

var commonSecretKeySuffixes = []string{"access_key_id"}

// Redacted replaces secret values in masked config renderings.
const Redacted = "(redacted)"

// IsSecretKey reports whether a config key matches a known secret name or
// suffix.
func IsSecretKey(name string) bool {
	if commonSecretKeys[name] {
		return true
	}
	lower := strings.ToLower(name)
	for _, suffix := range commonSecretKeySuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// MaskSecrets returns a copy of cfg with secret values replaced, safe for
// logging.
func MaskSecrets(cfg map[string]any) map[string]any {
	out := make(map[string]any, len(cfg))
	for k, v := range cfg {
		if IsSecretKey(k) {
			out[k] = Redacted
			continue
		}
		out[k] = v
	}
	return out
}

// NonSecrets returns only the non-secret entries of cfg, for use in
// request parameterization.
func NonSecrets(cfg map[string]any) map[string]any {
	out := map[string]any{}
	for k, v := range cfg {
		if !IsSecretKey(k) {
			out[k] = v
		}
	}
	return out
}
