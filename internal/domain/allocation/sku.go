package allocation

import "strings"

// hstToken separates the two halves of a seller SKU in the legacy
// "<base> HST <variant>" spelling used by some listings.
const hstToken = "hst"

// NormalizeSKU canonicalizes a raw seller SKU into the key format the
// inventory service indexes by. Sellers spell the same SKU three ways
// ("A#B", "A!B", "A HST B"); all of them must map to the same key.
//
// Rules, first match wins:
//  1. already contains '#': returned unchanged
//  2. contains '!': every '!' becomes '#', runs of '#' collapse to one
//  3. contains the token "HST" (case-insensitive): split on it, trim the
//     parts, drop empties, and join the rest with '#'
//  4. otherwise: the trimmed original
func NormalizeSKU(raw string) string {
	if strings.Contains(raw, "#") {
		return raw
	}

	if strings.Contains(raw, "!") {
		replaced := strings.ReplaceAll(raw, "!", "#")
		return collapseHashes(replaced)
	}

	if idx := indexHST(raw); idx >= 0 {
		parts := splitOnHST(raw)
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) >= 2 {
			return strings.Join(cleaned, "#")
		}
	}

	return strings.TrimSpace(raw)
}

// collapseHashes reduces any run of consecutive '#' to a single '#'.
func collapseHashes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevHash := false
	for _, r := range s {
		if r == '#' {
			if prevHash {
				continue
			}
			prevHash = true
		} else {
			prevHash = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// indexHST reports the first case-insensitive occurrence of "HST", or -1.
func indexHST(s string) int {
	return strings.Index(strings.ToLower(s), hstToken)
}

// splitOnHST splits s on every case-insensitive "HST" occurrence.
func splitOnHST(s string) []string {
	lower := strings.ToLower(s)
	var parts []string
	for {
		idx := strings.Index(lower, hstToken)
		if idx < 0 {
			parts = append(parts, s)
			return parts
		}
		parts = append(parts, s[:idx])
		s = s[idx+len(hstToken):]
		lower = lower[idx+len(hstToken):]
	}
}
