package callbacks

import "strings"

// SplitKey splits "key_payload" at the first underscore. Data without an
// underscore is all key.
func SplitKey(data string) (key, payload string) {
	key, payload, _ = strings.Cut(data, "_")
	return key, payload
}

// SplitLast splits s at the last occurrence of sep. Both halves must be
// non-empty for ok to be true.
func SplitLast(s, sep string) (head, tail string, ok bool) {
	idx := strings.LastIndex(s, sep)
	if idx <= 0 || idx+len(sep) >= len(s) {
		return "", "", false
	}
	return s[:idx], s[idx+len(sep):], true
}

// minSecretLen is the shortest trailing segment Redact treats as a token.
const minSecretLen = 8

// Redact masks a trailing "_<token>" segment in data so invite tokens stay
// out of logs. Words of free text are handled one by one.
func Redact(data string) string {
	fields := strings.Fields(data)
	changed := false
	for i, f := range fields {
		head, tail, ok := SplitLast(f, "_")
		if !ok || len(tail) < minSecretLen || !isToken(tail) {
			continue
		}
		fields[i] = head + "_***"
		changed = true
	}
	if !changed {
		return data
	}
	return strings.Join(fields, " ")
}

func isToken(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '-':
		default:
			return false
		}
	}
	return true
}
