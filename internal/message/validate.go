package message

import (
	"net"
	"strconv"
	"strings"
)

// ValidNick reports whether n is a syntactically valid nickname: first
// byte ASCII-alpha, remaining bytes alphanumeric or one of "-[]\`^{}"
// (the RFC 1459 character class).
func ValidNick(n string) bool {
	if len(n) == 0 {
		return false
	}
	if !isAlpha(n[0]) {
		return false
	}
	for i := 1; i < len(n); i++ {
		if !isAlphaNumeric(n[i]) && !isNickSpecial(n[i]) {
			return false
		}
	}
	return true
}

// ValidUser reports whether u is a syntactically valid username, using
// the same character class as ValidNick.
func ValidUser(u string) bool {
	return ValidNick(u)
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isAlphaNumeric(b byte) bool {
	return isAlpha(b) || isDigit(b)
}

func isNickSpecial(b byte) bool {
	switch b {
	case '-', '[', ']', '\\', '`', '^', '{', '}':
		return true
	}
	return false
}

// ValidChannel reports whether c is a syntactically valid channel name:
// starts with '#' or '&', contains no SPACE, BELL, NUL, CR, LF, or comma.
func ValidChannel(c string) bool {
	if len(c) == 0 {
		return false
	}
	if c[0] != '#' && c[0] != '&' {
		return false
	}
	for i := 1; i < len(c); i++ {
		switch c[i] {
		case ' ', '\x07', '\x00', '\r', '\n', ',':
			return false
		}
	}
	return true
}

// ValidHostname reports whether h is a valid hostname: labels of 1-63 bytes
// (ASCII alphanumeric, '-' permitted mid-label), total length <=253, with an
// optional ":port" suffix that must parse as a socket address, and an
// optional bracketed "[host]" form.
func ValidHostname(h string) bool {
	if len(h) == 0 {
		return false
	}

	host := h
	if strings.HasPrefix(host, "[") {
		end := strings.IndexByte(host, ']')
		if end < 0 {
			return false
		}
		inner := host[1:end]
		rest := host[end+1:]
		if rest != "" {
			if !strings.HasPrefix(rest, ":") || !validPort(rest[1:]) {
				return false
			}
		}
		return validHostLabels(inner)
	}

	if idx := strings.LastIndexByte(host, ':'); idx >= 0 {
		portPart := host[idx+1:]
		if validPort(portPart) {
			host = host[:idx]
		}
	}

	return validHostLabels(host)
}

func validPort(p string) bool {
	n, err := strconv.Atoi(p)
	if err != nil {
		return false
	}
	return n >= 0 && n <= 65535
}

func validHostLabels(host string) bool {
	if len(host) == 0 || len(host) > 253 {
		return false
	}
	labels := strings.Split(host, ".")
	for _, label := range labels {
		if len(label) == 0 || len(label) > 63 {
			return false
		}
		for i := 0; i < len(label); i++ {
			c := label[i]
			if !isAlphaNumeric(c) && c != '-' {
				return false
			}
		}
	}
	return true
}

// ValidHostmask reports whether m is a "$"-prefixed server/host mask: begins
// with '$', contains a '.', and the rightmost label holds no wildcard.
func ValidHostmask(m string) bool {
	if !strings.HasPrefix(m, "$") {
		return false
	}
	body := m[1:]
	if !strings.Contains(body, ".") {
		return false
	}
	lastDot := strings.LastIndexByte(body, '.')
	rightmost := body[lastDot+1:]
	return !strings.ContainsAny(rightmost, "?*")
}

// SplitText implements the "text" validator: the first parameter of a
// trailing-bearing command begins with ':'; ParseLine has already stripped
// the colon, so SplitText just re-splits on spaces for callers that want
// individual tokens while the caller that wants the whole trailing blob can
// use the parameter directly.
func SplitText(trailing string) []string {
	if trailing == "" {
		return nil
	}
	return strings.Split(trailing, " ")
}

// ParseHostPort validates "host:port" (or "[host]:port"), returning the
// parsed net.IP when host is a literal address, or nil when it's a name.
func ParseHostPort(hostport string) (ip net.IP, port int, ok bool) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return nil, 0, false
	}
	p, err := strconv.Atoi(portStr)
	if err != nil || p < 0 || p > 65535 {
		return nil, 0, false
	}
	return net.ParseIP(host), p, true
}
