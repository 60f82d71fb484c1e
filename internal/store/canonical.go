package store

import "strings"

// CanonicalNick returns the map key a nickname is stored/looked up
// under. Nicknames compare case-insensitively, so the key is the
// lowercased form while the original casing is preserved on the Client
// itself.
func CanonicalNick(n string) string {
	return strings.ToLower(n)
}

// CanonicalChannel returns the map key a channel name is stored/looked
// up under.
func CanonicalChannel(c string) string {
	return strings.ToLower(c)
}
