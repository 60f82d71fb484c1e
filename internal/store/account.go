package store

import "sync"

// ClientAccount is a persisted login identity. Accounts exist iff the
// client registered with a non-empty password.
type ClientAccount struct {
	mu sync.RWMutex

	nickname string
	username string
	password string
}

// NewClientAccount constructs an account record.
func NewClientAccount(nickname, username, password string) *ClientAccount {
	return &ClientAccount{nickname: nickname, username: username, password: password}
}

// SetNickname follows a NICK change so the persisted record matches the
// clients map.
func (a *ClientAccount) SetNickname(n string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nickname = n
}

func (a *ClientAccount) Nickname() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.nickname
}

func (a *ClientAccount) Username() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.username
}

func (a *ClientAccount) Password() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.password
}

// Matches reports whether the offered username/password pair
// authenticates against this account.
func (a *ClientAccount) Matches(username, password string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.username == username && a.password == password
}
