package store

import "sync"

// Socket is the write-end of a client or peer connection. Data clients
// (remote clients known only via replication) have a nil Socket. Kept as
// a narrow interface so store does not import net/bufio itself.
type Socket interface {
	WriteLine(line string) error
}

// Client is a registered IRC user, local or remote.
type Client struct {
	mu sync.RWMutex

	nickname   string
	username   string
	hostname   string
	servername string
	realname   string

	away     string
	hasAway  bool
	password string

	invisible      bool
	serverNotices  bool
	operator       bool

	channels  map[string]bool // canonical channel name -> member
	chanOps   map[string]bool // canonical channel name -> holds op here
	invited   map[string]bool // canonical channel name -> has a live invite

	sock Socket
}

// NewClient constructs a Client in its post-registration state.
func NewClient(nickname, username, hostname, servername, realname, password string, sock Socket) *Client {
	return &Client{
		nickname:   nickname,
		username:   username,
		hostname:   hostname,
		servername: servername,
		realname:   realname,
		password:   password,
		channels:   make(map[string]bool),
		chanOps:    make(map[string]bool),
		invited:    make(map[string]bool),
		sock:       sock,
	}
}

func (c *Client) Nickname() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nickname
}

func (c *Client) SetNickname(n string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nickname = n
}

func (c *Client) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username
}

func (c *Client) Hostname() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hostname
}

func (c *Client) Servername() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.servername
}

func (c *Client) Realname() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.realname
}

func (c *Client) Password() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.password
}

// IsLocal reports whether this client owns a live socket, i.e. is not a
// data client known only via replication.
func (c *Client) IsLocal() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sock != nil
}

// Write sends a line to the client's socket. No-op (and returns nil) for
// data clients.
func (c *Client) Write(line string) error {
	c.mu.RLock()
	sock := c.sock
	c.mu.RUnlock()
	if sock == nil {
		return nil
	}
	return sock.WriteLine(line)
}

// Away returns the away message and whether one is set.
func (c *Client) Away() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.away, c.hasAway
}

// SetAway sets the away message; empty msg clears it.
func (c *Client) SetAway(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if msg == "" {
		c.away = ""
		c.hasAway = false
		return
	}
	c.away = msg
	c.hasAway = true
}

func (c *Client) Invisible() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.invisible
}

func (c *Client) SetInvisible(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invisible = v
}

func (c *Client) ServerNotices() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverNotices
}

func (c *Client) SetServerNotices(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.serverNotices = v
}

func (c *Client) Operator() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.operator
}

// SetOperator grants (v true) or clears (v false) operator status.
func (c *Client) SetOperator(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.operator = v
}

// JoinChannel records membership in a channel, as an op if asOp.
func (c *Client) JoinChannel(canonical string, asOp bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels[canonical] = true
	if asOp {
		c.chanOps[canonical] = true
	}
	delete(c.invited, canonical)
}

// PartChannel removes membership in a channel.
func (c *Client) PartChannel(canonical string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.channels, canonical)
	delete(c.chanOps, canonical)
}

// Channels returns a snapshot slice of canonical channel names the client
// currently belongs to.
func (c *Client) Channels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.channels))
	for ch := range c.channels {
		out = append(out, ch)
	}
	return out
}

// IsOpOn reports whether the client holds operator role on the given
// canonical channel.
func (c *Client) IsOpOn(canonical string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.chanOps[canonical]
}

// SetOpOn sets or clears the client's operator role on a channel it is
// already a member of.
func (c *Client) SetOpOn(canonical string, op bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if op {
		c.chanOps[canonical] = true
	} else {
		delete(c.chanOps, canonical)
	}
}

// Invite records a pending invitation on a channel the client is not yet
// a member of.
func (c *Client) Invite(canonical string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invited[canonical] = true
}

// HasInvite reports whether a pending invitation exists; it does not
// consume it (JoinChannel and ClearInvite remove it).
func (c *Client) HasInvite(canonical string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.invited[canonical]
}

// ClearInvite removes a pending invitation without requiring membership.
func (c *Client) ClearInvite(canonical string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.invited, canonical)
}

// Hostmask renders the nick!user@host prefix form used in message prefixes.
func (c *Client) Hostmask() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nickname + "!" + c.username + "@" + c.hostname
}
