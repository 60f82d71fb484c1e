package store

// Store is the process-wide shared state: four independently-locked
// aggregates plus the server's own PeerLink identity.
// Lock ordering: acquire the relevant ConcurrentMap's lock before any
// Client/Channel/PeerLink element lock; when both a Channel and a Client
// lock are needed (e.g. KICK), take the Channel first; never hold two
// element locks of the same kind concurrently.
type Store struct {
	Clients  *ConcurrentMap[string, *Client]  // keyed by CanonicalNick
	Channels *ConcurrentMap[string, *Channel] // keyed by CanonicalChannel
	Accounts *ConcurrentMap[string, *ClientAccount]
	Peers    *ConcurrentMap[string, *PeerLink]

	Self *PeerLink // this server's own identity: hopcount 0, no uplink
}

// New constructs an empty Store for a server known by selfName.
func New(selfName string) *Store {
	return &Store{
		Clients:  NewConcurrentMap[string, *Client](),
		Channels: NewConcurrentMap[string, *Channel](),
		Accounts: NewConcurrentMap[string, *ClientAccount](),
		Peers:    NewConcurrentMap[string, *PeerLink](),
		Self:     NewPeerLink(selfName, 0, "", nil),
	}
}

// GetClient looks up a client by nickname (any casing).
func (s *Store) GetClient(nick string) (*Client, bool) {
	return s.Clients.Get(CanonicalNick(nick))
}

// AddClient inserts a new client, keyed by its current nickname.
func (s *Store) AddClient(c *Client) {
	s.Clients.Set(CanonicalNick(c.Nickname()), c)
}

// RemoveClient deletes a client and, for every channel it belonged to,
// removes its membership; channels left with zero members are destroyed.
func (s *Store) RemoveClient(c *Client) {
	nick := CanonicalNick(c.Nickname())
	s.Clients.Delete(nick)
	for _, chName := range c.Channels() {
		ch, ok := s.Channels.Get(chName)
		if !ok {
			continue
		}
		ch.RemoveMember(nick)
		s.destroyIfEmpty(chName, ch)
	}
}

// RenameClient moves a client to a new nickname key and re-keys its
// membership entry in every channel it belongs to, preserving op/voice
// status, so no container holds the old nick afterward.
func (s *Store) RenameClient(c *Client, newNick string) {
	oldCanonical := CanonicalNick(c.Nickname())
	newCanonical := CanonicalNick(newNick)

	for _, chName := range c.Channels() {
		if ch, ok := s.Channels.Get(chName); ok {
			ch.RenameMember(oldCanonical, newCanonical, newNick)
		}
	}

	// Registered-operator entries survive disconnects, so every channel is
	// swept, not just current memberships.
	s.Channels.ForEach(func(_ string, ch *Channel) {
		ch.RenameRegisteredOp(oldCanonical, newCanonical)
	})

	if a, ok := s.Accounts.Get(oldCanonical); ok {
		a.SetNickname(newNick)
		s.Accounts.ChangeKey(oldCanonical, newCanonical)
	}

	s.Clients.ChangeKey(oldCanonical, newCanonical)
	c.SetNickname(newNick)
}

// GetChannel looks up a channel by name (any casing).
func (s *Store) GetChannel(name string) (*Channel, bool) {
	return s.Channels.Get(CanonicalChannel(name))
}

// GetOrCreateChannel returns the existing channel, or creates and inserts a
// new empty one, reporting whether a new channel was created.
func (s *Store) GetOrCreateChannel(name string) (ch *Channel, created bool) {
	canonical := CanonicalChannel(name)
	if existing, ok := s.Channels.Get(canonical); ok {
		return existing, false
	}
	ch = NewChannel(name)
	s.Channels.Set(canonical, ch)
	return ch, true
}

// PartChannel removes client from channel's membership and destroys the
// channel if it is now empty.
func (s *Store) PartChannel(c *Client, ch *Channel) {
	canonical := CanonicalChannel(ch.Name())
	ch.RemoveMember(CanonicalNick(c.Nickname()))
	c.PartChannel(canonical)
	s.destroyIfEmpty(canonical, ch)
}

func (s *Store) destroyIfEmpty(canonical string, ch *Channel) {
	if ch.MemberCount() == 0 {
		s.Channels.Delete(canonical)
	}
}

// GetAccount looks up a persisted account by nickname.
func (s *Store) GetAccount(nick string) (*ClientAccount, bool) {
	return s.Accounts.Get(CanonicalNick(nick))
}

// AccountByUsername scans accounts for one matching username, for the
// registrar's username-collision rule. O(n) in account count; this is a
// registration-time path, not a hot one.
func (s *Store) AccountByUsername(username string) (*ClientAccount, bool) {
	var found *ClientAccount
	s.Accounts.ForEach(func(_ string, a *ClientAccount) {
		if found == nil && a.Username() == username {
			found = a
		}
	})
	return found, found != nil
}

// AddAccount inserts or replaces a persisted account.
func (s *Store) AddAccount(a *ClientAccount) {
	s.Accounts.Set(CanonicalNick(a.Nickname()), a)
}

// GetPeer looks up a peer link by servername.
func (s *Store) GetPeer(name string) (*PeerLink, bool) {
	return s.Peers.Get(name)
}

// AddPeer inserts a peer link.
func (s *Store) AddPeer(p *PeerLink) {
	s.Peers.Set(p.Servername(), p)
}

// RemovePeer deletes a single peer link by name without cascading; callers
// needing the SQUIT descendant cascade use Descendants first.
func (s *Store) RemovePeer(name string) {
	s.Peers.Delete(name)
}

// Descendants returns every peer whose uplink chain contains root,
// including root itself if present, for the SQUIT cascade.
func (s *Store) Descendants(root string) []*PeerLink {
	all := s.Peers.Values()
	byName := make(map[string]*PeerLink, len(all))
	for _, p := range all {
		byName[p.Servername()] = p
	}

	isDescendant := func(p *PeerLink) bool {
		cur := p
		for {
			if cur.Servername() == root {
				return true
			}
			up := cur.Uplink()
			if up == "" {
				return false
			}
			next, ok := byName[up]
			if !ok {
				return false
			}
			cur = next
		}
	}

	var out []*PeerLink
	for _, p := range all {
		if isDescendant(p) {
			out = append(out, p)
		}
	}
	return out
}

// ClientsHomedOn returns every client whose servername matches any of the
// given peer names, for QUIT-cascading clients on a detached peer.
func (s *Store) ClientsHomedOn(peerNames map[string]bool) []*Client {
	var out []*Client
	s.Clients.ForEach(func(_ string, c *Client) {
		if peerNames[c.Servername()] {
			out = append(out, c)
		}
	})
	return out
}
