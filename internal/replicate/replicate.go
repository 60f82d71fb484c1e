// Package replicate implements the replication fabric: forwarding a
// command's canonical wire form to peer links, and the SQUIT cascade that
// tears down a lost peer's subtree.
package replicate

import (
	"github.com/catboxd/ircd/internal/store"
)

// Fabric is the replication entry point. It holds no state of its own;
// every operation reads the live Store so link topology changes (new
// peers, SQUIT) are reflected on the next call.
type Fabric struct {
	Store *store.Store
}

// New constructs a Fabric bound to s.
func New(s *store.Store) *Fabric {
	return &Fabric{Store: s}
}

// ToAllPeers writes line to every hopcount-1 (directly attached) PeerLink.
func (f *Fabric) ToAllPeers(line string) {
	for _, p := range f.Store.Peers.Values() {
		if !p.IsDirect() {
			continue
		}
		_ = p.Write(line)
	}
}

// ToAllPeersExcept is ToAllPeers, skipping the named origin server, to
// avoid echoing a peer's own message back to it.
func (f *Fabric) ToAllPeersExcept(line, originServername string) {
	for _, p := range f.Store.Peers.Values() {
		if !p.IsDirect() || p.Servername() == originServername {
			continue
		}
		_ = p.Write(line)
	}
}

// RouteToPeer writes line to the directly attached PeerLink that either is
// targetServername itself, or is the root of targetServername's uplink
// chain. uplinkHint, if non-empty, names the known-correct direct peer and
// lets PRIVMSG skip the chain walk.
func (f *Fabric) RouteToPeer(line, targetServername, uplinkHint string) {
	if uplinkHint != "" {
		if p, ok := f.Store.GetPeer(uplinkHint); ok && p.IsDirect() {
			_ = p.Write(line)
			return
		}
	}

	if p, ok := f.Store.GetPeer(targetServername); ok {
		if p.IsDirect() {
			_ = p.Write(line)
			return
		}
		// Transitive: walk the uplink chain to its directly attached root.
		cur := p
		for {
			up := cur.Uplink()
			if up == "" {
				return
			}
			next, ok := f.Store.GetPeer(up)
			if !ok {
				return
			}
			if next.IsDirect() {
				_ = next.Write(line)
				return
			}
			cur = next
		}
	}
}

// SquitCascade detaches root and every descendant whose uplink chain
// includes it, quits every locally-held client homed on any detached peer
// (calling notifyQuit for each one before removing it), and
// returns the set of detached servernames so the caller can also forward
// the SQUIT onward. It does not itself forward SQUIT to other peers or
// write to the departing peer's own socket; that is the caller's job.
func (f *Fabric) SquitCascade(root string, notifyQuit func(c *store.Client, reason string)) []string {
	lost := f.Store.Descendants(root)
	names := make(map[string]bool, len(lost)+1)
	names[root] = true
	for _, p := range lost {
		names[p.Servername()] = true
	}

	for _, c := range f.Store.ClientsHomedOn(names) {
		notifyQuit(c, "Connection to server lost")
		f.Store.RemoveClient(c)
	}

	out := make([]string, 0, len(names))
	for name := range names {
		f.Store.RemovePeer(name)
		out = append(out, name)
	}
	return out
}
