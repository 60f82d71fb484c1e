package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catboxd/ircd/internal/message"
	"github.com/catboxd/ircd/internal/replicate"
	"github.com/catboxd/ircd/internal/store"
)

// fakeSocket records every line written to it, standing in for
// supervisor.Conn in assertions.
type fakeSocket struct {
	lines []string
}

func (f *fakeSocket) WriteLine(line string) error {
	f.lines = append(f.lines, line)
	return nil
}

func newTestContext(serverName string) (*Context, *store.Store) {
	s := store.New(serverName)
	return &Context{
		Store:        s,
		Fabric:       replicate.New(s),
		ServerName:   serverName,
		OperPassword: "opersecret",
		Created:      "today",
		Version:      "test-1.0",
		Motd:         []string{"welcome"},
	}, s
}

func newTestClient(s *store.Store, nick, user string) (*store.Client, *fakeSocket) {
	sock := &fakeSocket{}
	c := store.NewClient(nick, user, "127.0.0.1", s.Self.Servername(), nick+" Realname", "", sock)
	s.AddClient(c)
	return c, sock
}

func gen(line string) message.Generic {
	g, err := message.ParseLine(line + "\r\n")
	if err != nil {
		panic(err)
	}
	return g
}

// TestInviteOnlyJoinScenario: Alice sets #x +i, invites Bob, Bob's JOIN
// succeeds, Carol's JOIN is refused.
func TestInviteOnlyJoinScenario(t *testing.T) {
	ctx, _ := newTestContext("irc.example.org")
	alice, _ := newTestClient(ctx.Store, "Alice", "alice")
	bob, _ := newTestClient(ctx.Store, "Bob", "bob")
	carol, _ := newTestClient(ctx.Store, "Carol", "carol")

	out := Client(ctx, alice, message.KindJoin, gen("JOIN #x"))
	require.False(t, out.Quit)

	out = Client(ctx, alice, message.KindMode, gen("MODE #x +i"))
	require.False(t, out.Quit)
	ch, ok := ctx.Store.GetChannel("#x")
	require.True(t, ok)
	require.True(t, ch.InviteOnly())

	out = Client(ctx, alice, message.KindInvite, gen("INVITE Bob #x"))
	require.False(t, out.Quit)
	require.True(t, bob.HasInvite("#x"))

	out = Client(ctx, bob, message.KindJoin, gen("JOIN #x"))
	require.False(t, out.Quit)
	require.True(t, ch.HasMember(store.CanonicalNick("Bob")))

	out = Client(ctx, carol, message.KindJoin, gen("JOIN #x"))
	require.Len(t, out.Lines, 1)
	assert.Contains(t, out.Lines[0], message.ErrInviteOnlyChan)
}

// TestKickRemovesMemberAndDestroysEmptyChannel: KICK removes the victim,
// and once the kicker, the last member, parts, the channel is destroyed.
func TestKickRemovesMemberAndDestroysEmptyChannel(t *testing.T) {
	ctx, _ := newTestContext("irc.example.org")
	alice, _ := newTestClient(ctx.Store, "Alice", "alice")
	bob, bobSock := newTestClient(ctx.Store, "Bob", "bob")

	Client(ctx, alice, message.KindJoin, gen("JOIN #y"))
	Client(ctx, bob, message.KindJoin, gen("JOIN #y"))

	out := Client(ctx, alice, message.KindKick, gen("KICK #y Bob :bye"))
	require.False(t, out.Quit)
	assert.NotEmpty(t, bobSock.lines)
	assert.Empty(t, bob.Channels())

	Client(ctx, alice, message.KindPart, gen("PART #y"))
	_, exists := ctx.Store.GetChannel("#y")
	assert.False(t, exists, "channel with zero members must be destroyed")
}

// TestKickRefusesNonOp checks that a KICK from a non-op is refused with
// ERR_CHANOPRIVSNEEDED.
func TestKickRefusesNonOp(t *testing.T) {
	ctx, _ := newTestContext("irc.example.org")
	alice, _ := newTestClient(ctx.Store, "Alice", "alice")
	bob, _ := newTestClient(ctx.Store, "Bob", "bob")
	Client(ctx, alice, message.KindJoin, gen("JOIN #z"))
	Client(ctx, bob, message.KindJoin, gen("JOIN #z"))

	out := Client(ctx, bob, message.KindKick, gen("KICK #z Alice :no"))
	require.Len(t, out.Lines, 1)
	assert.Contains(t, out.Lines[0], message.ErrChanOPrivsNeeded)
}

// TestPrivmsgToRemoteClientRoutesOnceWithNoLocalDelivery: a PRIVMSG to a
// client homed on another peer is routed to that peer's socket exactly
// once and never delivered locally (the recipient is a data client with
// no socket here).
func TestPrivmsgToRemoteClientRoutesOnceWithNoLocalDelivery(t *testing.T) {
	ctx, s := newTestContext("s1.example.org")
	alice, _ := newTestClient(s, "Alice", "alice")

	peerSock := &fakeSocket{}
	peer := store.NewPeerLink("s2.example.org", 1, "", peerSock)
	s.AddPeer(peer)

	// Bob is a data client homed on s2, reachable only via replication: no
	// local socket.
	bob := store.NewClient("Bob", "bob", "h", "s2.example.org", "Bob", "", nil)
	s.AddClient(bob)

	out := Client(ctx, alice, message.KindPrivmsg, gen("PRIVMSG Bob :hi"))
	assert.Empty(t, out.Lines)
	require.Len(t, peerSock.lines, 1)
	assert.Contains(t, peerSock.lines[0], ":Alice PRIVMSG Bob :hi")
}

// TestPrivmsgAwayReplyDoesNotReplicate checks that hitting RPL_AWAY
// never forwards a line to peers.
func TestPrivmsgAwayReplyDoesNotReplicate(t *testing.T) {
	ctx, s := newTestContext("irc.example.org")
	alice, _ := newTestClient(s, "Alice", "alice")
	bob, _ := newTestClient(s, "Bob", "bob")

	peerSock := &fakeSocket{}
	s.AddPeer(store.NewPeerLink("s2.example.org", 1, "", peerSock))

	Client(ctx, bob, message.KindAway, gen("AWAY :out to lunch"))
	out := Client(ctx, alice, message.KindPrivmsg, gen("PRIVMSG Bob :hi"))
	require.Len(t, out.Lines, 1)
	assert.Contains(t, out.Lines[0], message.ReplyAway)
	assert.Empty(t, peerSock.lines, "RPL_AWAY must not replicate")
}

// TestOperRequiresMatchingUsernameAndPassword exercises OPER's gating rule.
func TestOperRequiresMatchingUsernameAndPassword(t *testing.T) {
	ctx, s := newTestContext("irc.example.org")
	alice, _ := newTestClient(s, "Alice", "alice")

	out := Client(ctx, alice, message.KindOper, gen("OPER alice wrongpass"))
	require.Len(t, out.Lines, 1)
	assert.Contains(t, out.Lines[0], message.ErrPasswdMismatch)
	assert.False(t, alice.Operator())

	out = Client(ctx, alice, message.KindOper, gen("OPER alice opersecret"))
	require.Len(t, out.Lines, 1)
	assert.Contains(t, out.Lines[0], message.ReplyYoureOper)
	assert.True(t, alice.Operator())
}

// TestChannelLimitNeverExceeded: a channel with a limit never admits a
// member past the cap.
func TestChannelLimitNeverExceeded(t *testing.T) {
	ctx, s := newTestContext("irc.example.org")
	alice, _ := newTestClient(s, "Alice", "alice")
	bob, _ := newTestClient(s, "Bob", "bob")
	carol, _ := newTestClient(s, "Carol", "carol")

	Client(ctx, alice, message.KindJoin, gen("JOIN #cap"))
	Client(ctx, alice, message.KindMode, gen("MODE #cap +l 1"))

	Client(ctx, bob, message.KindJoin, gen("JOIN #cap"))
	ch, _ := s.GetChannel("#cap")
	assert.False(t, ch.HasMember(store.CanonicalNick("Bob")))

	out := Client(ctx, carol, message.KindJoin, gen("JOIN #cap"))
	require.Len(t, out.Lines, 1)
	assert.Contains(t, out.Lines[0], message.ErrChannelIsFull)
	assert.False(t, ch.HasMember(store.CanonicalNick("Carol")))
	assert.Equal(t, 1, ch.MemberCount())
}

// TestRegisteredOperatorReacquiresOpOnRejoin: a registered operator
// automatically reacquires op on rejoin.
func TestRegisteredOperatorReacquiresOpOnRejoin(t *testing.T) {
	ctx, s := newTestContext("irc.example.org")
	alice, _ := newTestClient(s, "Alice", "alice")

	Client(ctx, alice, message.KindJoin, gen("JOIN #r"))
	ch, _ := s.GetChannel("#r")
	require.True(t, ch.IsOp(store.CanonicalNick("Alice")))

	Client(ctx, alice, message.KindPart, gen("PART #r"))
	_, exists := s.GetChannel("#r")
	require.False(t, exists)

	ch.RestoreRegisteredOp(store.CanonicalNick("Alice"))
	s.Channels.Set(store.CanonicalNick("#r"), ch)

	Client(ctx, alice, message.KindJoin, gen("JOIN #r"))
	require.True(t, ch.IsOp(store.CanonicalNick("Alice")))
}

// TestFailedCommandNeverReplicates is the replication-suppression property:
// a command refused by local authorization must not write a single line to
// any peer socket.
func TestFailedCommandNeverReplicates(t *testing.T) {
	ctx, s := newTestContext("irc.example.org")
	alice, _ := newTestClient(s, "Alice", "alice")
	bob, _ := newTestClient(s, "Bob", "bob")

	peerSock := &fakeSocket{}
	s.AddPeer(store.NewPeerLink("s2.example.org", 1, "", peerSock))

	Client(ctx, alice, message.KindJoin, gen("JOIN #q"))
	peerSock.lines = nil

	// Bob is not an op: every one of these must fail and stay local.
	Client(ctx, bob, message.KindJoin, gen("JOIN #q"))
	peerSock.lines = nil
	Client(ctx, bob, message.KindMode, gen("MODE #q +m"))
	Client(ctx, bob, message.KindKick, gen("KICK #q Alice :no"))
	ch, _ := s.GetChannel("#q")
	ch.SetTopicOpsOnly(true)
	Client(ctx, bob, message.KindTopic, gen("TOPIC #q :newtopic"))

	assert.Empty(t, peerSock.lines, "failed commands must not replicate")
}

// TestModeSetIsIdempotent checks that re-applying an identical mode
// change yields identical state and no extra traffic to members or peers.
func TestModeSetIsIdempotent(t *testing.T) {
	ctx, s := newTestContext("irc.example.org")
	alice, _ := newTestClient(s, "Alice", "alice")
	bob, bobSock := newTestClient(s, "Bob", "bob")

	peerSock := &fakeSocket{}
	s.AddPeer(store.NewPeerLink("s2.example.org", 1, "", peerSock))

	Client(ctx, alice, message.KindJoin, gen("JOIN #m"))
	Client(ctx, bob, message.KindJoin, gen("JOIN #m"))
	Client(ctx, alice, message.KindMode, gen("MODE #m +im"))
	ch, _ := s.GetChannel("#m")
	first := ch.ModeString()
	bobSock.lines = nil
	peerSock.lines = nil

	Client(ctx, alice, message.KindMode, gen("MODE #m +im"))
	assert.Equal(t, first, ch.ModeString())
	assert.True(t, ch.InviteOnly())
	assert.True(t, ch.Moderated())
	assert.Empty(t, bobSock.lines, "satisfied mode set must not re-broadcast")
	assert.Empty(t, peerSock.lines, "satisfied mode set must not re-replicate")
}

// TestNickChangeRekeysEverything: after NICK old->new, no container
// holds the old key.
func TestNickChangeRekeysEverything(t *testing.T) {
	ctx, s := newTestContext("irc.example.org")
	alice, _ := newTestClient(s, "Alice", "alice")

	Client(ctx, alice, message.KindJoin, gen("JOIN #n"))
	out := Client(ctx, alice, message.KindNick, gen("NICK Alicia"))
	require.False(t, out.Quit)

	_, old := s.GetClient("Alice")
	assert.False(t, old)
	renamed, ok := s.GetClient("Alicia")
	require.True(t, ok)
	assert.Equal(t, "Alicia", renamed.Nickname())

	ch, _ := s.GetChannel("#n")
	assert.False(t, ch.HasMember(store.CanonicalNick("Alice")))
	assert.True(t, ch.HasMember(store.CanonicalNick("Alicia")))
	assert.True(t, ch.IsOp(store.CanonicalNick("Alicia")))
}
