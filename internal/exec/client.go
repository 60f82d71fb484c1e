package exec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/catboxd/ircd/internal/message"
	"github.com/catboxd/ircd/internal/mode"
	"github.com/catboxd/ircd/internal/store"
)

// serverNotice writes line to every local client that has enabled the 's'
// (receives-server-notices) user mode. Used for the RPL_NICKCHANGE and
// RPL_NICKOUT server-action notices, which carry no real numeric.
func serverNotice(ctx *Context, line string) {
	ctx.Store.Clients.ForEach(func(_ string, cl *store.Client) {
		if cl.ServerNotices() {
			_ = cl.Write(line)
		}
	})
}

// broadcastChannel writes line to every local member of ch except the
// canonical nicks in exclude.
func broadcastChannel(ctx *Context, ch *store.Channel, line string, exclude ...string) {
	skip := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		skip[e] = true
	}
	for canonical := range ch.Members() {
		if skip[canonical] {
			continue
		}
		if cl, ok := ctx.Store.GetClient(canonical); ok {
			_ = cl.Write(line)
		}
	}
}

func errReply(ctx *Context, nick, code string, params ...string) Outcome {
	return reply(numeric(ctx.ServerName, code, nick, params...))
}

// nickFromPrefix extracts the bare nickname from a message prefix, which
// may be either ":nick" or the full ":nick!user@host" hostmask form.
func nickFromPrefix(prefix string) string {
	if i := strings.IndexByte(prefix, '!'); i >= 0 {
		return prefix[:i]
	}
	return prefix
}

// forward builds the canonical tree-bound form of a client command:
// ":nick CMD …" with the bare acting nickname as prefix. Local channel
// broadcasts use fromClient's hostmask prefix instead.
func forward(nick, command string, params ...string) string {
	g := message.Generic{Prefix: nick, Command: command, Params: params}
	l, _ := g.Encode()
	return l
}

// clientNick handles NICK issued by an already-registered client.
func clientNick(ctx *Context, c *store.Client, g message.Generic) Outcome {
	n, err := message.NickFromGeneric(g)
	if err != nil {
		return errReply(ctx, c.Nickname(), err.Code, err.Detail)
	}
	oldNick := c.Nickname()
	if store.CanonicalNick(n.Nickname) == store.CanonicalNick(oldNick) {
		// Case-only rename: always legal, no collision possible against self.
	} else if _, live := ctx.Store.GetClient(n.Nickname); live {
		return errReply(ctx, oldNick, message.ErrNicknameInUse, n.Nickname)
	} else if _, taken := ctx.Store.GetAccount(n.Nickname); taken {
		// Accounts collide too: an offline account holder keeps its nick.
		return errReply(ctx, oldNick, message.ErrNicknameInUse, n.Nickname)
	}

	oldPrefix := c.Hostmask()
	ctx.Store.RenameClient(c, n.Nickname)
	serverNotice(ctx, fromServer(ctx.ServerName, message.ReplyNickChange, oldNick+" -> "+n.Nickname))

	nickLine := forward(oldPrefix, string(message.KindNick), n.Nickname)
	for _, chName := range c.Channels() {
		if ch, ok := ctx.Store.GetChannel(chName); ok {
			broadcastChannel(ctx, ch, nickLine, store.CanonicalNick(n.Nickname))
		}
	}

	ctx.Fabric.ToAllPeers(forward(oldNick, string(message.KindNick), n.Nickname))
	return reply(nickLine)
}

// peerNick handles a NICK forwarded by a peer.
func peerNick(ctx *Context, origin *store.PeerLink, g message.Generic) Outcome {
	oldNick := nickFromPrefix(g.Prefix)
	n, err := message.NickFromGeneric(g)
	if err != nil {
		return noop()
	}
	c, ok := ctx.Store.GetClient(oldNick)
	if !ok {
		return noop()
	}
	oldPrefix := c.Hostmask()
	ctx.Store.RenameClient(c, n.Nickname)

	nickLine := forward(oldPrefix, string(message.KindNick), n.Nickname)
	for _, chName := range c.Channels() {
		if ch, ok := ctx.Store.GetChannel(chName); ok {
			broadcastChannel(ctx, ch, nickLine, store.CanonicalNick(n.Nickname))
		}
	}
	ctx.Fabric.ToAllPeersExcept(forward(oldNick, string(message.KindNick), n.Nickname), origin.Servername())
	return noop()
}

// clientOper grants server-operator status.
func clientOper(ctx *Context, c *store.Client, g message.Generic) Outcome {
	o, err := message.OperFromGeneric(g)
	if err != nil {
		return errReply(ctx, c.Nickname(), err.Code, err.Detail)
	}
	if o.Username != c.Username() || o.Password != ctx.OperPassword {
		return errReply(ctx, c.Nickname(), message.ErrPasswdMismatch, "Password incorrect")
	}
	c.SetOperator(true)
	ctx.Fabric.ToAllPeers(forward(c.Nickname(), string(message.KindMode), c.Nickname(), "+o"))
	return reply(numeric(ctx.ServerName, message.ReplyYoureOper, c.Nickname(), "You are now an IRC operator"))
}

func peerOper(ctx *Context, origin *store.PeerLink, g message.Generic) Outcome {
	m, err := message.ModeFromGeneric(g)
	if err != nil {
		return noop()
	}
	if c, ok := ctx.Store.GetClient(m.Target); ok {
		c.SetOperator(true)
	}
	ctx.Fabric.ToAllPeersExcept(line(g), origin.Servername())
	return noop()
}

// clientJoin handles JOIN for each (channel, key) pair in the request.
func clientJoin(ctx *Context, c *store.Client, g message.Generic) Outcome {
	j, err := message.JoinFromGeneric(g)
	if err != nil {
		return errReply(ctx, c.Nickname(), err.Code, err.Detail)
	}

	var lines []string
	for _, ck := range j.Channels {
		out := joinOne(ctx, c, ck.Channel, ck.Key)
		lines = append(lines, out.Lines...)
	}
	return Outcome{Lines: lines}
}

func joinOne(ctx *Context, c *store.Client, chanName, key string) Outcome {
	canonical := store.CanonicalChannel(chanName)
	nick := c.Nickname()

	ch, created := ctx.Store.GetOrCreateChannel(chanName)
	if created {
		ch.AddMember(store.CanonicalNick(nick), nick, true)
		c.JoinChannel(canonical, true)
	} else if ch.IsInvited(store.CanonicalNick(nick)) || ch.IsRegisteredOp(store.CanonicalNick(nick)) {
		asOp := ch.IsRegisteredOp(store.CanonicalNick(nick))
		if !ch.AddMember(store.CanonicalNick(nick), nick, asOp) {
			return errReply(ctx, nick, message.ErrChannelIsFull, chanName)
		}
		c.JoinChannel(canonical, asOp)
	} else if ch.InviteOnly() {
		return errReply(ctx, nick, message.ErrInviteOnlyChan, chanName)
	} else if ch.Key() != "" && ch.Key() != key {
		return errReply(ctx, nick, message.ErrBadChannelKey, chanName)
	} else {
		if !ch.AddMember(store.CanonicalNick(nick), nick, false) {
			return errReply(ctx, nick, message.ErrChannelIsFull, chanName)
		}
		c.JoinChannel(canonical, false)
	}

	joinLine := fromClient(c, string(message.KindJoin), chanName)
	broadcastChannel(ctx, ch, joinLine, store.CanonicalNick(nick))
	ctx.Fabric.ToAllPeers(forward(nick, string(message.KindJoin), chanName))
	notifyNamesToPeers(ctx, ch, nick)

	var lines []string
	lines = append(lines, joinLine)
	for memberCanonical, display := range ch.Members() {
		prefix := ""
		if ch.IsOp(memberCanonical) {
			prefix = "@"
		} else if ch.IsVoiced(memberCanonical) {
			prefix = "+"
		}
		lines = append(lines, numeric(ctx.ServerName, message.ReplyNamReply, nick, "=", chanName, prefix+display))
	}
	lines = append(lines, numeric(ctx.ServerName, message.ReplyEndOfNames, nick, chanName, "End of /NAMES list"))

	if topic, ok := ch.Topic(); ok {
		lines = append(lines, numeric(ctx.ServerName, message.ReplyTopic, nick, chanName, topic))
	} else {
		lines = append(lines, numeric(ctx.ServerName, message.ReplyNoTopic, nick, chanName, "No topic is set"))
	}
	lines = append(lines, numeric(ctx.ServerName, message.ReplyChannelModeIs, nick, chanName, ch.ModeString()))

	return Outcome{Lines: lines}
}

// notifyNamesToPeers notifies all directly attached peers of a join with
// an "RPL_NAMREPLY ch nick" server notice.
func notifyNamesToPeers(ctx *Context, ch *store.Channel, nick string) {
	ctx.Fabric.ToAllPeers(fromServer(ctx.ServerName, message.ReplyNamReply, ch.Name(), nick))
}

func peerJoin(ctx *Context, origin *store.PeerLink, g message.Generic) Outcome {
	j, err := message.JoinFromGeneric(g)
	if err != nil {
		return noop()
	}
	c, ok := ctx.Store.GetClient(nickFromPrefix(g.Prefix))
	if !ok {
		return noop()
	}
	for _, ck := range j.Channels {
		ch, created := ctx.Store.GetOrCreateChannel(ck.Channel)
		canonical := store.CanonicalChannel(ck.Channel)
		asOp := created || ch.IsRegisteredOp(store.CanonicalNick(c.Nickname()))
		ch.AddMember(store.CanonicalNick(c.Nickname()), c.Nickname(), asOp)
		c.JoinChannel(canonical, asOp)
		joinLine := fromClient(c, string(message.KindJoin), ck.Channel)
		broadcastChannel(ctx, ch, joinLine, store.CanonicalNick(c.Nickname()))
	}
	ctx.Fabric.ToAllPeersExcept(line(g), origin.Servername())
	return noop()
}

// clientPart removes the caller from each listed channel.
func clientPart(ctx *Context, c *store.Client, g message.Generic) Outcome {
	p, err := message.PartFromGeneric(g)
	if err != nil {
		return errReply(ctx, c.Nickname(), err.Code, err.Detail)
	}
	var lines []string
	for _, chName := range p.Channels {
		ch, ok := ctx.Store.GetChannel(chName)
		if !ok {
			lines = append(lines, numeric(ctx.ServerName, message.ErrNoSuchChannel, c.Nickname(), chName))
			continue
		}
		if !ch.HasMember(store.CanonicalNick(c.Nickname())) {
			lines = append(lines, numeric(ctx.ServerName, message.ErrNotOnChannel, c.Nickname(), chName))
			continue
		}
		partLine := fromClient(c, string(message.KindPart), chName, p.Message)
		broadcastChannel(ctx, ch, partLine, store.CanonicalNick(c.Nickname()))
		ctx.Store.PartChannel(c, ch)
		lines = append(lines, partLine)
		ctx.Fabric.ToAllPeers(forward(c.Nickname(), string(message.KindPart), chName, p.Message))
	}
	return Outcome{Lines: lines}
}

func peerPart(ctx *Context, origin *store.PeerLink, g message.Generic) Outcome {
	p, err := message.PartFromGeneric(g)
	if err != nil {
		return noop()
	}
	c, ok := ctx.Store.GetClient(nickFromPrefix(g.Prefix))
	if !ok {
		return noop()
	}
	for _, chName := range p.Channels {
		ch, ok := ctx.Store.GetChannel(chName)
		if !ok {
			continue
		}
		partLine := fromClient(c, string(message.KindPart), chName, p.Message)
		broadcastChannel(ctx, ch, partLine, store.CanonicalNick(c.Nickname()))
		ctx.Store.PartChannel(c, ch)
	}
	ctx.Fabric.ToAllPeersExcept(line(g), origin.Servername())
	return noop()
}

// clientKick evicts a member; ops only, self-kick refused.
func clientKick(ctx *Context, c *store.Client, g message.Generic) Outcome {
	k, err := message.KickFromGeneric(g)
	if err != nil {
		return errReply(ctx, c.Nickname(), err.Code, err.Detail)
	}
	ch, ok := ctx.Store.GetChannel(k.Channel)
	if !ok {
		return errReply(ctx, c.Nickname(), message.ErrNoSuchChannel, k.Channel)
	}
	if !ch.IsOp(store.CanonicalNick(c.Nickname())) {
		return errReply(ctx, c.Nickname(), message.ErrChanOPrivsNeeded, k.Channel)
	}
	if store.CanonicalNick(k.Nick) == store.CanonicalNick(c.Nickname()) {
		return errReply(ctx, c.Nickname(), message.ErrSameUser, "You can't kick yourself")
	}
	victim, ok := ctx.Store.GetClient(k.Nick)
	if !ok || !ch.HasMember(store.CanonicalNick(k.Nick)) {
		return errReply(ctx, c.Nickname(), message.ErrUserNotInChannel, k.Nick, k.Channel)
	}

	kickLine := fromClient(c, string(message.KindKick), k.Channel, k.Nick, k.Comment)
	broadcastChannel(ctx, ch, kickLine)
	_ = victim.Write(kickLine)
	ctx.Store.PartChannel(victim, ch)
	ctx.Fabric.ToAllPeers(forward(c.Nickname(), string(message.KindKick), k.Channel, k.Nick, k.Comment))
	return reply(kickLine)
}

func peerKick(ctx *Context, origin *store.PeerLink, g message.Generic) Outcome {
	k, err := message.KickFromGeneric(g)
	if err != nil {
		return noop()
	}
	ch, ok := ctx.Store.GetChannel(k.Channel)
	if !ok {
		return noop()
	}
	victim, ok := ctx.Store.GetClient(k.Nick)
	if !ok {
		return noop()
	}
	kickLine := line(g)
	broadcastChannel(ctx, ch, kickLine)
	_ = victim.Write(kickLine)
	ctx.Store.PartChannel(victim, ch)
	ctx.Fabric.ToAllPeersExcept(kickLine, origin.Servername())
	return noop()
}

// clientMode dispatches to channel-mode or user-mode handling based on
// whether the target parameter is a channel name.
func clientMode(ctx *Context, c *store.Client, g message.Generic) Outcome {
	m, err := message.ModeFromGeneric(g)
	if err != nil {
		return errReply(ctx, c.Nickname(), err.Code, err.Detail)
	}
	if message.ValidChannel(m.Target) {
		return clientChannelMode(ctx, c, m)
	}
	return clientUserMode(ctx, c, m)
}

func clientChannelMode(ctx *Context, c *store.Client, m *message.Mode) Outcome {
	ch, ok := ctx.Store.GetChannel(m.Target)
	if !ok {
		return errReply(ctx, c.Nickname(), message.ErrNoSuchChannel, m.Target)
	}
	if m.ModeString == "" {
		return reply(numeric(ctx.ServerName, message.ReplyChannelModeIs, c.Nickname(), m.Target, ch.ModeString()))
	}
	if !ch.IsOp(store.CanonicalNick(c.Nickname())) {
		return errReply(ctx, c.Nickname(), message.ErrChanOPrivsNeeded, m.Target)
	}
	actions, merr := mode.ParseChannel(m.ModeString, m.Args)
	if merr != nil {
		return errReply(ctx, c.Nickname(), merr.Code, merr.Detail)
	}
	changed, ok := applyChannelModes(ctx, c, ch, actions)
	if !ok {
		return errReply(ctx, c.Nickname(), message.ErrUserNotInChannel, m.Target)
	}

	modeParams := message.Mode{Target: m.Target, ModeString: m.ModeString, Args: m.Args}.ToGeneric().Params
	modeLine := fromClient(c, string(message.KindMode), modeParams...)
	// A mode set that is already satisfied mutates nothing, so nobody else
	// needs to hear about it.
	if changed {
		broadcastChannel(ctx, ch, modeLine, store.CanonicalNick(c.Nickname()))
		ctx.Fabric.ToAllPeers(forward(c.Nickname(), string(message.KindMode), modeParams...))
	}
	return reply(modeLine)
}

// applyChannelModes applies each action to ch/c's membership. ok is false
// if an 'o'/'v' action targeted a nick not in the channel; changed reports
// whether any effective state actually differed, so callers can suppress
// broadcast and replication of an already-satisfied mode set.
func applyChannelModes(ctx *Context, actor *store.Client, ch *store.Channel, actions []mode.Action) (changed, ok bool) {
	for _, a := range actions {
		switch {
		case a.Letter == 'o':
			target := store.CanonicalNick(a.Arg)
			if !ch.HasMember(target) {
				return changed, false
			}
			// A creator seat is op without being registered, so +o on it
			// still changes state (it records the registration).
			if ch.IsOp(target) != a.Add || (a.Add && !ch.IsRegisteredOp(target)) {
				ch.SetOp(target, a.Add)
				changed = true
			}
		case a.Letter == 'v':
			target := store.CanonicalNick(a.Arg)
			if !ch.HasMember(target) {
				return changed, false
			}
			if ch.IsVoiced(target) != a.Add {
				ch.SetVoice(target, a.Add)
				changed = true
			}
		case a.Letter == 'l':
			if a.Add {
				n, err := strconv.Atoi(a.Arg)
				if err == nil && n >= ch.MemberCount() {
					if cur, has := ch.Limit(); !has || cur != n {
						ch.SetLimit(n)
						changed = true
					}
				}
			} else if _, has := ch.Limit(); has {
				ch.ClearLimit()
				changed = true
			}
		case a.Letter == 'k':
			key := ""
			if a.Add {
				key = a.Arg
			}
			if ch.Key() != key {
				ch.SetKey(key)
				changed = true
			}
		default:
			if flag, known := mode.ChannelFlag(a.Letter); known {
				if applyChannelFlag(ch, flag, a.Add) {
					changed = true
				}
			}
		}
	}
	return changed, true
}

// applyChannelFlag sets or clears one channel-wide flag, reporting whether
// the stored value actually flipped.
func applyChannelFlag(ch *store.Channel, flag uint32, add bool) bool {
	var get func() bool
	var set func(bool)
	switch flag {
	case mode.ChanPrivate:
		get, set = ch.Private, ch.SetPrivate
	case mode.ChanSecret:
		get, set = ch.Secret, ch.SetSecret
	case mode.ChanInviteOnly:
		get, set = ch.InviteOnly, ch.SetInviteOnly
	case mode.ChanTopicOpsOnly:
		get, set = ch.TopicOpsOnly, ch.SetTopicOpsOnly
	case mode.ChanNoMsgOutside:
		get, set = ch.NoMsgOutside, ch.SetNoMsgOutside
	case mode.ChanModerated:
		get, set = ch.Moderated, ch.SetModerated
	default:
		return false
	}
	if get() == add {
		return false
	}
	set(add)
	return true
}

func clientUserMode(ctx *Context, c *store.Client, m *message.Mode) Outcome {
	if store.CanonicalNick(m.Target) != store.CanonicalNick(c.Nickname()) {
		return errReply(ctx, c.Nickname(), message.ErrUsersDontMatch, "Cannot change mode for other users")
	}
	actions, merr := mode.ParseUser(m.ModeString)
	if merr != nil {
		return errReply(ctx, c.Nickname(), merr.Code, merr.Detail)
	}
	for _, a := range actions {
		switch a.Letter {
		case 'i':
			c.SetInvisible(a.Add)
		case 's':
			c.SetServerNotices(a.Add)
		case 'o':
			if a.Add {
				// Acquisition is OPER-only; MODE +o on oneself is a no-op.
				continue
			}
			c.SetOperator(false)
		}
	}
	modeLine := fromClient(c, string(message.KindMode), m.Target, m.ModeString)
	return reply(modeLine)
}

func peerMode(ctx *Context, origin *store.PeerLink, g message.Generic) Outcome {
	m, err := message.ModeFromGeneric(g)
	if err != nil {
		return noop()
	}
	if message.ValidChannel(m.Target) {
		if ch, ok := ctx.Store.GetChannel(m.Target); ok {
			actions, merr := mode.ParseChannel(m.ModeString, m.Args)
			if merr == nil {
				if changed, _ := applyChannelModes(ctx, nil, ch, actions); changed {
					broadcastChannel(ctx, ch, line(g))
				}
			}
		}
	} else if c, ok := ctx.Store.GetClient(m.Target); ok {
		actions, merr := mode.ParseUser(m.ModeString)
		if merr == nil {
			for _, a := range actions {
				switch a.Letter {
				case 'i':
					c.SetInvisible(a.Add)
				case 's':
					c.SetServerNotices(a.Add)
				case 'o':
					c.SetOperator(a.Add)
				}
			}
		}
	}
	ctx.Fabric.ToAllPeersExcept(line(g), origin.Servername())
	return noop()
}

// clientTopic reads or writes a channel topic.
func clientTopic(ctx *Context, c *store.Client, g message.Generic) Outcome {
	t, err := message.TopicFromGeneric(g)
	if err != nil {
		return errReply(ctx, c.Nickname(), err.Code, err.Detail)
	}
	ch, ok := ctx.Store.GetChannel(t.Channel)
	if !ok {
		return errReply(ctx, c.Nickname(), message.ErrNoSuchChannel, t.Channel)
	}
	if t.Text == nil {
		if topic, ok := ch.Topic(); ok {
			return reply(numeric(ctx.ServerName, message.ReplyTopic, c.Nickname(), t.Channel, topic))
		}
		return reply(numeric(ctx.ServerName, message.ReplyNoTopic, c.Nickname(), t.Channel, "No topic is set"))
	}
	if ch.TopicOpsOnly() && !ch.IsOp(store.CanonicalNick(c.Nickname())) {
		return errReply(ctx, c.Nickname(), message.ErrChanOPrivsNeeded, t.Channel)
	}
	ch.SetTopic(*t.Text)
	topicLine := fromClient(c, string(message.KindTopic), t.Channel, *t.Text)
	broadcastChannel(ctx, ch, topicLine, store.CanonicalNick(c.Nickname()))
	ctx.Fabric.ToAllPeers(forward(c.Nickname(), string(message.KindTopic), t.Channel, *t.Text))
	return reply(numeric(ctx.ServerName, message.ReplyTopic, c.Nickname(), t.Channel, *t.Text))
}

func peerTopic(ctx *Context, origin *store.PeerLink, g message.Generic) Outcome {
	t, err := message.TopicFromGeneric(g)
	if err != nil || t.Text == nil {
		return noop()
	}
	ch, ok := ctx.Store.GetChannel(t.Channel)
	if !ok {
		return noop()
	}
	ch.SetTopic(*t.Text)
	broadcastChannel(ctx, ch, line(g))
	ctx.Fabric.ToAllPeersExcept(line(g), origin.Servername())
	return noop()
}

// clientInvite records a pending invitation on both the channel and the
// invitee; the invitee is never pre-seated as a member, so NAMES does not
// show them before their JOIN.
func clientInvite(ctx *Context, c *store.Client, g message.Generic) Outcome {
	i, err := message.InviteFromGeneric(g)
	if err != nil {
		return errReply(ctx, c.Nickname(), err.Code, err.Detail)
	}
	ch, ok := ctx.Store.GetChannel(i.Channel)
	if !ok {
		return errReply(ctx, c.Nickname(), message.ErrNoSuchChannel, i.Channel)
	}
	if !ch.IsOp(store.CanonicalNick(c.Nickname())) {
		return errReply(ctx, c.Nickname(), message.ErrChanOPrivsNeeded, i.Channel)
	}
	if ch.HasMember(store.CanonicalNick(i.Nick)) {
		return errReply(ctx, c.Nickname(), message.ErrUserOnChannel, i.Nick, i.Channel)
	}
	invitee, ok := ctx.Store.GetClient(i.Nick)
	if !ok {
		return errReply(ctx, c.Nickname(), message.ErrNoSuchNick, i.Nick)
	}
	ch.Invite(store.CanonicalNick(i.Nick))
	invitee.Invite(store.CanonicalChannel(i.Channel))
	_ = invitee.Write(fromClient(c, string(message.KindInvite), i.Nick, i.Channel))
	return reply(numeric(ctx.ServerName, message.ReplyInviting, c.Nickname(), i.Nick, i.Channel))
}

// clientNames/List/Who/Whois are read-only. Visibility rules: secret
// channels omitted for non-members, private channels shown as name-only,
// invisible users hidden from non-ops/non-co-members.

func clientNames(ctx *Context, c *store.Client, g message.Generic) Outcome {
	n, err := message.NamesFromGeneric(g)
	if err != nil {
		return errReply(ctx, c.Nickname(), err.Code, err.Detail)
	}
	chans := n.Channels
	if len(chans) == 0 {
		ctx.Store.Channels.ForEach(func(_ string, ch *store.Channel) {
			chans = append(chans, ch.Name())
		})
	}
	var lines []string
	for _, chName := range chans {
		ch, ok := ctx.Store.GetChannel(chName)
		if !ok {
			continue
		}
		isMember := ch.HasMember(store.CanonicalNick(c.Nickname()))
		if ch.Secret() && !isMember {
			continue
		}
		for canonical, display := range ch.Members() {
			member, ok := ctx.Store.GetClient(canonical)
			if ok && member.Invisible() && !isMember && !c.Operator() {
				continue
			}
			prefix := ""
			if ch.IsOp(canonical) {
				prefix = "@"
			} else if ch.IsVoiced(canonical) {
				prefix = "+"
			}
			lines = append(lines, numeric(ctx.ServerName, message.ReplyNamReply, c.Nickname(), "=", chName, prefix+display))
		}
	}
	lines = append(lines, numeric(ctx.ServerName, message.ReplyEndOfNames, c.Nickname(), "*", "End of /NAMES list"))
	return Outcome{Lines: lines}
}

func clientList(ctx *Context, c *store.Client, g message.Generic) Outcome {
	l, err := message.ListFromGeneric(g)
	if err != nil {
		return errReply(ctx, c.Nickname(), err.Code, err.Detail)
	}
	var lines []string
	lines = append(lines, numeric(ctx.ServerName, message.ReplyListStart, c.Nickname(), "Channel", "Users  Name"))

	wanted := make(map[string]bool)
	for _, ch := range l.Channels {
		wanted[store.CanonicalChannel(ch)] = true
	}
	ctx.Store.Channels.ForEach(func(canonical string, ch *store.Channel) {
		if len(wanted) > 0 && !wanted[canonical] {
			return
		}
		isMember := ch.HasMember(store.CanonicalNick(c.Nickname()))
		if ch.Secret() && !isMember {
			return
		}
		name := ch.Name()
		topic, _ := ch.Topic()
		if ch.Private() && !isMember {
			name = ch.Name()
			topic = "Private"
		}
		lines = append(lines, numeric(ctx.ServerName, message.ReplyList, c.Nickname(), name, strconv.Itoa(ch.MemberCount()), topic))
	})
	lines = append(lines, numeric(ctx.ServerName, message.ReplyEndOfList, c.Nickname(), "End of /LIST"))
	return Outcome{Lines: lines}
}

func clientWho(ctx *Context, c *store.Client, g message.Generic) Outcome {
	w, err := message.WhoFromGeneric(g)
	if err != nil {
		return errReply(ctx, c.Nickname(), err.Code, err.Detail)
	}
	var lines []string
	emit := func(target *store.Client, chanName string) {
		if target.Invisible() && !c.Operator() && store.CanonicalNick(target.Nickname()) != store.CanonicalNick(c.Nickname()) {
			shared := chanName != "" && target.IsLocal()
			if !shared {
				return
			}
		}
		flags := "H"
		if target.Operator() {
			flags += "*"
		}
		lines = append(lines, numeric(ctx.ServerName, message.ReplyWhoReply, c.Nickname(),
			chanName, target.Username(), target.Hostname(), target.Servername(), target.Nickname(),
			flags, "0 "+target.Realname()))
	}

	if ch, ok := ctx.Store.GetChannel(w.Mask); ok {
		isMember := ch.HasMember(store.CanonicalNick(c.Nickname()))
		if !ch.Secret() || isMember {
			for canonical := range ch.Members() {
				if m, ok := ctx.Store.GetClient(canonical); ok {
					emit(m, ch.Name())
				}
			}
		}
	} else if w.Mask == "" {
		ctx.Store.Clients.ForEach(func(_ string, cl *store.Client) { emit(cl, "*") })
	} else if target, ok := ctx.Store.GetClient(w.Mask); ok {
		emit(target, "*")
	}
	lines = append(lines, numeric(ctx.ServerName, message.ReplyEndOfWho, c.Nickname(), w.Mask, "End of /WHO list"))
	return Outcome{Lines: lines}
}

func clientWhois(ctx *Context, c *store.Client, g message.Generic) Outcome {
	w, err := message.WhoisFromGeneric(g)
	if err != nil {
		return errReply(ctx, c.Nickname(), err.Code, err.Detail)
	}
	var lines []string
	for _, nick := range w.Nicks {
		target, ok := ctx.Store.GetClient(nick)
		if !ok {
			lines = append(lines, numeric(ctx.ServerName, message.ErrNoSuchNick, c.Nickname(), nick))
			continue
		}
		if target.Invisible() && !c.Operator() && !shareChannel(ctx, c, target) {
			lines = append(lines, numeric(ctx.ServerName, message.ErrNoSuchNick, c.Nickname(), nick))
			continue
		}
		lines = append(lines, numeric(ctx.ServerName, message.ReplyWhoisUser, c.Nickname(),
			target.Nickname(), target.Username(), target.Hostname(), "*", target.Realname()))
		lines = append(lines, numeric(ctx.ServerName, message.ReplyWhoisServer, c.Nickname(),
			target.Nickname(), target.Servername(), "server info"))
		if target.Operator() {
			lines = append(lines, numeric(ctx.ServerName, message.ReplyWhoisOperOn, c.Nickname(),
				target.Nickname(), "is an IRC operator"))
		}
		var chans []string
		for _, chName := range target.Channels() {
			if ch, ok := ctx.Store.GetChannel(chName); ok {
				if ch.Secret() && !shareChannel(ctx, c, target) {
					continue
				}
				prefix := ""
				if ch.IsOp(store.CanonicalNick(target.Nickname())) {
					prefix = "@"
				}
				chans = append(chans, prefix+ch.Name())
			}
		}
		if len(chans) > 0 {
			lines = append(lines, numeric(ctx.ServerName, message.ReplyWhoisChannel, c.Nickname(),
				target.Nickname(), strings.Join(chans, " ")))
		}
		lines = append(lines, numeric(ctx.ServerName, message.ReplyEndOfWhois, c.Nickname(), target.Nickname(), "End of /WHOIS list"))
	}
	return Outcome{Lines: lines}
}

func shareChannel(ctx *Context, a, b *store.Client) bool {
	for _, chName := range a.Channels() {
		if ch, ok := ctx.Store.GetChannel(chName); ok {
			if ch.HasMember(store.CanonicalNick(b.Nickname())) {
				return true
			}
		}
	}
	return false
}

// clientMessage implements PRIVMSG and NOTICE: channel or nickname
// receivers; hostmask receivers are recognized but not implemented and
// skipped. Only the first forwarded copy on a multi-target line
// replicates.
func clientMessage(ctx *Context, c *store.Client, g message.Generic, isPrivmsg bool) Outcome {
	var targets []string
	var text string
	if isPrivmsg {
		p, err := message.PrivmsgFromGeneric(g)
		if err != nil {
			return errReply(ctx, c.Nickname(), err.Code, err.Detail)
		}
		targets, text = p.Targets, p.Text
	} else {
		n, err := message.NoticeFromGeneric(g)
		if err != nil {
			return noop()
		}
		targets, text = n.Targets, n.Text
	}

	command := string(message.KindNotice)
	if isPrivmsg {
		command = string(message.KindPrivmsg)
	}

	var lines []string
	replicated := false
	for _, target := range targets {
		if target == "" {
			continue
		}
		switch {
		case message.ValidChannel(target):
			ch, ok := ctx.Store.GetChannel(target)
			if !ok {
				if isPrivmsg {
					lines = append(lines, numeric(ctx.ServerName, message.ErrNoSuchChannel, c.Nickname(), target))
				}
				continue
			}
			isMember := ch.HasMember(store.CanonicalNick(c.Nickname()))
			if ch.NoMsgOutside() && !isMember {
				if isPrivmsg {
					lines = append(lines, numeric(ctx.ServerName, message.ErrCannotSendToChan, c.Nickname(), target))
				}
				continue
			}
			if ch.Moderated() && !ch.IsOp(store.CanonicalNick(c.Nickname())) && !ch.IsVoiced(store.CanonicalNick(c.Nickname())) {
				if isPrivmsg {
					lines = append(lines, numeric(ctx.ServerName, message.ErrCannotSendToChan, c.Nickname(), target))
				}
				continue
			}
			msgLine := fromClient(c, command, target, text)
			broadcastChannel(ctx, ch, msgLine, store.CanonicalNick(c.Nickname()))
			if !replicated {
				ctx.Fabric.ToAllPeers(forward(c.Nickname(), command, target, text))
				replicated = true
			}
		case strings.HasPrefix(target, "$"):
			// Hostmask receivers are not implemented.
			continue
		default:
			recipient, ok := ctx.Store.GetClient(target)
			if !ok {
				if isPrivmsg {
					lines = append(lines, numeric(ctx.ServerName, message.ErrNoSuchNick, c.Nickname(), target))
				}
				continue
			}
			if away, has := recipient.Away(); has && isPrivmsg {
				lines = append(lines, numeric(ctx.ServerName, message.ReplyAway, c.Nickname(), target, away))
				continue
			}
			if recipient.IsLocal() {
				_ = recipient.Write(fromClient(c, command, target, text))
			} else {
				ctx.Fabric.RouteToPeer(fmt.Sprintf(":%s %s %s :%s\r\n", c.Nickname(), command, target, text), recipient.Servername(), "")
			}
			if !replicated {
				replicated = true
			}
		}
	}
	return Outcome{Lines: lines}
}

func peerMessage(ctx *Context, origin *store.PeerLink, g message.Generic, kind message.Kind) Outcome {
	var targets []string
	var text string
	if kind == message.KindPrivmsg {
		p, err := message.PrivmsgFromGeneric(g)
		if err != nil {
			return noop()
		}
		targets, text = p.Targets, p.Text
	} else {
		n, err := message.NoticeFromGeneric(g)
		if err != nil {
			return noop()
		}
		targets, text = n.Targets, n.Text
	}
	sender := nickFromPrefix(g.Prefix)
	command := string(kind)

	for _, target := range targets {
		if message.ValidChannel(target) {
			if ch, ok := ctx.Store.GetChannel(target); ok {
				c, ok := ctx.Store.GetClient(sender)
				skip := ""
				if ok {
					skip = store.CanonicalNick(c.Nickname())
				}
				broadcastChannel(ctx, ch, line(g), skip)
			}
			continue
		}
		if recipient, ok := ctx.Store.GetClient(target); ok && recipient.IsLocal() {
			msgLine := fmt.Sprintf(":%s %s %s :%s\r\n", sender, command, target, text)
			_ = recipient.Write(msgLine)
		} else if ok {
			ctx.Fabric.RouteToPeer(line(g), recipient.Servername(), "")
		}
	}
	ctx.Fabric.ToAllPeersExcept(line(g), origin.Servername())
	return noop()
}

// clientAway sets or clears the caller's away message.
func clientAway(ctx *Context, c *store.Client, g message.Generic) Outcome {
	a, err := message.AwayFromGeneric(g)
	if err != nil {
		return errReply(ctx, c.Nickname(), err.Code, err.Detail)
	}
	c.SetAway(a.Message)
	if a.Message == "" {
		return reply(numeric(ctx.ServerName, message.ReplyUnAway, c.Nickname(), "You are no longer marked as being away"))
	}
	return reply(numeric(ctx.ServerName, message.ReplyNoAway, c.Nickname(), "You have been marked as being away"))
}

// clientQuit removes the caller from every channel, broadcasts QUIT to
// peers, and tears down the connection.
func clientQuit(ctx *Context, c *store.Client, g message.Generic) Outcome {
	q, _ := message.QuitFromGeneric(g)
	quitLine := fromClient(c, string(message.KindQuit), q.Message)
	for _, chName := range c.Channels() {
		if ch, ok := ctx.Store.GetChannel(chName); ok {
			broadcastChannel(ctx, ch, quitLine, store.CanonicalNick(c.Nickname()))
		}
	}
	ctx.Store.RemoveClient(c)
	ctx.Fabric.ToAllPeers(forward(c.Nickname(), string(message.KindQuit), q.Message))
	serverNotice(ctx, fromServer(ctx.ServerName, message.ReplyNickOut, c.Nickname()))
	return doQuit()
}

func peerQuit(ctx *Context, origin *store.PeerLink, g message.Generic) Outcome {
	q, _ := message.QuitFromGeneric(g)
	c, ok := ctx.Store.GetClient(nickFromPrefix(g.Prefix))
	if !ok {
		return noop()
	}
	quitLine := fromClient(c, string(message.KindQuit), q.Message)
	for _, chName := range c.Channels() {
		if ch, ok := ctx.Store.GetChannel(chName); ok {
			broadcastChannel(ctx, ch, quitLine, store.CanonicalNick(c.Nickname()))
		}
	}
	ctx.Store.RemoveClient(c)
	ctx.Fabric.ToAllPeersExcept(quitLine, origin.Servername())
	return noop()
}

// clientPing answers a keepalive PING with PONG.
func clientPing(ctx *Context, c *store.Client, g message.Generic) Outcome {
	p, err := message.PingFromGeneric(g)
	if err != nil {
		return errReply(ctx, c.Nickname(), err.Code, err.Detail)
	}
	return reply(fromServer(ctx.ServerName, string(message.KindPong), ctx.ServerName, p.Token))
}

// clientMotd and clientLusers are the informational replies issued at the
// end of a completed registration burst.
func clientMotd(ctx *Context, c *store.Client) Outcome {
	var lines []string
	lines = append(lines, numeric(ctx.ServerName, message.ReplyMotdStart, c.Nickname(), "- "+ctx.ServerName+" Message of the day -"))
	for _, l := range ctx.Motd {
		lines = append(lines, numeric(ctx.ServerName, message.ReplyMotd, c.Nickname(), "- "+l))
	}
	lines = append(lines, numeric(ctx.ServerName, message.ReplyEndOfMotd, c.Nickname(), "End of /MOTD command"))
	return Outcome{Lines: lines}
}

func clientLusers(ctx *Context, c *store.Client) Outcome {
	nClients := ctx.Store.Clients.Len()
	nChans := ctx.Store.Channels.Len()
	return reply(
		numeric(ctx.ServerName, "251", c.Nickname(), fmt.Sprintf("There are %d users on 1 server", nClients)),
		numeric(ctx.ServerName, "254", c.Nickname(), strconv.Itoa(nChans), "channels formed"),
	)
}

// clientSquit detaches a peer (and descendants), quitting clients homed on
// the detached subtree, and forwards onward.
func clientSquit(ctx *Context, c *store.Client, g message.Generic) Outcome {
	if !c.Operator() {
		return errReply(ctx, c.Nickname(), message.ErrNoPrivileges, "Permission Denied- You're not an IRC operator")
	}
	sq, err := message.SquitFromGeneric(g)
	if err != nil {
		return errReply(ctx, c.Nickname(), err.Code, err.Detail)
	}
	if _, ok := ctx.Store.GetPeer(sq.Server); !ok {
		return errReply(ctx, c.Nickname(), message.ErrNoSuchServer, sq.Server)
	}
	detached := ctx.Fabric.SquitCascade(sq.Server, func(cl *store.Client, reason string) {
		quitLine := fromClient(cl, string(message.KindQuit), reason)
		for _, chName := range cl.Channels() {
			if ch, ok := ctx.Store.GetChannel(chName); ok {
				broadcastChannel(ctx, ch, quitLine, store.CanonicalNick(cl.Nickname()))
			}
		}
	})
	for _, name := range detached {
		ctx.Fabric.ToAllPeers(fromServer(ctx.ServerName, string(message.KindSquit), name, sq.Reason))
	}
	return noop()
}

func peerSquit(ctx *Context, origin *store.PeerLink, g message.Generic) Outcome {
	sq, err := message.SquitFromGeneric(g)
	if err != nil {
		return noop()
	}
	ctx.Fabric.SquitCascade(sq.Server, func(cl *store.Client, reason string) {
		quitLine := fromClient(cl, string(message.KindQuit), reason)
		for _, chName := range cl.Channels() {
			if ch, ok := ctx.Store.GetChannel(chName); ok {
				broadcastChannel(ctx, ch, quitLine, store.CanonicalNick(cl.Nickname()))
			}
		}
	})
	ctx.Fabric.ToAllPeersExcept(line(g), origin.Servername())
	return noop()
}

// peerServer handles a SERVER announcement forwarded by an existing peer
// link: hopcount 1 adopts the advertised name for this link; hopcount>1
// records a transitive peer with no socket.
func peerServer(ctx *Context, origin *store.PeerLink, g message.Generic) Outcome {
	s, err := message.ServerFromGeneric(g)
	if err != nil {
		return noop()
	}
	if s.HopCount == 1 {
		oldName := origin.Servername()
		origin.SetServername(s.Name)
		ctx.Store.Peers.ChangeKey(oldName, s.Name)
		return noop()
	}
	ctx.Store.AddPeer(store.NewPeerLink(s.Name, s.HopCount, origin.Servername(), nil))
	forwarded := message.Server{Name: s.Name, HopCount: s.HopCount + 1, Description: s.Description}
	fg := forwarded.ToGeneric()
	fg.Prefix = origin.Servername()
	fline, _ := fg.Encode()
	ctx.Fabric.ToAllPeersExcept(fline, origin.Servername())
	return noop()
}

// line re-encodes a generic message verbatim, preserving its original
// prefix, for federation forwarding paths that don't rewrite the prefix.
func line(g message.Generic) string {
	l, err := g.Encode()
	if err != nil {
		return ""
	}
	return l
}
