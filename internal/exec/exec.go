// Package exec implements the command executor: client execution, server
// (peer) execution, and the per-command protocol semantics. Every command
// is a free handler function taking an explicit *Context, dispatched from
// the Client/Peer entry points on message.Kind.
package exec

import (
	"fmt"

	"github.com/catboxd/ircd/internal/message"
	"github.com/catboxd/ircd/internal/replicate"
	"github.com/catboxd/ircd/internal/store"
)

// Context bundles the shared state and server identity every handler
// needs. It is constructed once by internal/supervisor and passed by
// pointer to every call.
type Context struct {
	Store      *store.Store
	Fabric     *replicate.Fabric
	ServerName string

	// OperPassword gates OPER.
	OperPassword string

	// Created is rendered into RPL_CREATED (004/003-family replies).
	Created string
	Version string
	Motd    []string
}

// Outcome is a handler's result: zero or more already-encoded reply lines
// to write back to the caller, and whether the caller's connection should
// be torn down afterward. Registration upgrades are the registrar's
// business and never produced here.
type Outcome struct {
	Lines []string
	Quit  bool
}

func noop() Outcome { return Outcome{} }

func doQuit() Outcome { return Outcome{Quit: true} }

func reply(lines ...string) Outcome { return Outcome{Lines: lines} }

// numeric builds one numeric-reply line addressed to target, prefixed by
// the server name, e.g. ":irc.example.org 401 alice bob :No such nick".
func numeric(serverName, code, target string, params ...string) string {
	g := message.Generic{
		Prefix:  serverName,
		Command: code,
		Params:  append([]string{target}, params...),
	}
	line, err := g.Encode()
	if err != nil {
		// Encode only fails on a malformed trailing parameter or oversize
		// line; numeric replies are built from bounded, caller-controlled
		// text, so this would indicate a programming error upstream.
		return ""
	}
	return line
}

// fromClient builds a line prefixed by the acting client's hostmask, e.g.
// ":alice!a@host PRIVMSG #chan :hi".
func fromClient(c *store.Client, command string, params ...string) string {
	g := message.Generic{Prefix: c.Hostmask(), Command: command, Params: params}
	line, _ := g.Encode()
	return line
}

// fromServer builds a line prefixed by a bare servername, used for peer
// forwarding and server-action notices.
func fromServer(servername, command string, params ...string) string {
	g := message.Generic{Prefix: servername, Command: command, Params: params}
	line, _ := g.Encode()
	return line
}

// Client executes a command issued by a local client. It validates
// semantics, mutates the store, and returns the caller's own replies;
// replication to peers (when the command is Kind.Replicable() and the
// mutation succeeded) is performed by the handler itself via ctx.Fabric,
// not by the caller.
func Client(ctx *Context, c *store.Client, kind message.Kind, g message.Generic) Outcome {
	switch kind {
	case message.KindNick:
		return clientNick(ctx, c, g)
	case message.KindUser:
		return reply(numeric(ctx.ServerName, message.ErrAlreadyRegistred, c.Nickname(), "Unauthorized command (already registered)"))
	case message.KindPass:
		return reply(numeric(ctx.ServerName, message.ErrAlreadyRegistred, c.Nickname(), "Unauthorized command (already registered)"))
	case message.KindOper:
		return clientOper(ctx, c, g)
	case message.KindJoin:
		return clientJoin(ctx, c, g)
	case message.KindPart:
		return clientPart(ctx, c, g)
	case message.KindKick:
		return clientKick(ctx, c, g)
	case message.KindMode:
		return clientMode(ctx, c, g)
	case message.KindTopic:
		return clientTopic(ctx, c, g)
	case message.KindInvite:
		return clientInvite(ctx, c, g)
	case message.KindNames:
		return clientNames(ctx, c, g)
	case message.KindList:
		return clientList(ctx, c, g)
	case message.KindWho:
		return clientWho(ctx, c, g)
	case message.KindWhois:
		return clientWhois(ctx, c, g)
	case message.KindPrivmsg:
		return clientMessage(ctx, c, g, true)
	case message.KindNotice:
		return clientMessage(ctx, c, g, false)
	case message.KindAway:
		return clientAway(ctx, c, g)
	case message.KindQuit:
		return clientQuit(ctx, c, g)
	case message.KindPing:
		return clientPing(ctx, c, g)
	case message.KindPong:
		return noop()
	case message.KindMotd:
		return clientMotd(ctx, c)
	case message.KindLusers:
		return clientLusers(ctx, c)
	case message.KindSquit:
		return clientSquit(ctx, c, g)
	default:
		return reply(numeric(ctx.ServerName, message.ErrUnknownCommand, c.Nickname(), string(kind), "Unknown command"))
	}
}

// Welcome builds the registration burst (001-004 plus MOTD and LUSERS)
// sent once to a client immediately after registration completes.
func Welcome(ctx *Context, c *store.Client) Outcome {
	lines := []string{
		numeric(ctx.ServerName, message.ReplyWelcome, c.Nickname(), fmt.Sprintf("Welcome to the Internet Relay Network %s", c.Hostmask())),
		numeric(ctx.ServerName, message.ReplyYourHost, c.Nickname(), fmt.Sprintf("Your host is %s, running version %s", ctx.ServerName, ctx.Version)),
		numeric(ctx.ServerName, message.ReplyCreated, c.Nickname(), fmt.Sprintf("This server was created %s", ctx.Created)),
		numeric(ctx.ServerName, message.ReplyMyInfo, c.Nickname(), ctx.ServerName, ctx.Version),
	}
	lines = append(lines, clientMotd(ctx, c).Lines...)
	lines = append(lines, clientLusers(ctx, c).Lines...)
	return Outcome{Lines: lines}
}

// Peer executes a command forwarded by a directly or transitively attached
// server. Authorization is already established by the peer link itself;
// handlers mutate the store as authoritatively delivered and produce no
// reply to the origin, only further forwarding to other peers. The one
// exception is PING, which is answered with a PONG to the origin.
func Peer(ctx *Context, origin *store.PeerLink, kind message.Kind, g message.Generic) Outcome {
	switch kind {
	case message.KindNick:
		return peerNick(ctx, origin, g)
	case message.KindJoin:
		return peerJoin(ctx, origin, g)
	case message.KindPart:
		return peerPart(ctx, origin, g)
	case message.KindKick:
		return peerKick(ctx, origin, g)
	case message.KindMode:
		return peerMode(ctx, origin, g)
	case message.KindTopic:
		return peerTopic(ctx, origin, g)
	case message.KindQuit:
		return peerQuit(ctx, origin, g)
	case message.KindPrivmsg:
		return peerMessage(ctx, origin, g, message.KindPrivmsg)
	case message.KindNotice:
		return peerMessage(ctx, origin, g, message.KindNotice)
	case message.KindOper:
		return peerOper(ctx, origin, g)
	case message.KindServer:
		return peerServer(ctx, origin, g)
	case message.KindSquit:
		return peerSquit(ctx, origin, g)
	case message.KindPing:
		return reply(fromServer(ctx.ServerName, string(message.KindPong), ctx.ServerName))
	default:
		return noop()
	}
}
