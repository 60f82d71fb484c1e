package supervisor

import (
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"

	"github.com/catboxd/ircd/internal/config"
	"github.com/catboxd/ircd/internal/exec"
	"github.com/catboxd/ircd/internal/persist"
	"github.com/catboxd/ircd/internal/replicate"
	"github.com/catboxd/ircd/internal/store"
)

// Supervisor owns the listener, the shared store, and every goroutine
// spawned to serve a connection. One exists per running server process.
type Supervisor struct {
	Config *config.Config
	Store  *store.Store
	Fabric *replicate.Fabric
	Ctx    *exec.Context
	Log    *logrus.Logger

	listener   net.Listener
	wg         *conc.WaitGroup
	shutdown   chan struct{}
	closed     atomic.Bool
	persisting atomic.Bool

	mu    sync.Mutex
	conns map[*Conn]struct{}
}

// New constructs a Supervisor bound to cfg, with a fresh Store named after
// cfg.ServerName.
func New(cfg *config.Config, logger *logrus.Logger) *Supervisor {
	s := store.New(cfg.ServerName)
	fabric := replicate.New(s)
	return &Supervisor{
		Config: cfg,
		Store:  s,
		Fabric: fabric,
		Ctx: &exec.Context{
			Store:        s,
			Fabric:       fabric,
			ServerName:   cfg.ServerName,
			OperPassword: cfg.OperPassword,
			Created:      cfg.CreatedStr,
			Version:      cfg.Version,
			Motd:         cfg.MOTD,
		},
		Log:      logger,
		wg:       conc.NewWaitGroup(),
		shutdown: make(chan struct{}),
		conns:    make(map[*Conn]struct{}),
	}
}

// LoadPersisted loads accounts and channel-operator registries from
// cfg.PersistDir for this listening port.
func (s *Supervisor) LoadPersisted() error {
	accPath := persist.AccountsFile(s.Config.PersistDir, s.Config.ListenPort)
	if err := persist.LoadAccounts(s.Store, accPath); err != nil {
		return err
	}
	chPath := persist.ChannelsFile(s.Config.PersistDir, s.Config.ListenPort)
	return persist.LoadChannels(s.Store, chPath)
}

// persistSnapshot writes both persistence files. Failures are logged and
// ignored: the in-memory state stays authoritative. The persisting flag
// makes a concurrent Shutdown call wait rather than race a snapshot in
// flight.
func (s *Supervisor) persistSnapshot() {
	s.persisting.Store(true)
	defer s.persisting.Store(false)

	accPath := persist.AccountsFile(s.Config.PersistDir, s.Config.ListenPort)
	if err := persist.SaveAccounts(s.Store, accPath); err != nil {
		s.Log.WithField("component", "persist").WithError(err).Error("failed to save accounts")
	}
	chPath := persist.ChannelsFile(s.Config.PersistDir, s.Config.ListenPort)
	if err := persist.SaveChannels(s.Store, chPath); err != nil {
		s.Log.WithField("component", "persist").WithError(err).Error("failed to save channels")
	}
}

// Run listens on cfg.ListenHost:cfg.ListenPort and serves connections
// until Shutdown is called. It blocks until the listener closes.
func (s *Supervisor) Run() error {
	addr := fmt.Sprintf("%s:%s", s.Config.ListenHost, s.Config.ListenPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("unable to listen: %s", err)
	}
	s.listener = ln
	log := s.Log.WithField("component", "supervisor")
	log.Infof("listening on %s", addr)

	s.wg.Go(s.persistLoop)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.closed.Load() {
				return nil
			}
			log.WithError(err).Warn("accept failed")
			continue
		}
		c := NewConn(conn, s.Config.DeadTime)
		s.track(c)
		s.wg.Go(func() { s.serve(c) })
	}
}

func (s *Supervisor) track(c *Conn) {
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Supervisor) untrack(c *Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

// ConnectPeer actively opens one outbound peer link for the
// server-connect CLI form: it dials, sends PASS/SERVER, then serves the
// resulting peer connection on its own goroutine like any accepted one.
func (s *Supervisor) ConnectPeer(peerIP string, peerPort int, peerPassword string) error {
	addr := fmt.Sprintf("%s:%d", peerIP, peerPort)
	netConn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("unable to connect to peer %s: %s", addr, err)
	}
	c := NewConn(netConn, s.Config.DeadTime)
	c.Initiated = true

	if err := c.WriteLine(fmt.Sprintf("PASS %s\r\n", peerPassword)); err != nil {
		return err
	}
	if err := c.WriteLine(fmt.Sprintf("SERVER %s 1 :%s\r\n", s.Config.ServerName, s.Config.ServerInfo)); err != nil {
		return err
	}

	s.track(c)
	s.wg.Go(func() { s.serve(c) })
	return nil
}

// serve drives one accepted (or dialed) connection through registration
// and then its client or peer line-loop.
func (s *Supervisor) serve(c *Conn) {
	defer s.untrack(c)
	defer func() { _ = c.Close() }()

	s.registerAndServe(c)
}

// Shutdown runs the shutdown sequence: stop accepting, snapshot, notify
// peers, close sockets, join workers. A snapshot already in flight is
// honored first: Shutdown refuses to interleave with persistLoop's own
// save.
func (s *Supervisor) Shutdown() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	for s.persisting.Load() {
		time.Sleep(10 * time.Millisecond)
	}
	log := s.Log.WithField("component", "supervisor")
	log.Info("shutting down")

	if s.listener != nil {
		_ = s.listener.Close()
	}
	close(s.shutdown)

	s.persistSnapshot()

	var localQuits []string
	s.Store.Clients.ForEach(func(_ string, cl *store.Client) {
		if cl.IsLocal() {
			localQuits = append(localQuits, fmt.Sprintf(":%s QUIT :Shutting down server\r\n", cl.Nickname()))
		}
	})
	for _, p := range s.Store.Peers.Values() {
		if !p.IsDirect() {
			continue
		}
		for _, q := range localQuits {
			_ = p.Write(q)
		}
		_ = p.Write(fmt.Sprintf("SQUIT %s :Shutting down server\r\n", s.Config.ServerName))
	}

	s.mu.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	log.Info("shutdown complete")
}

// Peers returns the store's peer set.
func (s *Supervisor) Peers() []*store.PeerLink {
	return s.Store.Peers.Values()
}

// persistLoop wakes on cfg.PersistInterval and snapshots state, stopping
// when Shutdown closes s.shutdown.
func (s *Supervisor) persistLoop() {
	ticker := time.NewTicker(s.Config.PersistInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.persistSnapshot()
		case <-s.shutdown:
			return
		}
	}
}

// isClosedErr reports whether err indicates the connection/listener was
// closed locally, as opposed to a genuine I/O failure.
func isClosedErr(err error) bool {
	return err == io.EOF || err == net.ErrClosed
}
