/*
 * IRC daemon entrypoint.
 */

// cmd/ircd dispatches on argv[1]: run a standalone server, a server with
// one outbound peer link, or a plain TCP client.
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/catboxd/ircd/internal/config"
	"github.com/catboxd/ircd/internal/console"
	"github.com/catboxd/ircd/internal/logging"
	"github.com/catboxd/ircd/internal/supervisor"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 1
	}

	switch args[0] {
	case "server":
		return runServer(args[1:])
	case "server-connect":
		return runServerConnect(args[1:])
	case "client":
		return runClientGUI(args[1:])
	case "client-no-gui":
		return runClientNoGUI(args[1:])
	default:
		printUsage()
		return 1
	}
}

func printUsage() {
	_, _ = fmt.Fprintf(os.Stderr, "Usage: %s <command> <arguments>\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  server <port>\n")
	_, _ = fmt.Fprintf(os.Stderr, "  server-connect <port> <peer_ip> <peer_port> <peer_password>\n")
	_, _ = fmt.Fprintf(os.Stderr, "  client <server_ip> <server_port>\n")
	_, _ = fmt.Fprintf(os.Stderr, "  client-no-gui <server_ip> <server_port>\n")
}

// runServer implements "server <port>": standalone server, no outbound
// peer link.
func runServer(args []string) int {
	if len(args) != 1 {
		printUsage()
		return 1
	}
	sup, logger := bootSupervisor(args[0])
	return serve(sup, logger)
}

// runServerConnect implements "server-connect <port> <peer_ip>
// <peer_port> <peer_password>": a server that actively dials one peer
// link at startup.
func runServerConnect(args []string) int {
	if len(args) != 4 {
		printUsage()
		return 1
	}
	peerPort, err := strconv.Atoi(args[2])
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid peer port: %s\n", err)
		return 1
	}

	sup, logger := bootSupervisor(args[0])
	if err := sup.ConnectPeer(args[1], peerPort, args[3]); err != nil {
		logger.WithError(err).Error("unable to connect to peer")
		return 1
	}
	return serve(sup, logger)
}

// bootSupervisor builds the shared logger and Supervisor for a listening
// port, loading any persisted accounts/channels.
func bootSupervisor(port string) (*supervisor.Supervisor, *logrus.Logger) {
	logger := logging.New(logrus.InfoLevel, os.Stdout)
	cfg := config.Default(port)
	sup := supervisor.New(cfg, logger)
	if err := sup.LoadPersisted(); err != nil {
		logging.For(logger, "main").WithError(err).Warn("unable to load persisted state")
	}
	return sup, logger
}

// serve runs sup.Run in the background, wires SIGINT/SIGTERM and the
// stdin admin console to sup.Shutdown, and blocks until the server has
// fully shut down.
func serve(sup *supervisor.Supervisor, logger *logrus.Logger) int {
	log := logging.For(logger, "main")

	errCh := make(chan error, 1)
	go func() { errCh <- sup.Run() }()

	killSignals := make(chan os.Signal, 1)
	signal.Notify(killSignals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-killSignals
		log.Infof("received signal %s, shutting down", sig)
		sup.Shutdown()
	}()

	go console.Run(bufio.NewReader(os.Stdin), log, sup.Shutdown)

	if err := <-errCh; err != nil {
		log.WithError(err).Error("server exited with error")
		return 1
	}
	return 0
}

// runClientGUI implements "client <server_ip> <server_port>". The GUI is
// an external collaborator; this module only exposes its channel-based
// contract (internal/dcc's GuiMessage/IncomingMessage). There is no GUI
// to launch here.
func runClientGUI(args []string) int {
	if len(args) != 2 {
		printUsage()
		return 1
	}
	_, _ = fmt.Fprintln(os.Stderr, "client: GUI mode is an external collaborator not built by this module; use client-no-gui")
	return 1
}

// runClientNoGUI implements "client-no-gui <server_ip> <server_port>": a
// bare stdin/stdout IRC client. Lines typed on stdin are
// sent verbatim (CRLF-terminated); lines received from the server are
// printed to stdout.
func runClientNoGUI(args []string) int {
	if len(args) != 2 {
		printUsage()
		return 1
	}
	addr := net.JoinHostPort(args[0], args[1])
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "unable to connect to %s: %s\n", addr, err)
		return 1
	}
	defer func() { _ = conn.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			fmt.Println(scanner.Text())
		}
	}()

	stdin := bufio.NewScanner(os.Stdin)
	for stdin.Scan() {
		if _, err := fmt.Fprintf(conn, "%s\r\n", stdin.Text()); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "write error: %s\n", err)
			return 1
		}
	}
	_ = conn.Close()
	<-done
	return 0
}
