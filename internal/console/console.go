// Package console implements the admin stdin reader: a line "SHUTDOWN"
// triggers graceful shutdown, anything else gets a help hint.
package console

import (
	"bufio"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Shutdowner is the subset of *supervisor.Supervisor the console needs.
type Shutdowner interface {
	Shutdown()
}

// Run scans in line by line until it hits EOF or a read from in fails, calling
// shutdown() the moment a line case-foldedly equal to "SHUTDOWN" arrives,
// then returning. Unrecognized lines get a one-line help hint on log at
// info level, the stand-in for the original's stdout print.
func Run(in io.Reader, log *logrus.Entry, shutdown func()) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "SHUTDOWN") {
			log.Info("SHUTDOWN received on console, shutting down")
			shutdown()
			return
		}
		log.Infof("unknown console command %q (try: SHUTDOWN)", line)
	}
}
