// Package config loads the server's configuration file and the operator
// password it names.
package config

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	hconfig "github.com/horgh/config"
)

// Config holds a server's static configuration, loaded once at startup.
type Config struct {
	ListenHost string
	ListenPort string
	ServerName string
	ServerInfo string
	Version    string
	CreatedStr string
	MOTD       []string

	MaxNickLength int

	// OperPassword gates OPER. It is loaded once at process start; there
	// is deliberately no runtime mechanism to change it.
	OperPassword string
	OperUsername string

	// PersistDir is where account and channel snapshots live.
	PersistDir string

	// PersistInterval is the snapshot period.
	PersistInterval time.Duration

	// DeadTime is the per-read and per-write deadline of every connection;
	// the supervisor's reader loops keep waiting after a read timeout.
	// PingTime is loaded but not read by the supervisor.
	PingTime time.Duration
	DeadTime time.Duration

	// UploadsDir/DownloadsDir are the DCC SEND roots.
	UploadsDir   string
	DownloadsDir string
}

var serverNameRe = regexp.MustCompile(`^[A-Za-z0-9.\-]+$`)

// Load reads and validates a config file in `key = value` format.
func Load(path string) (*Config, error) {
	raw, err := hconfig.ReadStringMap(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read config: %s", err)
	}

	required := []string{
		"listen-host", "listen-port", "server-name", "server-info",
		"version", "motd", "max-nick-length", "oper-username",
		"oper-password", "persist-dir", "persist-interval",
		"ping-time", "dead-time",
	}
	for _, key := range required {
		v, ok := raw[key]
		if !ok || v == "" {
			return nil, fmt.Errorf("missing required config key: %s", key)
		}
	}

	if !serverNameRe.MatchString(raw["server-name"]) {
		return nil, fmt.Errorf("server-name is in invalid format")
	}

	nickLen, err := strconv.Atoi(raw["max-nick-length"])
	if err != nil {
		return nil, fmt.Errorf("max-nick-length is not valid: %s", err)
	}

	persistInterval, err := time.ParseDuration(raw["persist-interval"])
	if err != nil {
		return nil, fmt.Errorf("persist-interval is in invalid format: %s", err)
	}
	pingTime, err := time.ParseDuration(raw["ping-time"])
	if err != nil {
		return nil, fmt.Errorf("ping-time is in invalid format: %s", err)
	}
	deadTime, err := time.ParseDuration(raw["dead-time"])
	if err != nil {
		return nil, fmt.Errorf("dead-time is in invalid format: %s", err)
	}

	return &Config{
		ListenHost:      raw["listen-host"],
		ListenPort:      raw["listen-port"],
		ServerName:      raw["server-name"],
		ServerInfo:      raw["server-info"],
		Version:         raw["version"],
		CreatedStr:      time.Now().Format(time.RFC1123),
		MOTD:            []string{raw["motd"]},
		MaxNickLength:   nickLen,
		OperUsername:    raw["oper-username"],
		OperPassword:    raw["oper-password"],
		PersistDir:      raw["persist-dir"],
		PersistInterval: persistInterval,
		PingTime:        pingTime,
		DeadTime:        deadTime,
		UploadsDir:      "../uploads",
		DownloadsDir:    "../downloads",
	}, nil
}

// Default returns a Config suitable for `server <port>` invocations that
// supply no config file, plus a placeholder operator password that must
// be overridden for production use.
func Default(port string) *Config {
	return &Config{
		ListenHost:      "0.0.0.0",
		ListenPort:      port,
		ServerName:      "irc.local",
		ServerInfo:      "a catboxd server",
		Version:         "catboxd-1.0",
		CreatedStr:      time.Now().Format(time.RFC1123),
		MOTD:            []string{"Welcome."},
		MaxNickLength:   30,
		OperUsername:    "admin",
		OperPassword:    "changeme",
		PersistDir:      "./persist",
		PersistInterval: 15 * time.Minute,
		PingTime:        90 * time.Second,
		DeadTime:        180 * time.Second,
		UploadsDir:      "../uploads",
		DownloadsDir:    "../downloads",
	}
}
