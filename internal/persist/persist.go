// Package persist implements the periodic CSV snapshot of accounts and
// channel-operator registries, and their load on startup. Snapshots are
// taken under the map locks before any I/O happens. Writes are atomic:
// render to a randomly suffixed temp file in the same directory, then
// rename over the target.
package persist

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/btnmasher/random"
	"github.com/pkg/errors"

	"github.com/catboxd/ircd/internal/store"
)

// AccountsFile returns the accounts snapshot path for a listening port:
// "user_accounts-<port>".
func AccountsFile(dir, port string) string {
	return filepath.Join(dir, "user_accounts-"+port)
}

// ChannelsFile returns the channel snapshot path for a listening port:
// "channels-<port>".
func ChannelsFile(dir, port string) string {
	return filepath.Join(dir, "channels-"+port)
}

// SaveAccounts snapshots every account with a non-empty password to
// path, atomically. Passwordless accounts are not persisted.
func SaveAccounts(s *store.Store, path string) error {
	var records [][]string
	s.Accounts.ForEach(func(_ string, a *store.ClientAccount) {
		if a.Password() == "" {
			return
		}
		records = append(records, []string{a.Nickname(), a.Username(), a.Password()})
	})
	return writeCSV(path, records)
}

// LoadAccounts loads a previously saved accounts file into s. A
// malformed line aborts the load with an error.
func LoadAccounts(s *store.Store, path string) error {
	records, err := readCSV(path)
	if err != nil {
		return err
	}
	for i, rec := range records {
		if len(rec) != 3 {
			return errors.Errorf("accounts file %s: line %d: expected 3 fields, got %d", path, i+1, len(rec))
		}
		s.AddAccount(store.NewClientAccount(rec[0], rec[1], rec[2]))
	}
	return nil
}

// SaveChannels snapshots every channel whose registered-operator set is
// non-empty, rendering booleans as "0"/"1" and registeredOps
// semicolon-separated.
func SaveChannels(s *store.Store, path string) error {
	var records [][]string
	s.Channels.ForEach(func(_ string, ch *store.Channel) {
		ops := ch.RegisteredOpNicks()
		if len(ops) == 0 {
			return
		}
		topic, _ := ch.Topic()
		limitStr := ""
		if n, has := ch.Limit(); has {
			limitStr = strconv.Itoa(n)
		}
		records = append(records, []string{
			ch.Name(),
			ch.Key(),
			topic,
			boolStr(ch.Private()),
			boolStr(ch.Secret()),
			boolStr(ch.InviteOnly()),
			boolStr(ch.TopicOpsOnly()),
			boolStr(ch.NoMsgOutside()),
			boolStr(ch.Moderated()),
			limitStr,
			strings.Join(ops, ";"),
		})
	})
	return writeCSV(path, records)
}

// LoadChannels loads a previously saved channels file into s, recreating
// each channel with its persisted modes and registered-operator set, so
// returning operators reacquire their role on the next join.
func LoadChannels(s *store.Store, path string) error {
	records, err := readCSV(path)
	if err != nil {
		return err
	}
	for i, rec := range records {
		if len(rec) != 11 {
			return errors.Errorf("channels file %s: line %d: expected 11 fields, got %d", path, i+1, len(rec))
		}
		ch, _ := s.GetOrCreateChannel(rec[0])
		if rec[1] != "" {
			ch.SetKey(rec[1])
		}
		if rec[2] != "" {
			ch.SetTopic(rec[2])
		}
		ch.SetPrivate(rec[3] == "1")
		ch.SetSecret(rec[4] == "1")
		ch.SetInviteOnly(rec[5] == "1")
		ch.SetTopicOpsOnly(rec[6] == "1")
		ch.SetNoMsgOutside(rec[7] == "1")
		ch.SetModerated(rec[8] == "1")
		if rec[9] != "" {
			n, cerr := strconv.Atoi(rec[9])
			if cerr != nil {
				return errors.Errorf("channels file %s: line %d: bad limit %q", path, i+1, rec[9])
			}
			ch.SetLimit(n)
		}
		if rec[10] != "" {
			for _, nick := range strings.Split(rec[10], ";") {
				ch.RestoreRegisteredOp(nick)
			}
		}
	}
	return nil
}

func boolStr(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func writeCSV(path string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating persist dir for %s", path)
	}

	tmp := path + "." + random.String(8) + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrapf(err, "creating temp file for %s", path)
	}

	w := csv.NewWriter(f)
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
			return errors.Wrapf(err, "writing record to %s", tmp)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return errors.Wrapf(err, "flushing %s", tmp)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrapf(err, "closing %s", tmp)
	}

	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(err, "renaming %s to %s", tmp, path)
	}
	return nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("malformed persist file %s: %s", path, err)
	}
	return records, nil
}
