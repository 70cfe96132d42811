package depot

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// usageRecord is one line of a depot's append-only usage log: which
// (name, hash) was touched and when, so gc can age out entries nothing
// has used recently.
type usageRecord struct {
	Name string
	Hash string
	When time.Time
}

func usageLogPath(d Depot) string {
	return filepath.Join(d.logsDir(), "usage.log")
}

// recordUsage appends a usage record to the writable depot's
// O_APPEND usage log. Concurrent writers never corrupt each other's
// records because O_APPEND writes below PIPE_BUF are atomic on every
// platform this tool targets.
func (stack Stack) recordUsage(name, hash string, at time.Time) error {
	d := stack[0]
	f, err := os.OpenFile(usageLogPath(d), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "opening usage log")
	}
	defer f.Close()

	line := fmt.Sprintf("%d\t%s\t%s\n", at.Unix(), name, hash)
	_, err = f.WriteString(line)
	return err
}

// readUsageLog parses a depot's usage log into records, skipping any
// malformed lines rather than failing outright -- a torn trailing line
// from a crashed process shouldn't block gc from running.
func readUsageLog(d Depot) ([]usageRecord, error) {
	f, err := os.Open(usageLogPath(d))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []usageRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.SplitN(scanner.Text(), "\t", 3)
		if len(fields) != 3 {
			continue
		}
		ts, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			continue
		}
		out = append(out, usageRecord{
			When: time.Unix(ts, 0),
			Name: fields[1],
			Hash: fields[2],
		})
	}
	return out, scanner.Err()
}

// lastUsed returns the most recent usage timestamp recorded for
// (name, hash) across the usage log, or the zero time if never used.
func lastUsed(records []usageRecord, name, hash string) time.Time {
	var latest time.Time
	for _, r := range records {
		if r.Name == name && r.Hash == hash && r.When.After(latest) {
			latest = r.When
		}
	}
	return latest
}
