package yx

import (
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger is the package-wide structured logger. Every drop+log path in the
// receive pipeline goes through it. Replace it (e.g. with a logrus.Logger
// configured for JSON output) before starting a Transport to change format.
var Logger = logrus.New()

func init() {
	Logger.SetLevel(logrus.DebugLevel)
}

// failureLog appends one forensic record per failed MAC verification to a
// shared file (spec §6.3). It must tolerate concurrent writers and must
// never be truncated, so it always opens O_APPEND|O_CREATE and serializes
// writes with a mutex on top of the OS's atomic append guarantee.
type failureLog struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

func newFailureLog(path string) (*failureLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("yx: open failure log %s: %w", path, err)
	}
	return &failureLog{path: path, f: f}, nil
}

// record appends one line: timestamp (microsecond precision), source
// addr, parsed GUID hex, expected MAC hex, received MAC hex, full packet
// hex. It MUST NOT contain keys or plaintext (spec §6.3).
func (fl *failureLog) record(src string, guid GUID, expectedMAC, receivedMAC, fullPacket []byte) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	line := fmt.Sprintf(
		"%s src=%s guid=%s expected_mac=%s received_mac=%s packet=%s\n",
		time.Now().Format("2006-01-02T15:04:05.000000Z07:00"),
		src,
		guid.Hex(),
		hex.EncodeToString(expectedMAC),
		hex.EncodeToString(receivedMAC),
		hex.EncodeToString(fullPacket),
	)
	if _, err := fl.f.WriteString(line); err != nil {
		Logger.WithError(err).WithField("path", fl.path).Warn("yx: failed to append to hmac failure log")
	}
}

func (fl *failureLog) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	return fl.f.Close()
}
