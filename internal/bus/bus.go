// Package bus is the daemon's control plane: a unix socket speaking
// one-byte commands plus a pidfile guarding against double starts.
package bus

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
)

const SockName = "control.sock"
const PidName = "scribeflow.pid"
const ProtoVer = "0.1"

// Control commands
const (
	CmdToggle  byte = 't' // start listening / finish and deliver
	CmdAbort   byte = 'a' // discard the current run
	CmdStatus  byte = 's' // report pipeline status
	CmdPeek    byte = 'p' // live transcript snapshot
	CmdVersion byte = 'v' // protocol version
	CmdQuit    byte = 'q' // stop the daemon
)

// ~/.cache/scribeflow/control.sock
func SockPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "scribeflow", SockName), nil
}

// ~/.cache/scribeflow/scribeflow.pid
func PidPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "scribeflow", PidName), nil
}

func Listen() (net.Listener, error) {
	sp, err := SockPath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(sp), 0o700); err != nil {
		return nil, err
	}
	_ = os.Remove(sp) // stale socket from last run
	return net.Listen("unix", sp)
}

func Dial() (net.Conn, error) {
	sp, err := SockPath()
	if err != nil {
		return nil, err
	}
	return net.Dial("unix", sp)
}

// SendCommand dials the daemon, sends one command byte and returns the
// single-line response.
func SendCommand(cmd byte) (string, error) {
	c, err := Dial()
	if err != nil {
		return "", err
	}
	defer c.Close()

	if _, err := c.Write([]byte{cmd, '\n'}); err != nil {
		return "", err
	}

	resp, err := bufio.NewReader(c).ReadString('\n')
	return resp, err
}

// pidManager handles the daemon pidfile at a fixed path.
type pidManager struct {
	path string
}

func newPidManager() (*pidManager, error) {
	p, err := PidPath()
	if err != nil {
		return nil, err
	}
	return &pidManager{path: p}, nil
}

func (m *pidManager) create() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(m.path, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func (m *pidManager) remove() error {
	return os.Remove(m.path)
}

// checkExisting returns an error if a live daemon already owns the pidfile.
// A stale or unreadable pidfile is ignored.
func (m *pidManager) checkExisting() error {
	pidData, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return nil // no existing daemon
	}
	if err != nil {
		return err
	}

	pid, err := strconv.Atoi(string(pidData))
	if err != nil {
		return nil // invalid pid file, assume stale
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}

	// Signal 0 checks liveness without touching the process.
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return nil // process not alive, stale pid file
	}

	return fmt.Errorf("daemon already running with PID %d", pid)
}

func CheckExistingDaemon() error {
	m, err := newPidManager()
	if err != nil {
		return err
	}
	return m.checkExisting()
}

func CreatePidFile() error {
	m, err := newPidManager()
	if err != nil {
		return err
	}
	return m.create()
}

func RemovePidFile() error {
	m, err := newPidManager()
	if err != nil {
		return err
	}
	return m.remove()
}
