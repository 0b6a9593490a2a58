package player

import (
	"crypto/rand"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/soundpulse-cli/soundpulse/constant"
	"github.com/soundpulse-cli/soundpulse/key"
	"github.com/soundpulse-cli/soundpulse/log"
	"github.com/spf13/viper"
)

const (
	socketWaitRetries = 10
	socketWaitDelay   = 300 * time.Millisecond
)

// session owns one mpv process and its JSON-IPC socket. Both drivers run
// their own session so the orchestrator can switch between them without
// tearing the other down.
type session struct {
	socketPath string
	cmd        *exec.Cmd
	exited     chan struct{} // closed when the process exits
	mu         sync.Mutex    // protects socket writes
}

func newSession() *session {
	return &session{
		exited: make(chan struct{}),
	}
}

// start launches the playback process for the given URL. If the process
// is already running, the new target is loaded into it via IPC.
func (s *session) start(rawURL string, title string) error {
	safeURL, err := sanitizeMediaTarget(rawURL)
	if err != nil {
		return fmt.Errorf("invalid media target: %w", err)
	}

	safeTitle := sanitizeTitle(title)

	if s.isRunning() {
		_, err = s.send([]interface{}{"loadfile", safeURL, "replace"})
		return err
	}

	if s.socketPath == "" {
		randomBytes := make([]byte, 4)
		if _, err := rand.Read(randomBytes); err != nil {
			return fmt.Errorf("generate socket name: %w", err)
		}
		name := fmt.Sprintf("%s-%x", constant.SoundPulse, randomBytes)

		// Windows mpv listens on a named pipe, everywhere else a unix
		// socket under os.TempDir() (macOS $TMPDIR is /var/folders/...
		// not /tmp/).
		if runtime.GOOS == constant.Windows {
			s.socketPath = `\\.\pipe\` + name
		} else {
			s.socketPath = filepath.Join(os.TempDir(), name+".sock")
		}
	}

	args := []string{
		"--no-terminal",
		"--really-quiet",
		"--video=no",
		fmt.Sprintf("--input-ipc-server=%s", s.socketPath),
		fmt.Sprintf("--force-media-title=%s", safeTitle),
		"--idle=yes",
		safeURL,
	}

	s.cmd = exec.Command(viper.GetString(key.PlayerBinary), args...)

	// Detach from the parent process group so a crashed shell doesn't take
	// playback down with it.
	s.cmd.SysProcAttr = sysProcAttr()

	s.cmd.Stdout = nil
	s.cmd.Stderr = nil
	s.cmd.Stdin = nil

	if err := s.cmd.Start(); err != nil {
		return fmt.Errorf("start player: %w", err)
	}

	// Reap the process to prevent zombies
	s.exited = make(chan struct{})
	go func() {
		_ = s.cmd.Wait()
		close(s.exited)
	}()

	if err := s.waitForSocket(); err != nil {
		if s.cmd.Process != nil {
			select {
			case <-s.exited:
			default:
				log.Warnf("killing player: socket never became ready")
				_ = s.cmd.Process.Kill()
			}
		}
		return fmt.Errorf("player socket not ready: %w", err)
	}

	return nil
}

// wait returns a channel that is closed when the playback process exits.
func (s *session) wait() <-chan struct{} {
	return s.exited
}

// waitForSocket polls until the IPC socket is accepting connections.
func (s *session) waitForSocket() error {
	for i := 0; i < socketWaitRetries; i++ {
		time.Sleep(socketWaitDelay)

		select {
		case <-s.exited:
			return fmt.Errorf("player exited before socket was ready")
		default:
		}

		conn, err := net.Dial("unix", s.socketPath)
		if err == nil {
			conn.Close()
			return nil
		}
	}
	return fmt.Errorf("socket %s not ready after %d attempts", s.socketPath, socketWaitRetries)
}

// isRunning reports whether the process is responding to IPC commands.
func (s *session) isRunning() bool {
	if s.socketPath == "" || s.cmd == nil {
		return false
	}

	select {
	case <-s.exited:
		return false
	default:
	}

	_, err := s.send([]interface{}{"get_property", "pid"})
	return err == nil
}

// setProperty sets an IPC property.
func (s *session) setProperty(property string, value interface{}) error {
	_, err := s.send([]interface{}{"set_property", property, value})
	return err
}

// getFloatProperty retrieves a float64 property via IPC.
func (s *session) getFloatProperty(name string) (float64, error) {
	data, err := s.send([]interface{}{"get_property", name})
	if err != nil {
		return 0, err
	}

	if data == nil {
		return 0, fmt.Errorf("property %s: nil response", name)
	}

	val, ok := data.(float64)
	if !ok {
		return 0, fmt.Errorf("property %s: expected float64, got %T", name, data)
	}

	return val, nil
}

// close shuts down the playback process and cleans up resources.
func (s *session) close() error {
	if s.socketPath == "" {
		return nil
	}

	// Graceful quit first
	_, _ = s.send([]interface{}{"quit"})

	select {
	case <-s.exited:
	case <-time.After(3 * time.Second):
		_ = killProcess(s.cmd)
	}

	_ = os.Remove(s.socketPath)

	return nil
}

// sanitizeMediaTarget validates that a URL is safe to hand to the playback
// process. Prevents flag injection from untrusted metadata.
func sanitizeMediaTarget(link string) (string, error) {
	l := strings.TrimSpace(link)
	if l == "" {
		return "", fmt.Errorf("empty URL")
	}

	if strings.ContainsAny(l, "\x00\n\r") {
		return "", fmt.Errorf("invalid control characters in URL")
	}

	if strings.HasPrefix(l, "-") {
		return "", fmt.Errorf("url must not start with '-' (looks like a flag)")
	}

	if strings.Contains(l, "://") {
		u, err := url.Parse(l)
		if err != nil {
			return "", fmt.Errorf("invalid URL: %w", err)
		}
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return l, nil
		default:
			return "", fmt.Errorf("unsupported URL scheme: %s", u.Scheme)
		}
	}

	// Treat as local file path
	return filepath.Clean(l), nil
}

// sanitizeTitle cleans up a title for the IPC command line.
func sanitizeTitle(title string) string {
	t := strings.ReplaceAll(title, "\n", " ")
	t = strings.ReplaceAll(t, "\r", " ")
	t = strings.ReplaceAll(t, "\t", " ")
	t = strings.ReplaceAll(t, "\x00", "")
	return strings.TrimSpace(t)
}
