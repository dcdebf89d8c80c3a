package audio

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"
)

// defaultGracefulTimeout is how long a stopped player gets before SIGKILL.
const defaultGracefulTimeout = 2 * time.Second

// ExecPlayer plays clips by running an external player, one process at a
// time. Neither Play nor Silence waits for the player to exit.
type ExecPlayer struct {
	binary   string
	args     []string
	graceful time.Duration

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

// NewExecPlayer creates a player that runs binary with args, after
// substituting ArgClip and ArgVolume.
func NewExecPlayer(binary string, args []string) *ExecPlayer {
	return &ExecPlayer{
		binary:   binary,
		args:     args,
		graceful: defaultGracefulTimeout,
	}
}

// Play stops any running clip and starts clip at volume.
func (p *ExecPlayer) Play(clip string, volume float64) error {
	if volume < 0 || volume > 1 {
		return ErrInvalidVolume
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	cmd := exec.Command(p.binary, p.expand(clip, volume)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", p.binary, err)
	}

	done := make(chan struct{})
	go func() {
		cmd.Wait()
		close(done)
	}()

	p.cmd, p.done = cmd, done
	return nil
}

// Silence terminates the running clip, if any.
func (p *ExecPlayer) Silence() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	return nil
}

// Playing reports whether a player process is still running.
func (p *ExecPlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Close stops playback and waits for the player to exit.
func (p *ExecPlayer) Close() error {
	p.mu.Lock()
	done := p.done
	p.stopLocked()
	p.mu.Unlock()

	if done != nil {
		<-done
	}
	return nil
}

// stopLocked sends SIGTERM and arranges a SIGKILL if the player ignores it.
func (p *ExecPlayer) stopLocked() {
	cmd, done := p.cmd, p.done
	p.cmd, p.done = nil, nil
	if cmd == nil {
		return
	}

	select {
	case <-done:
		return
	default:
	}

	cmd.Process.Signal(syscall.SIGTERM)
	go func() {
		select {
		case <-done:
		case <-time.After(p.graceful):
			cmd.Process.Kill()
		}
	}()
}

func (p *ExecPlayer) expand(clip string, volume float64) []string {
	vol := strconv.FormatFloat(volume, 'f', 2, 64)
	out := make([]string, len(p.args))
	for i, a := range p.args {
		a = strings.ReplaceAll(a, ArgClip, clip)
		out[i] = strings.ReplaceAll(a, ArgVolume, vol)
	}
	return out
}
