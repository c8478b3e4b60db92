package xmodem

import (
	"fmt"
	"io"

	"golang.org/x/crypto/ssh"
)

// SSHSession wraps an SSH session for XMODEM transfers.
// It manages stdin/stdout/stderr pipes, starts the remote lrzsz commands
// (rx to receive what we send, sx to send what we receive) and drives the
// transfer over the session pipes.
type SSHSession struct {
	*Session
	sshSession *ssh.Session
	stdin      io.WriteCloser
	stdout     io.Reader
	stderr     io.Reader
}

// sshPipeRW combines the SSH stdout and stdin pipes into the single
// bidirectional transport the protocol engine expects.
type sshPipeRW struct {
	r io.Reader
	w io.Writer
}

func (p *sshPipeRW) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *sshPipeRW) Write(b []byte) (int, error) { return p.w.Write(b) }

// NewSSHSession creates an XMODEM session from an SSH session.
func NewSSHSession(sshSession *ssh.Session, opts ...Option) (*SSHSession, error) {
	stdin, err := sshSession.StdinPipe()
	if err != nil {
		return nil, err
	}

	stdout, err := sshSession.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, err
	}

	stderr, err := sshSession.StderrPipe()
	if err != nil {
		stdin.Close()
		return nil, err
	}

	rw := &sshPipeRW{r: stdout, w: stdin}
	session := NewSession(rw, opts...)

	return &SSHSession{
		Session:    session,
		sshSession: sshSession,
		stdin:      stdin,
		stdout:     stdout,
		stderr:     stderr,
	}, nil
}

// SendFile sends data to remotePath on the remote host. It starts the
// remote rx command, which writes the received blocks to remotePath, and
// transmits data to it. Returns the number of payload bytes sent.
func (s *SSHSession) SendFile(data io.Reader, remotePath string) (int, error) {
	if err := s.sshSession.Start(fmt.Sprintf("rx %s", remotePath)); err != nil {
		return 0, err
	}

	done := make(chan error, 1)
	go func() {
		done <- s.sshSession.Wait()
	}()

	n, err := s.Session.Send(data)

	// Close stdin to signal completion
	s.stdin.Close()

	if err2 := <-done; err == nil {
		err = err2
	}

	return n, err
}

// ReceiveFile receives remotePath from the remote host into the sink. It
// starts the remote sx command, which transmits remotePath, and receives
// the transfer. Returns the number of bytes received, a multiple of 128;
// trailing padding from the final block is included.
func (s *SSHSession) ReceiveFile(into io.Writer, remotePath string) (int, error) {
	if err := s.sshSession.Start(fmt.Sprintf("sx %s", remotePath)); err != nil {
		return 0, err
	}

	done := make(chan error, 1)
	go func() {
		done <- s.sshSession.Wait()
	}()

	n, err := s.Session.Receive(into)

	// Close stdin to signal completion
	s.stdin.Close()

	if err2 := <-done; err == nil {
		err = err2
	}

	return n, err
}

// Close closes the SSH session and cleans up resources.
func (s *SSHSession) Close() error {
	var errs []error

	if s.stdin != nil {
		if err := s.stdin.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if s.sshSession != nil {
		if err := s.sshSession.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errs[0] // Return first error
	}

	return nil
}

// Stderr returns the stderr reader for monitoring remote command output.
func (s *SSHSession) Stderr() io.Reader {
	return s.stderr
}
