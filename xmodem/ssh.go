package xmodem

import (
	"context"
	"io"
	"strings"

	"golang.org/x/crypto/ssh"
)

// SSHSession runs transfers against lrzsz tools on a remote host. The
// remote command's stdin and stdout carry the protocol.
type SSHSession struct {
	sshSession *ssh.Session
	reader     ReaderWithTimeout
	stdin      io.WriteCloser
	stderr     io.Reader
	opts       []Option
}

// NewSSHSession creates a transfer session from an SSH session. The
// SSH session must not have been started; each transfer method starts
// one remote command on it.
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

	return &SSHSession{
		sshSession: sshSession,
		reader:     NewTimeoutReader(stdout),
		stdin:      stdin,
		stderr:     stderr,
		opts:       opts,
	}, nil
}

// SendFiles uploads local files with YMODEM batch; the remote runs rb.
func (s *SSHSession) SendFiles(ctx context.Context, paths ...string) error {
	y := NewYModem(s.reader, s.stdin, s.opts...)
	return s.run(ctx, "rb --ymodem", func() error {
		return y.BatchSend(ctx, paths...)
	})
}

// ReceiveFiles downloads remote files into dir with YMODEM batch; the
// remote runs sb. It returns the local paths created.
func (s *SSHSession) ReceiveFiles(ctx context.Context, dir string, remotePaths ...string) ([]string, error) {
	y := NewYModem(s.reader, s.stdin, s.opts...)
	var received []string
	err := s.run(ctx, "sb --ymodem "+quoteArgs(remotePaths), func() error {
		var err error
		received, err = y.ReceiveFiles(dir)
		return err
	})
	return received, err
}

// SendFile uploads one file with XMODEM-1K into remotePath; the remote
// runs rx.
func (s *SSHSession) SendFile(ctx context.Context, path, remotePath string) error {
	x := NewXModem1K(s.reader, s.stdin, s.opts...)
	return s.run(ctx, "rx "+quoteArg(remotePath), func() error {
		return x.Send(ctx, path)
	})
}

// ReceiveFile downloads remotePath with XMODEM into path; the remote
// runs sx. The file keeps the sender's CPMEOF padding.
func (s *SSHSession) ReceiveFile(ctx context.Context, remotePath, path string) error {
	x := NewXModem(s.reader, s.stdin, s.opts...)
	return s.run(ctx, "sx "+quoteArg(remotePath), func() error {
		return x.Receive(path)
	})
}

// run starts cmd remotely, runs the local side of the transfer and
// waits for the remote command to exit.
func (s *SSHSession) run(ctx context.Context, cmd string, transfer func() error) error {
	if err := s.sshSession.Start(cmd); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- s.sshSession.Wait()
	}()

	err := transfer()

	// Close stdin to signal completion
	s.stdin.Close()

	select {
	case err2 := <-done:
		if err == nil {
			err = err2
		}
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}

	return err
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
		if err := s.sshSession.Close(); err != nil && err != io.EOF {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Stderr returns the stderr reader for monitoring remote command output.
func (s *SSHSession) Stderr() io.Reader {
	return s.stderr
}

func quoteArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = quoteArg(a)
	}
	return strings.Join(quoted, " ")
}

// quoteArg quotes a for a POSIX shell.
func quoteArg(a string) string {
	return "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
}
