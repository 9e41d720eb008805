package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"
)

const defaultSSHPort = 22

// commandRunner executes CLI commands on a device
type commandRunner interface {
	Run(ctx context.Context, cmd string) (string, error)
	Close() error
}

// dialFunc opens a command runner for a target
type dialFunc func(ctx context.Context, target Target) (commandRunner, error)

type sshRunner struct {
	client *ssh.Client
}

// dialSSH connects to the target with password or key authentication.
// Optional args: port (int), key_file (path), passphrase (string).
func dialSSH(ctx context.Context, target Target) (commandRunner, error) {
	config, err := sshConfig(target)
	if err != nil {
		return nil, fmt.Errorf("failed to build SSH config: %w", err)
	}

	port := defaultSSHPort
	if p, ok := intArg(target.OptionalArgs, "port"); ok && p > 0 {
		port = p
	}
	addr := net.JoinHostPort(target.Hostname, strconv.Itoa(port))

	dialer := &net.Dialer{Timeout: target.timeout()}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial: %w", err)
	}

	// The handshake has no timeout of its own
	deadline := time.Now().Add(target.timeout())
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to set handshake deadline: %w", err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to establish SSH connection: %w", err)
	}
	if err := conn.SetDeadline(time.Time{}); err != nil {
		_ = sshConn.Close()
		return nil, fmt.Errorf("failed to clear handshake deadline: %w", err)
	}
	return &sshRunner{client: ssh.NewClient(sshConn, chans, reqs)}, nil
}

func sshConfig(target Target) (*ssh.ClientConfig, error) {
	if target.Username == "" {
		return nil, errors.New("username is required")
	}

	var auth []ssh.AuthMethod
	if keyFile, ok := stringArg(target.OptionalArgs, "key_file"); ok && keyFile != "" {
		key, err := os.ReadFile(keyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key: %w", err)
		}
		var signer ssh.Signer
		if passphrase, ok := stringArg(target.OptionalArgs, "passphrase"); ok && passphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(passphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(key)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if target.Password != "" {
		password := target.Password
		auth = append(auth, ssh.Password(password), ssh.KeyboardInteractive(
			func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}))
	}
	if len(auth) == 0 {
		return nil, errors.New("password or key_file is required")
	}

	return &ssh.ClientConfig{
		User:            target.Username,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         target.timeout(),
	}, nil
}

// Run executes cmd in a new session. The session is killed when ctx ends.
func (r *sshRunner) Run(ctx context.Context, cmd string) (string, error) {
	session, err := r.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	defer func() {
		_ = session.Close()
	}()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- session.Run(cmd)
	}()

	select {
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("command %q failed: %w: %s", cmd, err, bytes.TrimSpace(stderr.Bytes()))
		}
		return stdout.String(), nil
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return "", fmt.Errorf("command %q: %w", cmd, ctx.Err())
	}
}

func (r *sshRunner) Close() error {
	return r.client.Close()
}

func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func intArg(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	default:
		return 0, false
	}
}
