package commandmanager

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
)

const defaultDialTimeout = 15 * time.Minute

// SSHDialer abstracts the SSH connection setup so tests can substitute a fake.
type SSHDialer interface {
	Dial(network, addr string, config *ssh.ClientConfig, timeout time.Duration) (*ssh.Client, error)
}

// NetSSHDialer dials over the network with a connect timeout.
type NetSSHDialer struct{}

func (NetSSHDialer) Dial(network, addr string, config *ssh.ClientConfig, timeout time.Duration) (*ssh.Client, error) {
	conn, err := net.DialTimeout(network, addr, timeout)
	if err != nil {
		return nil, err
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return ssh.NewClient(c, chans, reqs), nil
}

// SSHCommandManager runs commands on a remote host over SSH.
type SSHCommandManager struct {
	Hostname string
	Port     string
	Dialer   SSHDialer
	Log      *logrus.Logger
	Credentials
}

func (s *SSHCommandManager) logger() *logrus.Logger {
	if s.Log != nil {
		return s.Log
	}
	return logrus.StandardLogger()
}

func (s *SSHCommandManager) sshConfig() (*ssh.ClientConfig, error) {
	var authMethod ssh.AuthMethod

	if s.Password != "" {
		s.logger().WithField("hostname", s.Hostname).Debug("Using password authentication")
		authMethod = ssh.Password(s.Password)
	} else {
		s.logger().WithField("hostname", s.Hostname).Debug("Using public key authentication")
		var keyManager SSHKeyManager
		if s.KeyPassphrase != "" {
			keyManager = FileSSHKeyManager{}
		} else {
			keyManager = AgentSSHKeyManager{}
		}

		keys, err := keyManager.ReadPrivateKeys(s.KeyPassphrase)
		if err != nil {
			return nil, err
		}

		authMethod = ssh.PublicKeysCallback(func() ([]ssh.Signer, error) {
			return keys, nil
		})
	}

	return &ssh.ClientConfig{
		User:            s.User,
		Auth:            []ssh.AuthMethod{authMethod},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}, nil
}

func (s *SSHCommandManager) addr() string {
	port := s.Port
	if port == "" {
		port = "22"
	}
	return net.JoinHostPort(s.Hostname, port)
}

func (s *SSHCommandManager) Run(ctx context.Context, config CommandConfig) (CommandResult, error) {
	if s.Dialer == nil {
		return CommandResult{}, errors.New("SSH dialer is not initialized")
	}

	sshConfig, err := s.sshConfig()
	if err != nil {
		return CommandResult{}, err
	}

	dialTimeout := defaultDialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		dialTimeout = time.Until(deadline)
	}

	client, err := s.Dialer.Dial("tcp", s.addr(), sshConfig, dialTimeout)
	if err != nil {
		return CommandResult{}, err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return CommandResult{}, err
	}
	defer session.Close()

	cmdStr := config.Command
	if len(config.Args) > 0 {
		cmdStr += " " + strings.Join(config.Args, " ")
	}
	for _, kv := range config.Env {
		cmdStr = kv + " " + cmdStr
	}
	if config.Sudo {
		cmdStr = "sudo -S " + cmdStr
		session.Stdin = strings.NewReader(s.SudoPassword + "\n")
	}

	s.logger().WithFields(logrus.Fields{
		"hostname": s.Hostname,
		"command":  cmdStr,
	}).Debug("Executing remote command")

	start := time.Now()

	var stdout, stderr strings.Builder
	session.Stdout = &stdout
	session.Stderr = &stderr

	type remoteOutcome struct {
		result CommandResult
		err    error
	}

	outputCh := make(chan remoteOutcome, 1)
	go func() {
		var result CommandResult
		runErr := session.Run(cmdStr)
		if runErr != nil {
			result.ExitCode = remoteExitCode(runErr)
		}
		result.STDOUT = stdout.String()
		result.STDERR = stderr.String()
		outputCh <- remoteOutcome{result: result, err: runErr}
	}()

	select {
	case outcome := <-outputCh:
		result := outcome.result
		result.Command = cmdStr
		result.Duration = time.Since(start)
		result.Timestamp = start

		if strings.Contains(result.STDOUT, "incorrect password") {
			return result, errors.New("sudo: incorrect password provided")
		}
		if strings.Contains(result.STDOUT, "is not in the sudoers file") {
			return result, errors.New("sudo: user is not in the sudoers file")
		}
		return result, outcome.err

	case <-ctx.Done():
		s.logger().WithFields(logrus.Fields{
			"hostname": s.Hostname,
			"command":  cmdStr,
		}).Error("Remote command timed out")
		return CommandResult{}, ctx.Err()
	}
}

func remoteExitCode(err error) int {
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus()
	}
	return 1
}
