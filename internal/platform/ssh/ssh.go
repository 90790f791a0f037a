package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/imamik/kuberoll/internal/util/retry"
)

const (
	defaultPort        = 22
	defaultDialTimeout = 10 * time.Second
	defaultMaxRetries  = 5
	defaultRetryDelay  = 2 * time.Second
	defaultMaxDelay    = 30 * time.Second
)

// Config holds the settings shared by every host.
type Config struct {
	User       string
	Port       int
	PrivateKey []byte

	// KnownHostsPath enables host key verification. Ignored when HostKeyCallback is set.
	KnownHostsPath string

	// DialTimeout bounds the TCP connect and SSH handshake.
	DialTimeout time.Duration

	// MaxRetries is the number of reconnect attempts after the first failure.
	// Nil uses the default; zero dials once.
	MaxRetries *int

	// RetryDelay is the initial delay between reconnect attempts.
	RetryDelay time.Duration

	// HostKeyCallback overrides KnownHostsPath. If both are empty, host keys
	// are not verified.
	HostKeyCallback ssh.HostKeyCallback
}

// Result is the outcome of one remote command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Executor runs commands on remote hosts over SSH.
// The private key is parsed once; a connection is opened per Execute call.
type Executor struct {
	config *Config
	signer ssh.Signer
	log    logr.Logger
}

// NewExecutor validates cfg and parses the private key.
func NewExecutor(cfg *Config, log logr.Logger) (*Executor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("config user cannot be empty")
	}
	if len(cfg.PrivateKey) == 0 {
		return nil, fmt.Errorf("config private key cannot be empty")
	}

	// Copy config to avoid mutating caller's struct
	configCopy := *cfg

	if configCopy.Port == 0 {
		configCopy.Port = defaultPort
	}
	if configCopy.DialTimeout == 0 {
		configCopy.DialTimeout = defaultDialTimeout
	}
	maxRetries := defaultMaxRetries
	if configCopy.MaxRetries != nil {
		maxRetries = *configCopy.MaxRetries
	}
	configCopy.MaxRetries = &maxRetries
	if configCopy.RetryDelay == 0 {
		configCopy.RetryDelay = defaultRetryDelay
	}
	if configCopy.HostKeyCallback == nil {
		if configCopy.KnownHostsPath != "" {
			callback, err := knownhosts.New(configCopy.KnownHostsPath)
			if err != nil {
				return nil, fmt.Errorf("failed to load known hosts: %w", err)
			}
			configCopy.HostKeyCallback = callback
		} else {
			log.Info("host key verification disabled, set ssh.known_hosts_path to enable it")
			configCopy.HostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // Opt-in verification
		}
	}

	signer, err := ssh.ParsePrivateKey(configCopy.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &Executor{
		config: &configCopy,
		signer: signer,
		log:    log.WithName("ssh"),
	}, nil
}

// Execute runs command on host. host may carry its own port ("10.0.0.5:2222").
//
// A command that ran and exited non-zero is not an error: the exit status is
// in Result.ExitCode and the caller decides. err is set only when the command
// could not be run or its status is unknown.
func (e *Executor) Execute(ctx context.Context, host, command string) (Result, error) {
	addr := e.address(host)
	log := e.log.WithValues("host", addr)

	client, err := e.connect(ctx, addr)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = client.Close() }()

	log.V(1).Info("running command", "command", command)
	return e.run(ctx, client, addr, command)
}

// address joins host with the configured port unless host already has one.
func (e *Executor) address(host string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, strconv.Itoa(e.config.Port))
}

// connect establishes an SSH connection with retry logic.
func (e *Executor) connect(ctx context.Context, addr string) (*ssh.Client, error) {
	clientConfig := &ssh.ClientConfig{
		User: e.config.User,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(e.signer),
		},
		HostKeyCallback: e.config.HostKeyCallback,
		Timeout:         e.config.DialTimeout,
	}

	var client *ssh.Client
	err := retry.WithExponentialBackoff(ctx, func() error {
		var dialErr error
		client, dialErr = dial(ctx, addr, clientConfig)
		if isAuthError(dialErr) {
			return retry.Fatal(dialErr)
		}
		return dialErr
	},
		retry.WithMaxRetries(*e.config.MaxRetries),
		retry.WithInitialDelay(e.config.RetryDelay),
		retry.WithMaxDelay(defaultMaxDelay),
		retry.WithOnRetry(func(attempt int, err error, next time.Duration) {
			e.log.Info("ssh connection failed, retrying", "host", addr, "attempt", attempt, "retryIn", next.String(), "error", err.Error())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to establish SSH connection to %s: %w", addr, err)
	}

	return client, nil
}

// dial opens the TCP connection with ctx and performs the SSH handshake.
func dial(ctx context.Context, addr string, cfg *ssh.ClientConfig) (*ssh.Client, error) {
	dialer := &net.Dialer{Timeout: cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	if cfg.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(cfg.Timeout))
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})

	return ssh.NewClient(c, chans, reqs), nil
}

// isAuthError reports handshake failures that a retry cannot fix.
func isAuthError(err error) bool {
	if err == nil {
		return false
	}
	var keyErr *knownhosts.KeyError
	if errors.As(err, &keyErr) {
		return true
	}
	var revokedErr *knownhosts.RevokedError
	if errors.As(err, &revokedErr) {
		return true
	}
	// x/crypto/ssh reports exhausted auth methods with an untyped error.
	return strings.Contains(err.Error(), "ssh: unable to authenticate")
}

// run executes command in a new session. The session is closed when ctx is done.
func (e *Executor) run(ctx context.Context, client *ssh.Client, addr, command string) (Result, error) {
	session, err := client.NewSession()
	if err != nil {
		return Result{}, fmt.Errorf("failed to create SSH session on %s: %w", addr, err)
	}
	defer func() { _ = session.Close() }()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = session.Close()
		case <-done:
		}
	}()

	err = session.Run(command)
	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *ssh.ExitError
	switch {
	case err == nil:
		return result, nil
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitStatus()
		return result, nil
	case ctx.Err() != nil:
		return result, fmt.Errorf("command on %s interrupted: %w", addr, ctx.Err())
	default:
		return result, fmt.Errorf("command failed on %s: %w", addr, err)
	}
}
