package sources

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/polcheck/polcheck/pkg/parser"
)

// AuthMethod represents the type of SSH authentication.
type AuthMethod string

const (
	// AuthMethodPassword uses password authentication
	AuthMethodPassword AuthMethod = "password"

	// AuthMethodKey uses private key authentication
	AuthMethodKey AuthMethod = "key"
)

// SFTPConfig holds connection settings for sftp:// document retrieval.
type SFTPConfig struct {
	// User is the SSH username, used when the URL carries none.
	User string

	// AuthMethod specifies which authentication method to use.
	AuthMethod AuthMethod

	// Password for password-based authentication.
	Password string

	// PrivateKeyPath is the path to the private key file.
	PrivateKeyPath string

	// PrivateKeyPassphrase is the passphrase for encrypted private keys.
	PrivateKeyPassphrase string

	// KnownHostsPath is the path to the known_hosts file.
	// If empty, host key verification is disabled.
	KnownHostsPath string

	// StrictHostKeyChecking enables strict host key verification.
	StrictHostKeyChecking bool

	// ConnectionTimeout is the timeout for establishing a connection.
	ConnectionTimeout time.Duration
}

// DefaultSFTPConfig returns an SFTPConfig with sensible defaults.
func DefaultSFTPConfig() *SFTPConfig {
	return &SFTPConfig{
		AuthMethod:            AuthMethodKey,
		KnownHostsPath:        filepath.Join(os.Getenv("HOME"), ".ssh", "known_hosts"),
		StrictHostKeyChecking: true,
		ConnectionTimeout:     30 * time.Second,
	}
}

// Validate checks if the configuration is valid.
func (c *SFTPConfig) Validate() error {
	switch c.AuthMethod {
	case AuthMethodPassword:
		if c.Password == "" {
			return fmt.Errorf("password is required for password authentication")
		}
	case AuthMethodKey:
		if c.PrivateKeyPath == "" {
			// Try default key locations
			homeDir := os.Getenv("HOME")
			defaultKeys := []string{
				filepath.Join(homeDir, ".ssh", "id_ed25519"),
				filepath.Join(homeDir, ".ssh", "id_rsa"),
				filepath.Join(homeDir, ".ssh", "id_ecdsa"),
			}
			for _, keyPath := range defaultKeys {
				if _, err := os.Stat(keyPath); err == nil {
					c.PrivateKeyPath = keyPath
					break
				}
			}
			if c.PrivateKeyPath == "" {
				return fmt.Errorf("private key path is required for key authentication and no default key found")
			}
		}
		if _, err := os.Stat(c.PrivateKeyPath); os.IsNotExist(err) {
			return fmt.Errorf("private key file not found: %s", c.PrivateKeyPath)
		}
	default:
		return fmt.Errorf("unsupported auth method: %s", c.AuthMethod)
	}

	if c.ConnectionTimeout <= 0 {
		return fmt.Errorf("connection timeout must be positive")
	}

	return nil
}

// buildClientConfig creates an ssh.ClientConfig from the SFTPConfig.
func (c *SFTPConfig) buildClientConfig(user string) (*ssh.ClientConfig, error) {
	var authMethods []ssh.AuthMethod

	switch c.AuthMethod {
	case AuthMethodPassword:
		authMethods = append(authMethods, ssh.Password(c.Password))
	case AuthMethodKey:
		keyBytes, err := os.ReadFile(c.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key: %w", err)
		}

		var signer ssh.Signer
		if c.PrivateKeyPassphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(keyBytes, []byte(c.PrivateKeyPassphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(keyBytes)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}

		authMethods = append(authMethods, ssh.PublicKeys(signer))
	}

	// Configure host key callback
	var hostKeyCallback ssh.HostKeyCallback
	if c.KnownHostsPath != "" && c.StrictHostKeyChecking {
		var err error
		hostKeyCallback, err = knownhosts.New(c.KnownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load known_hosts: %w", err)
		}
	} else {
		// Insecure: accept any host key (only for testing/development)
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	}

	return &ssh.ClientConfig{
		User:            user,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         c.ConnectionTimeout,
	}, nil
}

// sftpLocation is a parsed sftp:// URL.
type sftpLocation struct {
	user string
	host string
	port int
	path string
}

// parseSFTPLocation splits an sftp://user@host:port/path URL.
func parseSFTPLocation(location string) (sftpLocation, error) {
	u, err := url.Parse(location)
	if err != nil {
		return sftpLocation{}, fmt.Errorf("invalid sftp URL: %w", err)
	}
	if u.Scheme != "sftp" {
		return sftpLocation{}, fmt.Errorf("invalid sftp URL scheme: %s", u.Scheme)
	}
	if u.Hostname() == "" {
		return sftpLocation{}, fmt.Errorf("sftp URL is missing a host: %s", location)
	}
	if u.Path == "" {
		return sftpLocation{}, fmt.Errorf("sftp URL is missing a path: %s", location)
	}

	loc := sftpLocation{
		user: u.User.Username(),
		host: u.Hostname(),
		port: 22,
		path: u.Path,
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return sftpLocation{}, fmt.Errorf("invalid sftp port: %s", p)
		}
		loc.port = port
	}

	return loc, nil
}

// fetchSFTP retrieves a document from an sftp:// location.
func (r *Resolver) fetchSFTP(ctx context.Context, location string) (parser.Document, error) {
	loc, err := parseSFTPLocation(location)
	if err != nil {
		return parser.Document{}, &FetchError{Op: "parse", Location: location, Err: err}
	}

	cfg := r.SFTP
	if cfg == nil {
		cfg = DefaultSFTPConfig()
	}
	if err := cfg.Validate(); err != nil {
		return parser.Document{}, &FetchError{Op: "configure", Location: location, Err: err}
	}

	user := loc.user
	if user == "" {
		user = cfg.User
	}
	if user == "" {
		return parser.Document{}, &FetchError{
			Op:       "configure",
			Location: location,
			Err:      fmt.Errorf("no user in URL or configuration"),
		}
	}

	clientConfig, err := cfg.buildClientConfig(user)
	if err != nil {
		return parser.Document{}, &FetchError{Op: "configure", Location: location, Err: err}
	}

	address := fmt.Sprintf("%s:%d", loc.host, loc.port)
	r.logger.Debug().Str("address", address).Str("path", loc.path).Msg("Fetching document over sftp")

	sshClient, err := dialWithContext(ctx, address, clientConfig)
	if err != nil {
		return parser.Document{}, &FetchError{Op: "connect", Location: location, Err: err, IsTemporary: true}
	}
	defer sshClient.Close()

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		return parser.Document{}, &FetchError{Op: "sftp", Location: location, Err: err, IsTemporary: true}
	}
	defer sftpClient.Close()

	file, err := sftpClient.Open(loc.path)
	if err != nil {
		return parser.Document{}, &FetchError{Op: "open", Location: location, Err: err}
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return parser.Document{}, &FetchError{Op: "read", Location: location, Err: err, IsTemporary: true}
	}

	r.logger.Info().Str("address", address).Str("path", loc.path).Int("bytes", len(content)).Msg("Document fetched")

	return parser.Document{
		Name:    location,
		Content: content,
	}, nil
}

// dialWithContext establishes an SSH connection honoring context
// cancellation.
func dialWithContext(ctx context.Context, address string, clientConfig *ssh.ClientConfig) (*ssh.Client, error) {
	connChan := make(chan *ssh.Client)
	errChan := make(chan error, 1)

	go func() {
		client, err := ssh.Dial("tcp", address, clientConfig)
		if err != nil {
			errChan <- err
			return
		}
		select {
		case connChan <- client:
		case <-ctx.Done():
			// Nobody is waiting for the connection anymore.
			_ = client.Close()
		}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-errChan:
		return nil, err
	case client := <-connChan:
		return client, nil
	}
}
