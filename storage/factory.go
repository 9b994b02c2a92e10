package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/ruteri/ork-registry/interfaces"
)

type backendConstructor func(loc *url.URL, log *slog.Logger) (interfaces.StorageBackend, error)

// StorageBackendFactory turns snapshot location URIs into backends.
type StorageBackendFactory struct {
	log          *slog.Logger
	constructors map[string]backendConstructor
}

func NewStorageBackendFactory(logger *slog.Logger) *StorageBackendFactory {
	return &StorageBackendFactory{
		log: logger,
		constructors: map[string]backendConstructor{
			"file":  fileFromLocation,
			"s3":    s3FromLocation,
			"vault": vaultFromLocation,
			"ipfs":  ipfsFromLocation,
		},
	}
}

// ParseLocation validates a snapshot location URI.
func ParseLocation(uri string) (*url.URL, error) {
	loc, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
	}
	loc.Scheme = strings.ToLower(loc.Scheme)
	if loc.Scheme == "" {
		return nil, fmt.Errorf("%w: %q has no scheme", interfaces.ErrInvalidLocationURI, uri)
	}
	return loc, nil
}

// BackendFor builds the backend for a single location.
func (sf *StorageBackendFactory) BackendFor(loc *url.URL) (interfaces.StorageBackend, error) {
	build, ok := sf.constructors[loc.Scheme]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported scheme %q", interfaces.ErrInvalidLocationURI, loc.Scheme)
	}
	return build(loc, sf.log)
}

// BackendFromURIs returns the backend for one URI, or a MultiStorageBackend
// replicating across several. Any malformed URI fails the whole set.
func (sf *StorageBackendFactory) BackendFromURIs(uris []string) (interfaces.StorageBackend, error) {
	if len(uris) == 0 {
		return nil, errors.New("no snapshot locations configured")
	}

	backends := make([]interfaces.StorageBackend, 0, len(uris))
	for _, uri := range uris {
		loc, err := ParseLocation(uri)
		if err != nil {
			return nil, err
		}
		backend, err := sf.BackendFor(loc)
		if err != nil {
			return nil, err
		}
		sf.log.Debug("Configured snapshot backend", "backend", backend.String())
		backends = append(backends, backend)
	}

	if len(backends) == 1 {
		return backends[0], nil
	}
	return NewMultiStorageBackend(backends, sf.log), nil
}

// file:///abs/dir or file://./rel/dir
func fileFromLocation(loc *url.URL, log *slog.Logger) (interfaces.StorageBackend, error) {
	dir := filepath.FromSlash(loc.Host + loc.Path)
	if dir == "" {
		return nil, fmt.Errorf("%w: file location needs a directory", interfaces.ErrInvalidLocationURI)
	}
	return NewFileBackend(dir, log)
}

// s3://[KEY:SECRET@]bucket/prefix?region=eu-west-1&endpoint=http://minio:9000
func s3FromLocation(loc *url.URL, log *slog.Logger) (interfaces.StorageBackend, error) {
	if loc.Host == "" {
		return nil, fmt.Errorf("%w: s3 location needs a bucket", interfaces.ErrInvalidLocationURI)
	}

	cfg := S3Config{
		Bucket:   loc.Host,
		Prefix:   strings.Trim(loc.Path, "/"),
		Region:   loc.Query().Get("region"),
		Endpoint: loc.Query().Get("endpoint"),
	}
	if loc.User != nil {
		cfg.AccessKey = loc.User.Username()
		cfg.SecretKey, _ = loc.User.Password()
	}
	return NewS3Backend(cfg, log)
}

// vault://[TOKEN@]host:8200/mount/path?tls=true
func vaultFromLocation(loc *url.URL, log *slog.Logger) (interfaces.StorageBackend, error) {
	if loc.Host == "" {
		return nil, fmt.Errorf("%w: vault location needs an address", interfaces.ErrInvalidLocationURI)
	}

	mount, dir, _ := strings.Cut(strings.Trim(loc.Path, "/"), "/")
	scheme := "http"
	if tls := loc.Query().Get("tls"); tls == "true" || tls == "1" {
		scheme = "https"
	}
	token := loc.Query().Get("token")
	if token == "" && loc.User != nil {
		token = loc.User.Username()
	}

	return NewVaultBackend(VaultConfig{
		Address: scheme + "://" + loc.Host,
		Mount:   mount,
		Dir:     dir,
		Token:   token,
	}, log)
}

// ipfs://host:5001/mfs/dir?timeout=30s
func ipfsFromLocation(loc *url.URL, log *slog.Logger) (interfaces.StorageBackend, error) {
	apiAddr := loc.Host
	if loc.Port() == "" {
		apiAddr += ":5001"
	}

	timeout := 30 * time.Second
	if raw := loc.Query().Get("timeout"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: bad ipfs timeout %q", interfaces.ErrInvalidLocationURI, raw)
		}
		timeout = parsed
	}
	return NewIPFSBackend(apiAddr, loc.Path, timeout, log), nil
}
