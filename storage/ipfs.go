package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
	"github.com/ruteri/ork-registry/interfaces"
)

// IPFSBackend writes snapshots into the mutable file system of one IPFS
// node, which keeps them pinned there. Files live at <dir>/<content id>.json.
type IPFSBackend struct {
	sh      *shell.Shell
	apiAddr string
	dir     string
	timeout time.Duration
	log     *slog.Logger
}

func NewIPFSBackend(apiAddr, dir string, timeout time.Duration, log *slog.Logger) *IPFSBackend {
	dir = "/" + strings.Trim(dir, "/")
	if dir == "/" {
		dir = "/ork-registry"
	}

	sh := shell.NewShell(apiAddr)
	sh.SetTimeout(timeout)
	return &IPFSBackend{sh: sh, apiAddr: apiAddr, dir: dir, timeout: timeout, log: log}
}

func (b *IPFSBackend) file(id interfaces.ContentID) string {
	return path.Join(b.dir, id.String()+".json")
}

func (b *IPFSBackend) Store(ctx context.Context, data []byte) (interfaces.ContentID, error) {
	id := interfaces.ComputeID(data)
	err := b.sh.FilesWrite(ctx, b.file(id), bytes.NewReader(data),
		shell.FilesWrite.Create(true),
		shell.FilesWrite.Parents(true),
		shell.FilesWrite.Truncate(true))
	if err != nil {
		return id, fmt.Errorf("ipfs write %s: %w", b.file(id), err)
	}

	// the CID is logged so operators can pin the snapshot elsewhere
	if stat, err := b.sh.FilesStat(ctx, b.file(id)); err == nil {
		b.log.Debug("Wrote snapshot to MFS", "path", b.file(id), "cid", stat.Hash)
	}
	return id, nil
}

func (b *IPFSBackend) Fetch(ctx context.Context, id interfaces.ContentID) ([]byte, error) {
	r, err := b.sh.FilesRead(ctx, b.file(id))
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") {
			return nil, interfaces.ErrContentNotFound
		}
		return nil, fmt.Errorf("ipfs read %s: %w", b.file(id), err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (b *IPFSBackend) Ping(ctx context.Context) error {
	if !b.sh.IsUp() {
		return fmt.Errorf("%w: ipfs node %s is down", interfaces.ErrBackendUnavailable, b.apiAddr)
	}
	return nil
}

func (b *IPFSBackend) String() string {
	return fmt.Sprintf("ipfs://%s%s?timeout=%s", b.apiAddr, b.dir, b.timeout)
}
