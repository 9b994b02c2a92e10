package clients

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ruteri/ork-registry/api"
	"github.com/ruteri/ork-registry/api/auth"
	"github.com/ruteri/ork-registry/interfaces"
)

// ErrNoSigningKey is returned when an action is submitted by a read-only client.
var ErrNoSigningKey = errors.New("client has no signing key")

// RegistryClient talks to the registry HTTP API.
// Actions are signed with the configured key; queries are sent unsigned.
type RegistryClient struct {
	baseURL    string
	key        *ecdsa.PrivateKey
	httpClient *http.Client
	now        func() time.Time
}

// NewRegistryClient creates a client for the registry at baseURL
// (e.g. "http://localhost:8080"). key may be nil for a query-only client.
func NewRegistryClient(baseURL string, key *ecdsa.PrivateKey, timeout ...time.Duration) *RegistryClient {
	clientTimeout := 30 * time.Second
	if len(timeout) > 0 {
		clientTimeout = timeout[0]
	}

	return &RegistryClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		httpClient: &http.Client{
			Timeout: clientTimeout,
		},
		now: time.Now,
	}
}

// Identity returns the identity the client signs as.
func (c *RegistryClient) Identity() (interfaces.Identity, error) {
	if c.key == nil {
		return interfaces.Identity{}, ErrNoSigningKey
	}
	return interfaces.IdentityFromPubkey(&c.key.PublicKey), nil
}

func (c *RegistryClient) SeedRoot(ctx context.Context) (*interfaces.ActionRecord, error) {
	return c.action(ctx, api.SeedRootPath, nil)
}

// AddOrk claims a custodian username for account, or updates its public key
// and URL when the caller already owns it.
func (c *RegistryClient) AddOrk(ctx context.Context, req api.AddOrkRequest) (*interfaces.ActionRecord, error) {
	return c.action(ctx, api.AddOrkPath, req)
}

func (c *RegistryClient) InitUser(ctx context.Context, req api.InitUserRequest) (*interfaces.ActionRecord, error) {
	return c.action(ctx, api.InitUserPath, req)
}

func (c *RegistryClient) ConfirmUser(ctx context.Context, req api.ConfirmUserRequest) (*interfaces.ActionRecord, error) {
	return c.action(ctx, api.ConfirmUserPath, req)
}

// PostFragment stores a key fragment. The client key must belong to the
// account of the custodian named in req.Ork.
func (c *RegistryClient) PostFragment(ctx context.Context, req api.PostFragmentRequest) (*interfaces.ActionRecord, error) {
	return c.action(ctx, api.PostFragmentPath, req)
}

// Snapshot asks the registry to archive its ledger state. Owner only.
func (c *RegistryClient) Snapshot(ctx context.Context) (*api.SnapshotResponse, error) {
	var resp api.SnapshotResponse
	if err := c.do(ctx, http.MethodPost, api.SnapshotPath, nil, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *RegistryClient) GetUser(ctx context.Context, username interfaces.Username) (*interfaces.User, error) {
	var user interfaces.User
	if err := c.do(ctx, http.MethodGet, api.UsersPath+"/"+url.PathEscape(string(username)), nil, false, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UserOrks lists the custodians holding fragments for username.
// An empty vendor lists custodians across all vendors.
func (c *RegistryClient) UserOrks(ctx context.Context, username, vendor interfaces.Username) ([]interfaces.Ork, error) {
	path := api.UsersPath + "/" + url.PathEscape(string(username)) + "/orks"
	if vendor != "" {
		path += "?" + url.Values{"vendor": {string(vendor)}}.Encode()
	}

	var orks []interfaces.Ork
	if err := c.do(ctx, http.MethodGet, path, nil, false, &orks); err != nil {
		return nil, err
	}
	return orks, nil
}

func (c *RegistryClient) GetOrk(ctx context.Context, username interfaces.Username) (*interfaces.Ork, error) {
	var ork interfaces.Ork
	if err := c.do(ctx, http.MethodGet, api.OrksPath+"/"+url.PathEscape(string(username)), nil, false, &ork); err != nil {
		return nil, err
	}
	return &ork, nil
}

func (c *RegistryClient) ListOrks(ctx context.Context) ([]interfaces.Ork, error) {
	var orks []interfaces.Ork
	if err := c.do(ctx, http.MethodGet, api.OrksPath, nil, false, &orks); err != nil {
		return nil, err
	}
	return orks, nil
}

// GetContainer fetches the fragment container of username in the scope of
// the custodian account.
func (c *RegistryClient) GetContainer(ctx context.Context, account interfaces.Identity, username interfaces.Username) (*interfaces.Container, error) {
	path := fmt.Sprintf("%s/%s/%s", api.ContainersPath, account.String(), url.PathEscape(string(username)))

	var container interfaces.Container
	if err := c.do(ctx, http.MethodGet, path, nil, false, &container); err != nil {
		return nil, err
	}
	return &container, nil
}

// Actions pages through committed action records starting at sequence from.
// A non-positive limit uses the server default.
func (c *RegistryClient) Actions(ctx context.Context, from uint64, limit int) ([]interfaces.ActionRecord, error) {
	query := url.Values{"from": {strconv.FormatUint(from, 10)}}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var records []interfaces.ActionRecord
	if err := c.do(ctx, http.MethodGet, api.ActionsPrefix+"?"+query.Encode(), nil, false, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Head returns the sequence of the last committed action.
func (c *RegistryClient) Head(ctx context.Context) (uint64, error) {
	var resp api.HeadResponse
	if err := c.do(ctx, http.MethodGet, api.HeadPath, nil, false, &resp); err != nil {
		return 0, err
	}
	return resp.Head, nil
}

func (c *RegistryClient) action(ctx context.Context, path string, body any) (*interfaces.ActionRecord, error) {
	var record interfaces.ActionRecord
	if err := c.do(ctx, http.MethodPost, path, body, true, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *RegistryClient) do(ctx context.Context, method, path string, body any, signed bool, out any) error {
	if signed && c.key == nil {
		return ErrNoSigningKey
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if signed {
		if err := auth.SignRequest(req, c.key, c.now()); err != nil {
			return fmt.Errorf("failed to sign request: %w", err)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// decodeError rebuilds the registry error from an error response so callers
// can match it with errors.Is.
func decodeError(resp *http.Response) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("request failed with code %d", resp.StatusCode)
	}

	var errResp api.ErrorResponse
	if err := json.Unmarshal(raw, &errResp); err != nil || errResp.Code == "" {
		return fmt.Errorf("request failed with code %d: %s", resp.StatusCode, string(raw))
	}

	if sentinel := api.ErrorForCode(errResp.Code); sentinel != nil {
		return fmt.Errorf("%w (%d): %s", sentinel, resp.StatusCode, errResp.Error)
	}
	return fmt.Errorf("request failed with code %d (%s): %s", resp.StatusCode, errResp.Code, errResp.Error)
}
