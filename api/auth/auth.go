package auth

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/ork-registry/cryptoutils"
	"github.com/ruteri/ork-registry/interfaces"
	"github.com/ruteri/ork-registry/metrics"
)

const (
	SignerHeader    = "X-Ork-Signer"
	TimestampHeader = "X-Ork-Timestamp"
	NonceHeader     = "X-Ork-Nonce"
	SignatureHeader = "X-Ork-Signature"

	// DefaultMaxSkew bounds how far a request timestamp may drift from the server clock.
	DefaultMaxSkew = 5 * time.Minute

	// maxSignedBody caps the body read while verifying a signature.
	maxSignedBody = 1 << 20
)

var (
	ErrMissingHeaders  = errors.New("missing authentication headers")
	ErrBadTimestamp    = errors.New("malformed timestamp")
	ErrClockSkew       = errors.New("timestamp outside allowed clock skew")
	ErrSignerMismatch  = errors.New("signature does not match signer")
	ErrReplayedRequest = errors.New("nonce already used")
)

type identityKey struct{}

// WithIdentity returns a context carrying the authenticated caller identity.
func WithIdentity(ctx context.Context, id interfaces.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored by Authenticator.Middleware.
func IdentityFromContext(ctx context.Context) (interfaces.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(interfaces.Identity)
	return id, ok
}

// SignRequest sets the authentication headers on req, signing its body with key.
// The body is read and restored so the request can still be sent.
func SignRequest(req *http.Request, key *ecdsa.PrivateKey, now time.Time) error {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		if err != nil {
			return fmt.Errorf("could not read request body: %w", err)
		}
		_ = req.Body.Close()
		req.Body = io.NopCloser(bytes.NewReader(body))
	}

	timestamp := now.Unix()
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")

	digest := cryptoutils.RequestDigest(req.Method, req.URL.Path, timestamp, nonce, body)
	sig, err := cryptoutils.Sign(digest, key)
	if err != nil {
		return err
	}

	req.Header.Set(SignerHeader, interfaces.IdentityFromPubkey(&key.PublicKey).String())
	req.Header.Set(TimestampHeader, strconv.FormatInt(timestamp, 10))
	req.Header.Set(NonceHeader, nonce)
	req.Header.Set(SignatureHeader, hex.EncodeToString(sig))
	return nil
}

// Authenticator verifies signed requests and resolves the caller identity.
type Authenticator struct {
	guard   ReplayGuard
	maxSkew time.Duration
	log     *slog.Logger
	now     func() time.Time
}

func NewAuthenticator(guard ReplayGuard, maxSkew time.Duration, log *slog.Logger) *Authenticator {
	if maxSkew <= 0 {
		maxSkew = DefaultMaxSkew
	}
	return &Authenticator{
		guard:   guard,
		maxSkew: maxSkew,
		log:     log,
		now:     time.Now,
	}
}

// Middleware rejects unsigned or invalid requests with 401 and stores the
// recovered identity in the request context otherwise.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, reason, err := a.Verify(r)
		if err != nil {
			metrics.IncAuthFailure(reason)
			a.log.Warn("Request authentication failed", "path", r.URL.Path, "reason", reason, "err", err)

			status := http.StatusUnauthorized
			if reason == reasonGuardError {
				status = http.StatusServiceUnavailable
			}
			http.Error(w, err.Error(), status)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

const (
	reasonMissingHeaders = "missing_headers"
	reasonBadTimestamp   = "bad_timestamp"
	reasonClockSkew      = "clock_skew"
	reasonBadSignature   = "bad_signature"
	reasonSignerMismatch = "signer_mismatch"
	reasonReplay         = "replay"
	reasonGuardError     = "guard_error"
	reasonBody           = "body"
)

// Verify checks the signature headers of r and returns the signer identity.
// On failure it also returns a short reason label for metrics.
// The request body is restored for downstream handlers.
func (a *Authenticator) Verify(r *http.Request) (interfaces.Identity, string, error) {
	signerHex := r.Header.Get(SignerHeader)
	timestampStr := r.Header.Get(TimestampHeader)
	nonce := r.Header.Get(NonceHeader)
	sigHex := r.Header.Get(SignatureHeader)
	if signerHex == "" || timestampStr == "" || nonce == "" || sigHex == "" {
		return interfaces.Identity{}, reasonMissingHeaders, ErrMissingHeaders
	}

	claimed, err := interfaces.NewIdentityFromHex(signerHex)
	if err != nil {
		return interfaces.Identity{}, reasonMissingHeaders, fmt.Errorf("invalid signer: %w", err)
	}

	timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
	if err != nil {
		return interfaces.Identity{}, reasonBadTimestamp, fmt.Errorf("%w: %w", ErrBadTimestamp, err)
	}
	skew := a.now().Sub(time.Unix(timestamp, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > a.maxSkew {
		return interfaces.Identity{}, reasonClockSkew, fmt.Errorf("%w: %s", ErrClockSkew, skew)
	}

	sig, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
	if err != nil {
		return interfaces.Identity{}, reasonBadSignature, fmt.Errorf("%w: %w", cryptoutils.ErrInvalidSignature, err)
	}

	var body []byte
	if r.Body != nil {
		body, err = io.ReadAll(io.LimitReader(r.Body, maxSignedBody))
		if err != nil {
			return interfaces.Identity{}, reasonBody, fmt.Errorf("could not read request body: %w", err)
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	digest := cryptoutils.RequestDigest(r.Method, r.URL.Path, timestamp, nonce, body)
	signer, err := cryptoutils.RecoverSigner(digest, sig)
	if err != nil {
		return interfaces.Identity{}, reasonBadSignature, err
	}
	if signer != claimed {
		return interfaces.Identity{}, reasonSignerMismatch, fmt.Errorf("%w: recovered %s, claimed %s", ErrSignerMismatch, signer, claimed)
	}

	// The nonce only needs to be remembered while the timestamp is acceptable.
	fresh, err := a.guard.Claim(r.Context(), signer, nonce, 2*a.maxSkew)
	if err != nil {
		return interfaces.Identity{}, reasonGuardError, fmt.Errorf("replay guard: %w", err)
	}
	if !fresh {
		return interfaces.Identity{}, reasonReplay, ErrReplayedRequest
	}

	return signer, "", nil
}
