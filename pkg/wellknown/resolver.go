/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package wellknown resolves the parties of a value transfer to their endpoints. Public DIDs come
// from a static registry; derived DIDs carry their endpoint in the identifier itself.
package wellknown

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bluele/gcache"
	"github.com/btcsuite/btcutil/base58"
	"github.com/google/uuid"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/doc/vtp"
)

const (
	peerPrefix      = "did:peer:2"
	endpointElement = ".E"
	nonceElement    = ".N"

	defaultCacheSize = 256
	defaultCacheTTL  = 10 * time.Minute
)

var (
	// ErrNotFound is returned when a DID cannot be resolved.
	ErrNotFound = errors.New("DID not found")
	// ErrInvalidDID is returned for a malformed derived DID.
	ErrInvalidDID = errors.New("invalid derived DID")
)

// Option configures the Resolver.
type Option func(r *Resolver)

// WithCacheSize sets the number of cached resolutions.
func WithCacheSize(size int) Option {
	return func(r *Resolver) {
		r.cacheSize = size
	}
}

// WithCacheTTL sets how long a resolution stays cached.
func WithCacheTTL(ttl time.Duration) Option {
	return func(r *Resolver) {
		r.cacheTTL = ttl
	}
}

// WithParties pre-registers parties.
func WithParties(parties ...vtp.PartyInfo) Option {
	return func(r *Resolver) {
		for _, p := range parties {
			r.registry[p.DID] = p
		}
	}
}

// Resolver maps DIDs to party information.
type Resolver struct {
	mu        sync.RWMutex
	registry  map[string]vtp.PartyInfo
	cache     gcache.Cache
	cacheSize int
	cacheTTL  time.Duration
}

// New creates a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		registry:  map[string]vtp.PartyInfo{},
		cacheSize: defaultCacheSize,
		cacheTTL:  defaultCacheTTL,
	}

	for _, opt := range opts {
		opt(r)
	}

	r.cache = gcache.New(r.cacheSize).LRU().Expiration(r.cacheTTL).
		LoaderFunc(func(key interface{}) (interface{}, error) {
			return r.load(key.(string)) //nolint:forcetypeassert
		}).Build()

	return r
}

// Register adds or replaces a party.
func (r *Resolver) Register(info vtp.PartyInfo) {
	r.mu.Lock()
	r.registry[info.DID] = info
	r.mu.Unlock()

	r.cache.Remove(info.DID)
}

// Resolve returns the party information of did.
func (r *Resolver) Resolve(did string) (*vtp.PartyInfo, error) {
	if did == "" {
		return nil, fmt.Errorf("resolve: %w", ErrNotFound)
	}

	v, err := r.cache.Get(did)
	if err != nil {
		return nil, err
	}

	info := v.(vtp.PartyInfo) //nolint:forcetypeassert

	return &info, nil
}

func (r *Resolver) load(did string) (vtp.PartyInfo, error) {
	r.mu.RLock()
	info, ok := r.registry[did]
	r.mu.RUnlock()

	if ok {
		return info, nil
	}

	if !IsPeerDID(did) {
		return vtp.PartyInfo{}, fmt.Errorf("resolve %s: %w", did, ErrNotFound)
	}

	endpoint, err := PeerDIDEndpoint(did)
	if err != nil {
		return vtp.PartyInfo{}, err
	}

	return vtp.PartyInfo{DID: did, Endpoint: endpoint}, nil
}

// NewPeerDID derives a fresh DID reachable at endpoint.
func NewPeerDID(endpoint string) string {
	nonce := uuid.New()

	return peerPrefix + endpointElement + base58.Encode([]byte(endpoint)) +
		nonceElement + base58.Encode(nonce[:])
}

// IsPeerDID reports whether did is a derived DID.
func IsPeerDID(did string) bool {
	return strings.HasPrefix(did, peerPrefix+endpointElement)
}

// PeerDIDEndpoint extracts the endpoint of a derived DID.
func PeerDIDEndpoint(did string) (string, error) {
	if !IsPeerDID(did) {
		return "", fmt.Errorf("%w: %s", ErrInvalidDID, did)
	}

	elements := strings.Split(strings.TrimPrefix(did, peerPrefix), ".")

	for _, e := range elements {
		if !strings.HasPrefix(e, "E") {
			continue
		}

		endpoint := base58.Decode(e[1:])
		if len(endpoint) == 0 {
			return "", fmt.Errorf("%w: empty endpoint in %s", ErrInvalidDID, did)
		}

		return string(endpoint), nil
	}

	return "", fmt.Errorf("%w: no endpoint in %s", ErrInvalidDID, did)
}
