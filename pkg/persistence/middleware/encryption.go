package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/arbor/pkg/ports"
	"github.com/paulmach/orb/geojson"
)

// EncryptionConfig holds the AES-256 keys of the envelope.
type EncryptionConfig struct {
	// ActiveKey seals new snapshots. Must be 32 bytes.
	ActiveKey []byte
	// FallbackKeys are tried after ActiveKey when opening, oldest rotation last.
	FallbackKeys [][]byte
}

// EnvelopeMember is the member of the stored collection carrying the ciphertext.
const EnvelopeMember = "arbor_encrypted"

type encryptionMiddleware struct {
	next   ports.SnapshotStore
	config EncryptionConfig
}

// NewEncryptionMiddleware seals snapshots with AES-GCM. The stored collection is an
// empty envelope whose EnvelopeMember holds the base64 ciphertext. It panics on a key
// that is not 32 bytes long.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}
}

func (m *encryptionMiddleware) Save(ctx context.Context, key string, fc *geojson.FeatureCollection) error {
	plain, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	sealed, err := seal(m.config.ActiveKey, plain, []byte(key))
	if err != nil {
		return fmt.Errorf("failed to encrypt snapshot: %w", err)
	}

	envelope := geojson.NewFeatureCollection()
	envelope.ExtraMembers = geojson.Properties{
		EnvelopeMember: base64.StdEncoding.EncodeToString(sealed),
	}
	return m.next.Save(ctx, key, envelope)
}

// Load opens the envelope stored under key. Envelopes are bound to their key, so one
// copied under another key does not open.
func (m *encryptionMiddleware) Load(ctx context.Context, key string) (*geojson.FeatureCollection, error) {
	envelope, err := m.next.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	encoded, ok := envelope.ExtraMembers[EnvelopeMember].(string)
	if !ok {
		return nil, fmt.Errorf("snapshot %q is not an encrypted envelope", key)
	}
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode envelope of %q: %w", key, err)
	}

	keys := append([][]byte{m.config.ActiveKey}, m.config.FallbackKeys...)
	plain, err := open(keys, sealed, []byte(key))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt snapshot %q: %w", key, err)
	}
	return geojson.UnmarshalFeatureCollection(plain)
}

func (m *encryptionMiddleware) Delete(ctx context.Context, key string) error {
	return m.next.Delete(ctx, key)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

var errNoKey = errors.New("no key opens the envelope")

func aead(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// seal returns nonce || ciphertext.
func seal(key, plain, aad []byte) ([]byte, error) {
	gcm, err := aead(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plain, aad), nil
}

// open tries keys in order.
func open(keys [][]byte, sealed, aad []byte) ([]byte, error) {
	for _, key := range keys {
		gcm, err := aead(key)
		if err != nil {
			continue
		}
		if len(sealed) < gcm.NonceSize() {
			return nil, errors.New("envelope too short")
		}
		nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
		if plain, err := gcm.Open(nil, nonce, ciphertext, aad); err == nil {
			return plain, nil
		}
	}
	return nil, errNoKey
}
