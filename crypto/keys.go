package crypto

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix defines the human-readable prefix attached to encoded addresses.
type AddressPrefix string

const (
	// SVTPrefix is the prefix used for all stakevault account addresses.
	SVTPrefix AddressPrefix = "svt"
)

// Address represents a 20-byte account address with a bech32 prefix.
type Address struct {
	prefix AddressPrefix
	bytes  []byte
}

func NewAddress(prefix AddressPrefix, b []byte) Address {
	if len(b) != 20 {
		panic("address must be 20 bytes long")
	}
	return Address{prefix: prefix, bytes: b}
}

func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes, 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

func (a Address) Bytes() []byte {
	return a.bytes
}

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

// Equal reports whether two addresses share the same prefix and payload.
func (a Address) Equal(other Address) bool {
	return a.prefix == other.prefix && bytes.Equal(a.bytes, other.bytes)
}

// IsZero reports whether the address carries no payload.
func (a Address) IsZero() bool {
	if len(a.bytes) == 0 {
		return true
	}
	for _, b := range a.bytes {
		if b != 0 {
			return false
		}
	}
	return true
}

func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	if len(conv) != 20 {
		return Address{}, fmt.Errorf("address payload must be 20 bytes, got %d", len(conv))
	}
	return NewAddress(AddressPrefix(prefix), conv), nil
}

// --- Key Management ---

type PrivateKey struct {
	*ecdsa.PrivateKey
}

type PublicKey struct {
	*ecdsa.PublicKey
}

func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := ecdsa.GenerateKey(crypto.S256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

func (p *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{&p.PublicKey}
}

// Address derives the account address from the public key using the trailing
// 20 bytes of its Keccak-256 hash.
func (p *PublicKey) Address() Address {
	raw := crypto.FromECDSAPub(p.PublicKey)
	hash := crypto.Keccak256(raw[1:])
	return NewAddress(SVTPrefix, hash[12:])
}

// SaveToFile writes a hex-encoded private key to path, creating parent
// directories as needed. The file is restricted to the current user.
func SaveToFile(path string, key *PrivateKey) error {
	if key == nil || key.PrivateKey == nil {
		return fmt.Errorf("nil private key")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	encoded := hex.EncodeToString(crypto.FromECDSA(key.PrivateKey))
	return os.WriteFile(path, []byte(encoded), 0o600)
}

// LoadFromFile reads a hex-encoded private key written by SaveToFile.
func LoadFromFile(path string) (*PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	decoded, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("invalid key file %s: %w", path, err)
	}
	key, err := crypto.ToECDSA(decoded)
	if err != nil {
		return nil, fmt.Errorf("invalid key material in %s: %w", path, err)
	}
	return &PrivateKey{key}, nil
}
