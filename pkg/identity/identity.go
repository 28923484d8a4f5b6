package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	icidentity "github.com/aviate-labs/agent-go/identity"
)

// Identity is the daemon's persistent Ed25519 keypair, used to authenticate
// calls to the remote actor. The derived principal must be allow-listed on
// the actor side out of band.
type Identity struct {
	inner   *icidentity.Ed25519Identity
	public  ed25519.PublicKey
	private ed25519.PrivateKey
}

// keyFile is the on-disk JSON representation of the keypair. The private key
// is stored in plaintext; the file is created with owner-only permissions.
type keyFile struct {
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

// LoadOrCreate loads the keypair stored at path, or generates a fresh
// Ed25519 keypair and persists it there if the file does not exist.
// A corrupt key file is a fatal startup error.
func LoadOrCreate(path string) (*Identity, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return parse(data)
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read key file %s: %w", path, err)
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate keypair: %w", err)
	}

	kf := keyFile{
		PublicKey:  base64.StdEncoding.EncodeToString(pub),
		PrivateKey: base64.StdEncoding.EncodeToString(priv),
	}
	out, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize keypair: %w", err)
	}
	if err := os.WriteFile(path, out, 0600); err != nil {
		return nil, fmt.Errorf("failed to write key file %s: %w", path, err)
	}

	return build(pub, priv)
}

func parse(data []byte) (*Identity, error) {
	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("corrupt key file: %w", err)
	}
	pub, err := base64.StdEncoding.DecodeString(kf.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("corrupt key file: bad public key: %w", err)
	}
	priv, err := base64.StdEncoding.DecodeString(kf.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("corrupt key file: bad private key: %w", err)
	}
	if len(pub) != ed25519.PublicKeySize || len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("corrupt key file: unexpected key sizes (%d, %d)", len(pub), len(priv))
	}
	return build(ed25519.PublicKey(pub), ed25519.PrivateKey(priv))
}

func build(pub ed25519.PublicKey, priv ed25519.PrivateKey) (*Identity, error) {
	inner, err := icidentity.NewEd25519Identity(pub, priv)
	if err != nil {
		return nil, fmt.Errorf("failed to construct identity: %w", err)
	}
	return &Identity{inner: inner, public: pub, private: priv}, nil
}

// Principal returns the textual principal derived from the public key.
func (id *Identity) Principal() string {
	return id.inner.Sender().String()
}

// Ed25519 returns the underlying agent identity for signing actor calls.
func (id *Identity) Ed25519() *icidentity.Ed25519Identity {
	return id.inner
}
