package checkpoint

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/permaweb/cu/domain"
)

// Wallet signs checkpoint data items on the CU's behalf.
//
// A single RSA-PSS signature over the item's SHA-256 digest stands in for
// the network's full bundling format; no ANS-104 bundler client appears
// anywhere in this service's dependency set, so the wire format here is
// kept to the minimum this component's callers need: a tagged, signed,
// content-addressed blob the gateway can index by tag and verify by hash.
type Wallet struct {
	Key *rsa.PrivateKey
}

// LoadWallet reads an RSA private key in PEM format from path. An empty
// path returns a zero-value Wallet, which can still derive an empty
// Owner but cannot sign.
func LoadWallet(path string) (Wallet, error) {
	if path == "" {
		return Wallet{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Wallet{}, err
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return Wallet{}, fmt.Errorf("checkpoint: %s does not contain a PEM block", path)
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		parsed, err2 := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err2 != nil {
			return Wallet{}, fmt.Errorf("checkpoint: parsing %s: %w", path, err)
		}
		rsaKey, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return Wallet{}, fmt.Errorf("checkpoint: %s is not an RSA key", path)
		}
		key = rsaKey
	}

	return Wallet{Key: key}, nil
}

// Owner returns the wallet's public address, derived from its key.
func (w Wallet) Owner() string {
	if w.Key == nil {
		return ""
	}
	sum := sha256.Sum256(w.Key.PublicKey.N.Bytes())
	return fmt.Sprintf("%x", sum[:20])
}

// DataItem is a signed, tagged checkpoint payload ready for upload.
type DataItem struct {
	Owner     string
	Tags      []domain.Tag
	Data      []byte
	Signature []byte
}

// BuildAndSignDataItem tags payload with tags and signs it with wallet.
func BuildAndSignDataItem(wallet Wallet, payload []byte, tags []domain.Tag) (DataItem, error) {
	item := DataItem{
		Owner: wallet.Owner(),
		Tags:  tags,
		Data:  payload,
	}

	digest := sha256.Sum256(signableBytes(item))

	if wallet.Key == nil {
		return DataItem{}, fmt.Errorf("checkpoint: no wallet key configured")
	}

	sig, err := rsa.SignPSS(rand.Reader, wallet.Key, crypto.SHA256, digest[:], nil)
	if err != nil {
		return DataItem{}, err
	}

	item.Signature = sig
	return item, nil
}

// signableBytes returns the bytes a signature is computed over: the owner,
// tags, and data concatenated in a fixed order.
func signableBytes(item DataItem) []byte {
	var buf bytes.Buffer
	buf.WriteString(item.Owner)
	for _, t := range item.Tags {
		buf.WriteString(t.Name)
		buf.WriteString(t.Value)
	}
	buf.Write(item.Data)
	return buf.Bytes()
}

// Uploader uploads signed data items to a bundler.
type Uploader struct {
	URL    string
	Client *http.Client
}

func (u Uploader) client() *http.Client {
	if u.Client != nil {
		return u.Client
	}
	return http.DefaultClient
}

type uploadEnvelope struct {
	Owner     string       `json:"owner"`
	Tags      []domain.Tag `json:"tags"`
	Data      []byte       `json:"data"`
	Signature []byte       `json:"signature"`
}

type uploadResponse struct {
	ID string `json:"id"`
}

// UploadDataItem uploads item to the bundler and returns its transaction
// id.
func (u Uploader) UploadDataItem(ctx context.Context, item DataItem) (string, error) {
	body, err := json.Marshal(uploadEnvelope{
		Owner:     item.Owner,
		Tags:      item.Tags,
		Data:      item.Data,
		Signature: item.Signature,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.URL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.client().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("checkpoint: upload failed with status %d: %s", resp.StatusCode, b)
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}

	return out.ID, nil
}
