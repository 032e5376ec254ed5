// Package vault encrypts guest card payloads into opaque blobs at
// booking-creation time and decrypts them once, transiently, when a provider
// order or margin charge needs the raw fields. Decrypted material lives only
// in local variables and is never logged.
package vault

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrCardDecryption aborts the settlement step that needed the card,
// without charging or reserving anything.
var ErrCardDecryption = errors.New("card decryption failed")

// Card holds the raw fields of a payment card.
type Card struct {
	Number   string `json:"number"`
	ExpMonth int    `json:"exp_month"`
	ExpYear  int    `json:"exp_year"`
	CVC      string `json:"cvc"`
	Holder   string `json:"holder"`
}

// LastFour returns the displayable tail of the card number.
func (c Card) LastFour() string {
	if len(c.Number) < 4 {
		return c.Number
	}
	return c.Number[len(c.Number)-4:]
}

// String keeps fmt and logging from ever exposing the PAN or CVC.
func (c Card) String() string {
	return fmt.Sprintf("card(****%s %02d/%d)", c.LastFour(), c.ExpMonth, c.ExpYear)
}

// Cipher is the encryption collaborator. The vault does not prescribe the
// algorithm; see NewAESCipher for the default.
type Cipher interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(ciphertext []byte) ([]byte, error)
}

type Vault struct {
	cipher Cipher
}

func New(cipher Cipher) *Vault {
	return &Vault{cipher: cipher}
}

// Encrypt serializes and seals a card into an opaque blob.
func (v *Vault) Encrypt(card Card) (string, error) {
	plain, err := json.Marshal(card)
	if err != nil {
		return "", fmt.Errorf("failed to serialize card: %w", err)
	}

	sealed, err := v.cipher.Seal(plain)
	if err != nil {
		return "", fmt.Errorf("failed to seal card: %w", err)
	}

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a blob produced by Encrypt. Any failure surfaces as
// ErrCardDecryption.
func (v *Vault) Decrypt(blob string) (Card, error) {
	sealed, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return Card{}, fmt.Errorf("%w: bad encoding", ErrCardDecryption)
	}

	plain, err := v.cipher.Open(sealed)
	if err != nil {
		return Card{}, fmt.Errorf("%w: %v", ErrCardDecryption, err)
	}

	var card Card
	if err := json.Unmarshal(plain, &card); err != nil {
		return Card{}, fmt.Errorf("%w: bad payload", ErrCardDecryption)
	}
	return card, nil
}
