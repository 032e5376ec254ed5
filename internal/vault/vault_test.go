package vault

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyHex = "6368616e676520746869732070617373776f726420746f206120736563726574"

func newTestVault(t *testing.T) *Vault {
	t.Helper()
	cipher, err := NewAESCipher(testKeyHex)
	require.NoError(t, err)
	return New(cipher)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	v := newTestVault(t)

	card := Card{
		Number:   "4242424242424242",
		ExpMonth: 12,
		ExpYear:  2030,
		CVC:      "123",
		Holder:   "JANE DOE",
	}

	blob, err := v.Encrypt(card)
	require.NoError(t, err)
	assert.NotContains(t, blob, card.Number)

	got, err := v.Decrypt(blob)
	require.NoError(t, err)
	assert.Equal(t, card, got)
}

func TestDecryptRejectsTamperedBlob(t *testing.T) {
	v := newTestVault(t)

	blob, err := v.Encrypt(Card{Number: "4242424242424242"})
	require.NoError(t, err)

	_, err = v.Decrypt("AAAA" + blob[4:])
	assert.ErrorIs(t, err, ErrCardDecryption)

	_, err = v.Decrypt("not base64 at all!!!")
	assert.ErrorIs(t, err, ErrCardDecryption)
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	v := newTestVault(t)
	blob, err := v.Encrypt(Card{Number: "4242424242424242"})
	require.NoError(t, err)

	otherCipher, err := NewAESCipher(strings.Repeat("ab", 32))
	require.NoError(t, err)

	_, err = New(otherCipher).Decrypt(blob)
	assert.ErrorIs(t, err, ErrCardDecryption)
}

func TestCardStringRedacts(t *testing.T) {
	card := Card{Number: "4242424242424242", ExpMonth: 4, ExpYear: 2027, CVC: "999"}
	s := card.String()
	assert.NotContains(t, s, "424242424242")
	assert.NotContains(t, s, "999")
	assert.Contains(t, s, "4242")
}

func TestNewAESCipherRejectsBadKeys(t *testing.T) {
	_, err := NewAESCipher("zz")
	assert.Error(t, err)

	_, err = NewAESCipher("abcd")
	assert.Error(t, err)
}
