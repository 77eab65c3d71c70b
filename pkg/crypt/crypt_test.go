package crypt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/cafe/pkg/crypt"
)

func TestSealOpen(t *testing.T) {
	box := crypt.NewBox("app-key")

	enc, err := box.Seal("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)
	assert.NotContains(t, enc, "JBSWY3DPEHPK3PXP")

	plain, err := box.Open(enc)
	require.NoError(t, err)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", plain)
}

func TestSealIsRandomised(t *testing.T) {
	box := crypt.NewBox("app-key")
	a, _ := box.Seal("same")
	b, _ := box.Seal("same")
	assert.NotEqual(t, a, b)
}

func TestOpenWithWrongKeyFails(t *testing.T) {
	enc, err := crypt.NewBox("one").Seal("secret")
	require.NoError(t, err)

	_, err = crypt.NewBox("two").Open(enc)
	assert.ErrorIs(t, err, crypt.ErrDecrypt)

	_, err = crypt.NewBox("one").Open("not base64 !!")
	assert.ErrorIs(t, err, crypt.ErrDecrypt)
}
