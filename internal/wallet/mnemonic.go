// Package wallet implements the signing core: mnemonic and seed
// handling, the keyring that derives and caches keys per chain, coin
// selection, and the encrypted keystore.
package wallet

import (
	"fmt"

	"github.com/tyler-smith/go-bip39"
)

// Supported mnemonic entropy sizes.
const (
	MnemonicEntropyBits12 = 128 // 12 words
	MnemonicEntropyBits24 = 256 // 24 words
)

// GenerateMnemonic creates a new 24-word BIP-39 mnemonic.
func GenerateMnemonic() (string, error) {
	return GenerateMnemonicBits(MnemonicEntropyBits24)
}

// GenerateMnemonicBits creates a BIP-39 mnemonic from the given number
// of entropy bits (128 for 12 words, 256 for 24).
func GenerateMnemonicBits(bits int) (string, error) {
	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// ValidateMnemonic checks if a mnemonic is valid per BIP-39
// (correct word count, valid words, valid checksum).
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}
