// inspect_key.go prints the addresses a private key controls on every
// registered chain. The key is read from a file holding either WIF or
// raw hex. Debugging aid; never feed it a key that holds real funds.
// Usage: go run scripts/inspect_key.go <keyfile>
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/castellan/castellan/internal/chains"
	"github.com/castellan/castellan/pkg/address"
	"github.com/castellan/castellan/pkg/crypto"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: inspect_key <keyfile>")
		os.Exit(1)
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	raw := strings.TrimSpace(string(data))

	var keyBytes []byte
	if _, wifKey, err := address.DecodeWIF(raw); err == nil {
		keyBytes = wifKey
	} else if keyBytes, err = hex.DecodeString(raw); err != nil {
		fmt.Fprintln(os.Stderr, "key is neither WIF nor hex")
		os.Exit(1)
	}

	kp, err := crypto.NewKeyPair(keyBytes)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer kp.Zero()
	crypto.Zero(keyBytes)

	pub := kp.PublicKey()
	h := crypto.Hash160(pub)
	fmt.Printf("pubkey=%s\n", hex.EncodeToString(pub))
	fmt.Printf("hash160=%s\n", hex.EncodeToString(h[:]))

	for _, p := range chains.List() {
		var addr string
		if p.SupportsSegWit {
			addr, err = address.EncodeSegWit(p.Bech32HRP, 0, h[:])
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
		} else {
			addr = address.CheckEncode(p.PubKeyHashVersion, h[:])
		}
		fmt.Printf("%-8s %s\n", p.Symbol, addr)
	}
}
