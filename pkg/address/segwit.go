package address

import "fmt"

// Witness program lengths accepted for version 0.
const (
	WitnessV0KeyHashLen    = 20 // P2WPKH
	WitnessV0ScriptHashLen = 32 // P2WSH
)

// EncodeSegWit encodes a witness version 0 program as a bech32 address.
// Only version 0 is supported; taproot (version 1, bech32m) is out of
// scope for this wallet.
func EncodeSegWit(hrp string, witVer byte, program []byte) (string, error) {
	if witVer != 0 {
		return "", fmt.Errorf("unsupported witness version %d", witVer)
	}
	if len(program) != WitnessV0KeyHashLen && len(program) != WitnessV0ScriptHashLen {
		return "", fmt.Errorf("invalid witness program length %d", len(program))
	}
	conv, err := ConvertBits(program, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("convert bits: %w", err)
	}
	data := make([]byte, 0, 1+len(conv))
	data = append(data, witVer)
	data = append(data, conv...)
	return Bech32Encode(hrp, data)
}

// DecodeSegWit decodes a bech32 address into its HRP, witness version
// and program. Returns an error for anything other than a well-formed
// version 0 program of 20 or 32 bytes.
func DecodeSegWit(addr string) (hrp string, witVer byte, program []byte, err error) {
	hrp, data, err := Bech32Decode(addr)
	if err != nil {
		return "", 0, nil, err
	}
	if len(data) == 0 {
		return "", 0, nil, fmt.Errorf("bech32: missing witness version")
	}
	witVer = data[0]
	if witVer != 0 {
		return "", 0, nil, fmt.Errorf("unsupported witness version %d", witVer)
	}
	program, err = ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return "", 0, nil, fmt.Errorf("witness program: %w", err)
	}
	if len(program) != WitnessV0KeyHashLen && len(program) != WitnessV0ScriptHashLen {
		return "", 0, nil, fmt.Errorf("invalid witness program length %d", len(program))
	}
	return hrp, witVer, program, nil
}
