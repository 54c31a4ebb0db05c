package lnwallet

import (
	"bytes"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/bech32"
)

// decodedAddress is the common result of decoding any of the three address
// forms supported: a version/type tag plus the raw hash payload.
type decodedAddress struct {
	// version is the Base58Check version byte for base58 addresses, or
	// the CashAddr type bit (0 = P2KH, 1 = P2SH) re-mapped onto the
	// coin's AddressType/AddressTypeP2SH for CashAddr addresses. It is
	// unused for bech32 addresses, which carry no separate version
	// concept beyond the witness program version.
	version byte

	// witnessVersion is non-nil for bech32 addresses (0 for the P2WPKH/
	// P2WSH forms this device supports; Taproot's witness version 1 is
	// out of scope).
	witnessVersion *byte

	hash []byte
}

// encodeBase58Check renders payload under the given version byte using the
// coin's checksum hash: version byte +
// payload + 4-byte checksum(version||payload), base58-encoded.
func encodeBase58Check(coin *CoinInfo, version byte, payload []byte) string {
	buf := make([]byte, 0, 1+len(payload)+4)
	buf = append(buf, version)
	buf = append(buf, payload...)

	checksum := coin.b58Hash()(buf)
	buf = append(buf, checksum[:4]...)

	return base58.Encode(buf)
}

// decodeBase58Check is the inverse of encodeBase58Check. It never assumes
// double-SHA256: the coin's B58Hash selector is authoritative, matching
// coins may specify a non-default hash.
func decodeBase58Check(coin *CoinInfo, address string) (byte, []byte, error) {
	decoded := base58.Decode(address)
	if len(decoded) < 5 {
		return 0, nil, dataError("base58check address %q too short", address)
	}

	payload := decoded[:len(decoded)-4]
	checksum := decoded[len(decoded)-4:]

	want := coin.b58Hash()(payload)
	if !bytes.Equal(checksum, want[:4]) {
		return 0, nil, dataError("base58check address %q: bad checksum", address)
	}

	return payload[0], payload[1:], nil
}

// encodeBech32 renders a segwit witness program as a bech32 address with
// the coin's HRP.
func encodeBech32(hrp string, witnessVersion byte, program []byte) (string, error) {
	converted, err := bech32.ConvertBits(program, 8, 5, true)
	if err != nil {
		return "", dataError("bech32 bit conversion: %v", err)
	}

	data := make([]byte, 0, len(converted)+1)
	data = append(data, witnessVersion)
	data = append(data, converted...)

	addr, err := bech32.Encode(hrp, data)
	if err != nil {
		return "", dataError("bech32 encode: %v", err)
	}
	return addr, nil
}

// decodeBech32 parses a segwit bech32 address into its witness version and
// program, verifying the HRP matches the coin.
func decodeBech32(hrp, address string) (byte, []byte, error) {
	gotHRP, data, err := bech32.Decode(address)
	if err != nil {
		return 0, nil, dataError("bech32 decode %q: %v", address, err)
	}
	if gotHRP != hrp {
		return 0, nil, dataError("bech32 address %q: hrp %q, want %q", address, gotHRP, hrp)
	}
	if len(data) < 1 {
		return 0, nil, dataError("bech32 address %q: empty payload", address)
	}

	witnessVersion := data[0]
	program, err := bech32.ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return 0, nil, dataError("bech32 bit conversion: %v", err)
	}

	return witnessVersion, program, nil
}

// decodeAddress dispatches an address string to the right codec for the
// coin: bech32 first (by HRP prefix match), then CashAddr
// (by prefix match, remapping its type bits onto the coin's version bytes),
// then plain Base58Check.
func decodeAddress(coin *CoinInfo, address string) (*decodedAddress, error) {
	if coin.Bech32Prefix != nil && hasBech32Prefix(address, *coin.Bech32Prefix) {
		witVer, program, err := decodeBech32(*coin.Bech32Prefix, address)
		if err != nil {
			return nil, err
		}
		return &decodedAddress{witnessVersion: &witVer, hash: program}, nil
	}

	if coin.CashAddrPrefix != nil && hasCashAddrPrefix(address, *coin.CashAddrPrefix) {
		kind, hash, err := cashAddrDecode(*coin.CashAddrPrefix, address)
		if err != nil {
			return nil, err
		}
		switch kind {
		case cashAddrP2KH:
			return &decodedAddress{version: coin.AddressType, hash: hash}, nil
		case cashAddrP2SH:
			return &decodedAddress{version: coin.AddressTypeP2SH, hash: hash}, nil
		default:
			return nil, dataError("cashaddr %q: unsupported type", address)
		}
	}

	version, payload, err := decodeBase58Check(coin, address)
	if err != nil {
		return nil, err
	}
	return &decodedAddress{version: version, hash: payload}, nil
}

func hasBech32Prefix(address, hrp string) bool {
	return len(address) > len(hrp)+1 && address[:len(hrp)] == hrp &&
		(address[len(hrp)] == '1')
}

func hasCashAddrPrefix(address, prefix string) bool {
	full := prefix + ":"
	return len(address) > len(full) && address[:len(full)] == full
}
