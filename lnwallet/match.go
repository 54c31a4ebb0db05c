package lnwallet

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"sort"
)

// matchState is a tagged variant in place of a sentinel-object-identity
// trick: Unset | Mismatch | Set(value).
type matchState uint8

const (
	matchUnset matchState = iota
	matchMismatch
	matchSet
)

// MatchChecker tracks a single attribute across every input of the
// transaction being signed, to decide whether an output "looks like" it
// belongs to the same wallet and can therefore be shown as change without
// an explicit confirmation.
type MatchChecker struct {
	state matchState
	value []byte

	// readOnly latches true the first time OutputMatches is called;
	// AddInput after that point is a programming error: once
	// OutputMatches has been called, AddInput is forbidden.
	readOnly bool
}

// NewMatchChecker returns a checker in the UNDEFINED state.
func NewMatchChecker() *MatchChecker {
	return &MatchChecker{state: matchUnset}
}

// AddInput folds one input's attribute into the checker. attr, ok follow
// the extractor's own invalid-input convention: ok=false means the input
// doesn't carry this attribute at all (e.g. no BIP-32 path, or not a
// multisig input), which always forces MISMATCH.
func (m *MatchChecker) addInput(attr []byte, ok bool) {
	if m.readOnly {
		panic("lnwallet: AddInput called on a read-only MatchChecker")
	}

	if !ok {
		m.state = matchMismatch
		return
	}

	switch m.state {
	case matchUnset:
		m.state = matchSet
		m.value = attr
	case matchSet:
		if !bytes.Equal(m.value, attr) {
			m.state = matchMismatch
		}
	case matchMismatch:
		// already mismatched, nothing to do
	}
}

// outputMatches latches the checker read-only and reports whether txo's
// attribute agrees with the value accumulated from every input.
func (m *MatchChecker) outputMatches(attr []byte, ok bool) bool {
	m.readOnly = true

	if m.state != matchSet || !ok {
		return false
	}
	return bytes.Equal(m.value, attr)
}

// checkInput re-verifies, during phases 4 and 6, that txi's attribute still
// agrees with the latched value. If the checker already saw a MISMATCH
// while adding inputs, it was never authoritative for the change decision
// and re-checking here is a no-op; only a checker that was consistently
// Set across every input enforces agreement on the second pass. A
// mismatch here means the host changed the transaction between the
// confirmation pass and the signing pass.
func (m *MatchChecker) checkInput(attr []byte, ok bool) error {
	if m.state == matchMismatch {
		return nil
	}
	if m.state != matchSet || !ok || !bytes.Equal(m.value, attr) {
		return processError("Transaction has changed during signing")
	}
	return nil
}

// WalletPathChecker implements the wallet-path MatchChecker: the attribute
// is the BIP-32 path prefix above the final chain/index pair. A
// missing path is invalid.
type WalletPathChecker struct {
	*MatchChecker
}

func NewWalletPathChecker() *WalletPathChecker {
	return &WalletPathChecker{MatchChecker: NewMatchChecker()}
}

func walletPathAttr(addressN []uint32) ([]byte, bool) {
	if len(addressN) < 2 {
		return nil, false
	}
	prefix := addressN[:len(addressN)-2]

	buf := make([]byte, 4*len(prefix))
	for i, v := range prefix {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return buf, true
}

func (c *WalletPathChecker) AddInput(txi *TxInputType) {
	c.addInput(walletPathAttr(txi.AddressN))
}

func (c *WalletPathChecker) OutputMatches(txo *TxOutputType) bool {
	return c.outputMatches(walletPathAttr(txo.AddressN))
}

func (c *WalletPathChecker) CheckInput(txi *TxInputType) error {
	return c.checkInput(walletPathAttr(txi.AddressN))
}

// MultisigFingerprintChecker implements the multisig-fingerprint
// MatchChecker: the attribute is a checksum over the multisig descriptor's
// sorted public keys and its m-of-n parameters. A
// non-multisig input or output is invalid.
type MultisigFingerprintChecker struct {
	*MatchChecker
}

func NewMultisigFingerprintChecker() *MultisigFingerprintChecker {
	return &MultisigFingerprintChecker{MatchChecker: NewMatchChecker()}
}

// multisigFingerprint hashes M together with the sorted set of public
// keys, so input order and co-signer order don't affect the fingerprint.
func multisigFingerprint(ms *MultisigRedeemScriptType, keychain Keychain, coin *CoinInfo) ([]byte, bool) {
	if ms == nil || len(ms.Pubkeys) == 0 {
		return nil, false
	}

	pubkeys := make([][]byte, len(ms.Pubkeys))
	for i, p := range ms.Pubkeys {
		if len(p.Pubkey) > 0 {
			pubkeys[i] = p.Pubkey
			continue
		}
		pub, err := keychain.DerivePublicKey(coin, p.AddressN)
		if err != nil {
			return nil, false
		}
		pubkeys[i] = pub
	}

	sort.Slice(pubkeys, func(i, j int) bool {
		return bytes.Compare(pubkeys[i], pubkeys[j]) < 0
	})

	h := sha256.New()
	h.Write([]byte{byte(ms.M)})
	for _, pk := range pubkeys {
		h.Write(pk)
	}
	return h.Sum(nil), true
}

func (c *MultisigFingerprintChecker) AddInput(txi *TxInputType, keychain Keychain, coin *CoinInfo) {
	c.addInput(multisigFingerprint(txi.Multisig, keychain, coin))
}

func (c *MultisigFingerprintChecker) OutputMatches(txo *TxOutputType, keychain Keychain, coin *CoinInfo) bool {
	return c.outputMatches(multisigFingerprint(txo.Multisig, keychain, coin))
}

func (c *MultisigFingerprintChecker) CheckInput(txi *TxInputType, keychain Keychain, coin *CoinInfo) error {
	return c.checkInput(multisigFingerprint(txi.Multisig, keychain, coin))
}
