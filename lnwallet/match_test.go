package lnwallet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func pathInput(addressN ...uint32) *TxInputType {
	return &TxInputType{AddressN: addressN}
}

func pathOutput(addressN ...uint32) *TxOutputType {
	return &TxOutputType{AddressN: addressN}
}

func TestWalletPathCheckerAgreement(t *testing.T) {
	c := NewWalletPathChecker()
	c.AddInput(pathInput(84, 0, 0, 0, 5))
	c.AddInput(pathInput(84, 0, 0, 1, 9))

	if !c.OutputMatches(pathOutput(84, 0, 0, 1, 3)) {
		t.Fatal("expected a shared prefix to match")
	}
}

func TestWalletPathCheckerMismatchFromDifferentPrefixes(t *testing.T) {
	c := NewWalletPathChecker()
	c.AddInput(pathInput(84, 0, 0, 0, 5))
	c.AddInput(pathInput(49, 0, 0, 0, 5))

	if c.OutputMatches(pathOutput(84, 0, 0, 1, 3)) {
		t.Fatal("two inputs with different prefixes must latch MISMATCH")
	}
}

func TestWalletPathCheckerMissingPathIsMismatch(t *testing.T) {
	c := NewWalletPathChecker()
	c.AddInput(pathInput()) // no path at all

	if c.OutputMatches(pathOutput(84, 0, 0, 1, 3)) {
		t.Fatal("an input with no path must force MISMATCH")
	}
}

func TestWalletPathCheckerCheckInputAfterLatch(t *testing.T) {
	c := NewWalletPathChecker()
	c.AddInput(pathInput(84, 0, 0, 0, 5))
	c.OutputMatches(pathOutput(84, 0, 0, 1, 3))

	if err := c.CheckInput(pathInput(84, 0, 0, 0, 5)); err != nil {
		t.Fatalf("unchanged input should re-check clean: %v", err)
	}
	if err := c.CheckInput(pathInput(49, 0, 0, 0, 5)); err == nil {
		t.Fatal("changed input should fail CheckInput")
	}
}

func TestWalletPathCheckerCheckInputIsNoOpAfterMismatch(t *testing.T) {
	c := NewWalletPathChecker()
	c.AddInput(pathInput(84, 0, 0, 0, 5))
	c.AddInput(pathInput(49, 0, 0, 0, 5)) // different prefix, latches MISMATCH

	// A checker that never latched Set was never authoritative for the
	// change decision, so CheckInput must be a no-op here even though the
	// two inputs plainly disagree with each other.
	if err := c.CheckInput(pathInput(84, 0, 0, 0, 5)); err != nil {
		t.Fatalf("CheckInput on a MISMATCH checker must be a no-op: %v", err)
	}
	if err := c.CheckInput(pathInput()); err != nil {
		t.Fatalf("CheckInput on a MISMATCH checker must be a no-op even for a pathless input: %v", err)
	}
}

func TestWalletPathCheckerAddInputAfterReadOnlyPanics(t *testing.T) {
	c := NewWalletPathChecker()
	c.AddInput(pathInput(84, 0, 0, 0, 5))
	c.OutputMatches(pathOutput(84, 0, 0, 1, 3))

	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic from AddInput after read-only latch")
		}
	}()
	c.AddInput(pathInput(84, 0, 0, 0, 6))
}

type testMultisigKeychain struct {
	pubkeys map[string][]byte
}

func (k *testMultisigKeychain) PathIsKnown(coin *CoinInfo, addressN []uint32) bool { return true }

func (k *testMultisigKeychain) DerivePublicKey(coin *CoinInfo, addressN []uint32) ([]byte, error) {
	key := pathKey(addressN)
	pub, ok := k.pubkeys[key]
	if !ok {
		return nil, dataError("no key for path")
	}
	return pub, nil
}

func (k *testMultisigKeychain) Sign(coin *CoinInfo, addressN []uint32, hash []byte) ([]byte, error) {
	return nil, dataError("not implemented")
}

func pathKey(addressN []uint32) string {
	s := ""
	for _, p := range addressN {
		s += string(rune(p))
	}
	return s
}

func twoOfTwoDescriptor() *MultisigRedeemScriptType {
	return &MultisigRedeemScriptType{
		M: 2,
		Pubkeys: []MultisigPubkey{
			{Pubkey: []byte{0x02, 0x01, 0x02, 0x03}},
			{Pubkey: []byte{0x03, 0x04, 0x05, 0x06}},
		},
	}
}

func TestMultisigFingerprintCheckerAgreement(t *testing.T) {
	c := NewMultisigFingerprintChecker()
	kc := &testMultisigKeychain{}
	coin := &CoinInfo{}

	ms := twoOfTwoDescriptor()
	c.AddInput(&TxInputType{Multisig: ms}, kc, coin)
	c.AddInput(&TxInputType{Multisig: ms}, kc, coin)

	require.True(t, c.OutputMatches(&TxOutputType{Multisig: ms}, kc, coin),
		"identical descriptors across inputs should match")
}

func TestMultisigFingerprintCheckerNonMultisigInputIsMismatch(t *testing.T) {
	c := NewMultisigFingerprintChecker()
	kc := &testMultisigKeychain{}
	coin := &CoinInfo{}

	c.AddInput(&TxInputType{}, kc, coin) // no multisig descriptor

	if c.OutputMatches(&TxOutputType{Multisig: twoOfTwoDescriptor()}, kc, coin) {
		t.Fatal("a non-multisig input must force MISMATCH")
	}
}

func TestMultisigFingerprintOrderIndependent(t *testing.T) {
	c := NewMultisigFingerprintChecker()
	kc := &testMultisigKeychain{}
	coin := &CoinInfo{}

	ms := &MultisigRedeemScriptType{
		M: 2,
		Pubkeys: []MultisigPubkey{
			{Pubkey: []byte{0x03, 0x04, 0x05, 0x06}},
			{Pubkey: []byte{0x02, 0x01, 0x02, 0x03}},
		},
	}
	c.AddInput(&TxInputType{Multisig: twoOfTwoDescriptor()}, kc, coin)

	require.True(t, c.OutputMatches(&TxOutputType{Multisig: ms}, kc, coin),
		"fingerprint should be independent of pubkey listing order")
}
