package lnwallet

import "testing"

func TestGenWitnessP2WPKH(t *testing.T) {
	kc := scriptTestKeychain{}
	coin := &CoinInfo{}
	pub, _ := kc.DerivePublicKey(coin, []uint32{1})
	sig := []byte{0x30, 0x03, 0x02, 0x01, 0x01}

	stack, err := genWitness(coin, kc, WitnessP2WPKH, sig, pub, nil, pub, nil, 0x01)
	if err != nil {
		t.Fatalf("genWitness: %v", err)
	}
	if len(stack) != 2 {
		t.Fatalf("P2WPKH witness stack length = %d, want 2", len(stack))
	}
	if string(stack[1]) != string(pub) {
		t.Fatal("second witness item should be the pubkey")
	}
	if stack[0][len(stack[0])-1] != 0x01 {
		t.Fatal("signature item should end in the sighash byte")
	}
}

func TestGenWitnessP2WSHMultisigPlacesSigAtSlot(t *testing.T) {
	kc := scriptTestKeychain{}
	coin := &CoinInfo{}
	ms := &MultisigRedeemScriptType{
		M: 2,
		Pubkeys: []MultisigPubkey{
			{AddressN: []uint32{1}},
			{AddressN: []uint32{2}},
		},
	}
	witnessScript, err := multisigRedeemScript(ms, kc, coin)
	if err != nil {
		t.Fatalf("multisigRedeemScript: %v", err)
	}
	ourPubkey, _ := kc.DerivePublicKey(coin, []uint32{1})
	sig := []byte{0xAA, 0xBB}

	stack, err := genWitness(coin, kc, WitnessP2WSHMultisig, sig, nil, ms, ourPubkey, witnessScript, 0x01)
	if err != nil {
		t.Fatalf("genWitness: %v", err)
	}
	// nil dummy element + 1 signature (ms.Signatures was empty) + witness script
	if len(stack) != 3 {
		t.Fatalf("P2WSH multisig witness stack length = %d, want 3", len(stack))
	}
	if string(stack[len(stack)-1]) != string(witnessScript) {
		t.Fatal("last witness item should be the witness script")
	}
	if string(stack[1]) != string([]byte{0xAA, 0xBB, 0x01}) {
		t.Fatalf("signature item = %x, want our signature plus sighash byte", stack[1])
	}
}

func TestGenWitnessEmptyIsZeroItems(t *testing.T) {
	stack, err := genWitness(&CoinInfo{}, scriptTestKeychain{}, WitnessEmpty, nil, nil, nil, nil, nil, 0)
	if err != nil {
		t.Fatalf("genWitness: %v", err)
	}
	if len(stack) != 0 {
		t.Fatalf("WitnessEmpty stack length = %d, want 0", len(stack))
	}
}
