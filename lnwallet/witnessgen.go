package lnwallet

import "github.com/btcsuite/btcd/wire"

// WitnessType determines how an input's witness stack is generated in
// phase 6. Unlike Lightning's commitment-transaction
// variants, these map directly onto the two segwit script classes the
// device supports; P2SH-nested and native inputs share a generator since
// the witness stack doesn't depend on how the program is wrapped.
type WitnessType uint16

const (
	// WitnessP2WPKH spends a single-key native or P2SH-nested P2WPKH
	// output: witness stack is <sig> <pubkey>.
	WitnessP2WPKH WitnessType = iota

	// WitnessP2WSHMultisig spends a multisig native or P2SH-nested
	// P2WSH output: witness stack is <nil> <sig>... <witnessScript>.
	WitnessP2WSHMultisig

	// WitnessEmpty is written for a non-segwit input co-mingled in a
	// mixed transaction: a stack with zero items, serialized as a lone
	// 0x00 count byte.
	WitnessEmpty
)

// genWitness produces the witness stack for one input during phase 6,
// given the signature the Signer just computed over the BIP-143 preimage.
// coin and keychain resolve the multisig descriptor's public keys the same
// way multisigRedeemScript does for the witness script, so the witness script's
// pubkey order always matches what the scriptPubKey committed to.
func genWitness(
	coin *CoinInfo,
	keychain Keychain,
	wt WitnessType,
	sig []byte,
	pubkey []byte,
	ms *MultisigRedeemScriptType,
	ourPubkey []byte,
	witnessScript []byte,
	sigHashByte byte,
) (wire.TxWitness, error) {

	switch wt {
	case WitnessP2WPKH:
		return wire.TxWitness{
			append(append([]byte{}, sig...), sigHashByte),
			pubkey,
		}, nil

	case WitnessP2WSHMultisig:
		pubkeys, err := sortedPubkeys(ms, keychain, coin)
		if err != nil {
			return nil, err
		}

		sigs := make([][]byte, len(pubkeys))
		for i, pk := range pubkeys {
			if i < len(ms.Signatures) {
				sigs[i] = ms.Signatures[i]
			}
			if bytesEqual(pk, ourPubkey) {
				sigs[i] = append(append([]byte{}, sig...), sigHashByte)
			}
		}

		stack := wire.TxWitness{nil}
		for _, s := range sigs {
			if len(s) == 0 {
				continue
			}
			stack = append(stack, s)
		}
		stack = append(stack, witnessScript)
		return stack, nil

	case WitnessEmpty:
		return wire.TxWitness{}, nil

	default:
		return nil, dataError("unknown witness type: %v", wt)
	}
}
