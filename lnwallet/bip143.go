package lnwallet

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// Bip143Hasher accumulates the three shared BIP-143 sub-digests
// (hashPrevouts, hashSequence, hashOutputs) across phases 1-2 and composes
// the per-input preimage on demand. Each sub-digest is a
// single-pass accumulation finalized (double-SHA256) the first time a
// preimage is requested, then cached — mirroring the role
// txscript.TxSigHashes plays for a fully-materialized *wire.MsgTx, but fed
// incrementally since the device never holds the whole transaction.
type Bip143Hasher struct {
	prevouts txBuffer
	sequence txBuffer
	outputs  txBuffer

	finalized    bool
	hashPrevouts chainhash.Hash
	hashSequence chainhash.Hash
	hashOutputs  chainhash.Hash
}

// NewBip143Hasher returns an empty hasher ready to accumulate inputs and
// outputs.
func NewBip143Hasher() *Bip143Hasher {
	return &Bip143Hasher{}
}

// AddInput folds one input's outpoint and sequence number into the shared
// hashPrevouts/hashSequence accumulators. This is
// done for *every* input, segwit or not, whenever the transaction has any
// segwit (or force-BIP143) input at all.
func (h *Bip143Hasher) AddInput(prevHash chainhash.Hash, prevIndex uint32, sequence uint32) {
	if h.finalized {
		panic("lnwallet: Bip143Hasher.AddInput called after finalize")
	}
	h.prevouts.writeBytes(prevHash[:])
	h.prevouts.writeUint32LE(prevIndex)
	h.sequence.writeUint32LE(sequence)
}

// AddOutput folds one output's full binary serialization (amount + varint
// scriptPubKey) into the shared hashOutputs accumulator.
func (h *Bip143Hasher) AddOutput(amount int64, pkScript []byte) {
	if h.finalized {
		panic("lnwallet: Bip143Hasher.AddOutput called after finalize")
	}
	h.outputs.writeUint64LE(uint64(amount))
	h.outputs.writeVarBytes(pkScript)
}

func (h *Bip143Hasher) finalize() {
	if h.finalized {
		return
	}
	h.hashPrevouts = chainhash.DoubleHashH(h.prevouts.Bytes())
	h.hashSequence = chainhash.DoubleHashH(h.sequence.Bytes())
	h.hashOutputs = chainhash.DoubleHashH(h.outputs.Bytes())
	h.finalized = true
}

// PreimageHash composes and double-hashes the BIP-143 signature preimage
// for one input:
//
//	H(version || hashPrevouts || hashSequence || outpoint || scriptCode ||
//	  amount || sequence || hashOutputs || locktime || sighashType)
func (h *Bip143Hasher) PreimageHash(
	version uint32,
	prevHash chainhash.Hash,
	prevIndex uint32,
	scriptCode []byte,
	amount int64,
	sequence uint32,
	lockTime uint32,
	sigHashType uint32,
) chainhash.Hash {

	h.finalize()

	var w txBuffer
	w.writeUint32LE(version)
	w.writeBytes(h.hashPrevouts[:])
	w.writeBytes(h.hashSequence[:])
	w.writeBytes(prevHash[:])
	w.writeUint32LE(prevIndex)
	w.writeVarBytes(scriptCode)
	w.writeUint64LE(uint64(amount))
	w.writeUint32LE(sequence)
	w.writeBytes(h.hashOutputs[:])
	w.writeUint32LE(lockTime)
	w.writeUint32LE(sigHashType)

	return chainhash.DoubleHashH(w.Bytes())
}
