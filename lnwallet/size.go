package lnwallet

// Weight accounting for the transaction being assembled. The source
// firmware tracks this incrementally, one call per input/output processed
// in phases 1-2, so the fee-over-threshold check in phase 3
// never needs the fully serialized transaction in memory.
const (
	// txHeaderSize 4 + 4 bytes
	//	- version: 4 bytes
	//	- lock_time: 4 bytes
	txHeaderSize = 4 + 4

	// witnessHeaderSize 2 bytes
	//	- marker: 1 byte
	//	- flag: 1 byte
	witnessHeaderSize = 1 + 1

	// legacyInputSize 41 bytes (scriptSig length varies, added separately)
	//	- prevout hash: 32 bytes
	//	- prevout index: 4 bytes
	//	- var_int(scriptSig length): 1 byte (assumed, grows with size)
	//	- sequence: 4 bytes
	legacyInputBaseSize = 32 + 4 + 1 + 4

	// p2pkhScriptSigSize 107 bytes
	//	- push(signature+sighash byte): 1 + 72 bytes
	//	- push(compressed pubkey): 1 + 33 bytes
	p2pkhScriptSigSize = 1 + 72 + 1 + 33

	// p2shWitnessRedeemPushSize 23 bytes for a P2WPKH-nested redeem,
	// used when counting the non-witness scriptSig of a SpendP2SHWitness
	// input:
	//	- push(redeem script): 1 + 22 bytes
	p2shWitnessRedeemPushSize = 1 + 22

	// outputBaseSize 9 bytes
	//	- amount: 8 bytes
	//	- var_int(pkScript length): 1 byte (assumed)
	outputBaseSize = 8 + 1

	// p2wpkhWitnessSize 108 bytes
	//	- number_of_witness_elements: 1 byte
	//	- push(signature+sighash byte): 1 + 72 bytes
	//	- push(compressed pubkey): 1 + 33 bytes
	p2wpkhWitnessSize = 1 + 1 + 72 + 1 + 33

	// emptyWitnessSize 1 byte: a lone 0x00 for a non-segwit input
	// co-mingled in a segwit transaction.
	emptyWitnessSize = 1
)

// WeightEstimator accumulates the BIP-141 weight of a transaction as its
// inputs and outputs are witnessed one at a time, exactly the way the
// Signer folds each streamed item into h_confirmed: no full transaction is
// ever materialized just to compute its weight.
type WeightEstimator struct {
	hasWitness bool

	inputCount  int
	outputCount int

	nonWitnessBytes int64
	witnessBytes    int64
}

// NewWeightEstimator returns an estimator with the fixed transaction
// overhead (version + lock_time) already counted.
func NewWeightEstimator() *WeightEstimator {
	return &WeightEstimator{
		nonWitnessBytes: txHeaderSize,
	}
}

// AddInput folds in the non-witness cost of a single input. scriptSigSize
// is the expected serialized scriptSig length for the input's script type
// (0 for native segwit, since the scriptSig is empty there).
func (e *WeightEstimator) AddInput(scriptSigSize int) {
	e.inputCount++
	e.nonWitnessBytes += legacyInputBaseSize + int64(scriptSigSize)
}

// AddWitness folds in the witness cost of a segwit input, estimated
// during phase 1 from the input's script type so the phase-3 fee check
// sees the whole transaction's weight before anything is serialized. The
// first call also marks the transaction as carrying the 2-byte
// marker/flag overhead.
func (e *WeightEstimator) AddWitness(size int) {
	if !e.hasWitness {
		e.hasWitness = true
		e.witnessBytes += witnessHeaderSize
	}
	e.witnessBytes += int64(size)
}

// AddEmptyWitness folds in the single 0x00 byte a non-segwit input
// contributes to the witness section of a mixed transaction.
func (e *WeightEstimator) AddEmptyWitness() {
	e.AddWitness(emptyWitnessSize)
}

// AddOutput folds in the cost of a single output given its serialized
// scriptPubKey length.
func (e *WeightEstimator) AddOutput(pkScriptSize int) {
	e.outputCount++
	e.nonWitnessBytes += outputBaseSize + int64(pkScriptSize)
}

// Weight returns the BIP-141 weight: 4*base_size + witness_size.
func (e *WeightEstimator) Weight() int64 {
	return 4*e.nonWitnessBytes + e.witnessBytes
}

// VSize returns the rounded-up virtual size (weight/4), the unit
// maxfee_kb is expressed against.
func (e *WeightEstimator) VSize() int64 {
	w := e.Weight()
	return (w + 3) / 4
}

// p2pkhInputSigSize and p2shWitnessInputSigSize are the expected scriptSig
// sizes fed to AddInput for the two input classes that carry a non-empty
// legacy-style scriptSig.
const (
	p2pkhInputSigSize       = p2pkhScriptSigSize
	p2shWitnessInputSigSize = p2shWitnessRedeemPushSize
)

// estimateMultisigScriptSigSize approximates the legacy (non-segwit)
// scriptSig size for a SpendMultisig input: OP_0, m pushed signatures, and
// a pushed redeem script sized from the n compressed pubkeys it commits to.
// Used only for the phase-3 fee threshold, never for the wire bytes
// actually written in phase 4.
func estimateMultisigScriptSigSize(ms *MultisigRedeemScriptType) int {
	n := len(ms.Pubkeys)
	redeemSize := 1 + n*(1+33) + 1 + 1
	return 1 + ms.M*(1+72) + 1 + redeemSize
}

// legacyScriptSigSize returns the expected scriptSig size AddInput should
// be told about for txi's script type, during phase 1's weight accounting.
func legacyScriptSigSize(txi *TxInputType) int {
	switch txi.ScriptType {
	case SpendAddress:
		return p2pkhInputSigSize
	case SpendMultisig:
		if txi.Multisig == nil {
			return 0
		}
		return estimateMultisigScriptSigSize(txi.Multisig)
	case SpendP2SHWitness:
		return p2shWitnessInputSigSize
	default:
		return 0
	}
}

// estimateWitnessSize returns the expected serialized witness-stack size
// for a segwit-class input: <sig> <pubkey> for single-key, the OP_0-dummy
// m-of-n stack for multisig. Fed to AddWitness during phase 1, never used
// for the wire bytes actually written in phase 6.
func estimateWitnessSize(txi *TxInputType) int {
	if txi.Multisig == nil {
		return p2wpkhWitnessSize
	}
	n := len(txi.Multisig.Pubkeys)
	witnessScriptSize := 1 + n*(1+33) + 1 + 1
	return 1 + 1 + txi.Multisig.M*(1+72) +
		varIntSize(uint64(witnessScriptSize)) + witnessScriptSize
}

// stackSerializedSize returns the exact wire length of a witness stack:
// varint(count) plus varint(len)+bytes per item.
func stackSerializedSize(stack [][]byte) int {
	size := varIntSize(uint64(len(stack)))
	for _, item := range stack {
		size += varIntSize(uint64(len(item))) + len(item)
	}
	return size
}
