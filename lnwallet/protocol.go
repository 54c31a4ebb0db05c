package lnwallet

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// RequestType enumerates the five TxRequest.request_type values the device
// can send the host.
type RequestType uint8

const (
	RequestTxInput RequestType = iota
	RequestTxOutput
	RequestTxMeta
	RequestTxExtraData
	RequestTxFinished
)

// String returns the host-protocol name of the request type.
func (r RequestType) String() string {
	switch r {
	case RequestTxInput:
		return "TXINPUT"
	case RequestTxOutput:
		return "TXOUTPUT"
	case RequestTxMeta:
		return "TXMETA"
	case RequestTxExtraData:
		return "TXEXTRADATA"
	case RequestTxFinished:
		return "TXFINISHED"
	default:
		return "UNKNOWN"
	}
}

// SignTx is the immutable-after-sanitization transaction request the host
// sends to open a signing session.
type SignTx struct {
	Version      uint32
	InputsCount  uint32
	OutputsCount uint32
	LockTime     uint32

	// Timestamp is set only for coins with CoinInfo.Timestamp.
	Timestamp *uint32

	// ExtraDataLen is set only for coins with CoinInfo.ExtraData.
	ExtraDataLen *uint32
}

// MultisigPubkey is one entry of a multisig descriptor: either a raw
// compressed public key, or a BIP-32 suffix to derive one of the device's
// own keys.
type MultisigPubkey struct {
	// Pubkey is the raw 33-byte compressed public key. Empty when this
	// entry is one of the device's own keys (AddressN non-empty
	// instead).
	Pubkey []byte

	// AddressN is the BIP-32 derivation suffix applied to the signer's
	// node to obtain this entry's public key. Empty when Pubkey is a
	// foreign key supplied directly by the host.
	AddressN []uint32
}

// MultisigRedeemScriptType is the optional multisig descriptor carried on an
// input or output: M-of-N public keys plus, for inputs, any
// signatures already collected from co-signers.
type MultisigRedeemScriptType struct {
	M          int
	Pubkeys    []MultisigPubkey
	Signatures [][]byte
}

// TxInputType is one host-provided input, streamed on request during phases
// 1, 4, and 6.
type TxInputType struct {
	PrevHash  chainhash.Hash
	PrevIndex uint32
	Sequence  uint32

	// Amount is mandatory for SpendWitness/SpendP2SHWitness/ForceBIP143
	// inputs, optional (and authenticated via the previous transaction)
	// for plain legacy inputs.
	Amount *int64

	ScriptType InputScriptType
	AddressN   []uint32
	Multisig   *MultisigRedeemScriptType
}

// TxOutputType is one host-provided output, streamed on request during
// phases 2 and 5.
type TxOutputType struct {
	Amount     int64
	ScriptType OutputScriptType

	// Address is set for a normal destination output.
	Address string

	// AddressN is set instead of Address for a change output owned by
	// this device.
	AddressN []uint32

	Multisig     *MultisigRedeemScriptType
	OpReturnData []byte
}

// PrevTxMeta is the header of a previous transaction streamed during
// authentication: version, counts, lock_time, and (for ExtraData coins) the
// length of the trailing opaque payload.
type PrevTxMeta struct {
	Version      uint32
	InputsCount  uint32
	OutputsCount uint32
	LockTime     uint32
	ExtraDataLen uint32

	// Timestamp is set only when streamed by the host, for coins with
	// CoinInfo.Timestamp.
	Timestamp *uint32
}

// PrevTxInput is one input of a streamed previous transaction.
type PrevTxInput struct {
	PrevHash  chainhash.Hash
	PrevIndex uint32
	Script    []byte
	Sequence  uint32
}

// PrevTxOutput is one output of a streamed previous transaction.
type PrevTxOutput struct {
	Amount int64
	Script []byte
}

// Host is the untrusted transport collaborator: the device
// never holds more than one item at a time, and every method below is a
// suspension point — the runtime is free to service UI/USB between
// calls. The interface returns fully decoded values; marshaling the TxAck
// wire frames is the host transport's concern, out of scope here.
type Host interface {
	TxInput(index uint32) (*TxInputType, error)
	TxOutput(index uint32) (*TxOutputType, error)

	PrevTxMeta(hash chainhash.Hash) (*PrevTxMeta, error)
	PrevTxInput(hash chainhash.Hash, index uint32) (*PrevTxInput, error)
	PrevTxOutput(hash chainhash.Hash, index uint32) (*PrevTxOutput, error)
	PrevTxExtraData(hash chainhash.Hash, offset, length uint32) ([]byte, error)

	// TxFinish delivers the final serialized_tx chunk and signals
	// TXFINISHED; it is the last suspension point of the session.
	TxFinish(serialized []byte) error
}

// Confirmer is the user-confirmation UI collaborator (out of
// scope beyond its interface). Each method is a suspension point; a false
// return (no error) means the user declined, which the Signer turns into
// SigningError(ActionCancelled).
type Confirmer interface {
	ConfirmForeignAddress(addressN []uint32) (bool, error)
	ConfirmOutputAddress(txo *TxOutputType, address string) (bool, error)
	ConfirmOpReturn(data []byte) (bool, error)
	ConfirmFeeOverride(fee, threshold int64) (bool, error)
	ConfirmLockTime(lockTime uint32) (bool, error)
	ConfirmTotal(spending, fee int64) (bool, error)
}

// Keychain is the HD-derivation and ECDSA-signing collaborator (out of
// scope beyond its interface). PathIsKnown reports whether
// addressN matches a recognized BIP-32 pattern table for coin (also out of
// scope); the Signer uses it only to decide whether to request a foreign-
// address confirmation.
type Keychain interface {
	PathIsKnown(coin *CoinInfo, addressN []uint32) bool
	DerivePublicKey(coin *CoinInfo, addressN []uint32) ([]byte, error)

	// Sign produces a deterministic (RFC6979) DER-encoded ECDSA
	// signature, without the trailing sighash-type byte.
	Sign(coin *CoinInfo, addressN []uint32, hash []byte) ([]byte, error)
}
