package lnwallet

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// InputScriptType identifies how a TxInputType's scriptSig/witness must be
// produced. It mirrors the four script classes enumerated for
// inputs.
type InputScriptType uint8

const (
	// SpendAddress spends a plain P2PKH output.
	SpendAddress InputScriptType = iota

	// SpendMultisig spends a P2SH-wrapped bare multisig output.
	SpendMultisig

	// SpendWitness spends a native P2WPKH or P2WSH output.
	SpendWitness

	// SpendP2SHWitness spends a P2SH-nested P2WPKH or P2WSH output.
	SpendP2SHWitness
)

// OutputScriptType identifies how a TxOutputType's scriptPubKey must be
// derived, mirroring the six output classes supported.
type OutputScriptType uint8

const (
	PayToAddress OutputScriptType = iota
	PayToScriptHash
	PayToMultisig
	PayToWitness
	PayToP2SHWitness
	PayToOpReturn
)

// B58HashFunc computes the checksum hash used by a coin's Base58Check
// encoding. Almost all Bitcoin-family coins use double-SHA256; a handful of
// forks (named here for the coin table, not implemented in this package)
// substitute groestl or blake256. The indirection exists so CoinInfo can
// name a non-default hash without the Address Codec special-casing coins.
type B58HashFunc func([]byte) chainhash.Hash

// DoubleSHA256 is the default Base58Check checksum hash used by Bitcoin and
// the overwhelming majority of its forks.
func DoubleSHA256(b []byte) chainhash.Hash {
	return chainhash.HashH(chainhash.HashB(b))
}

// CoinInfo is the read-only per-session coin metadata. It is supplied
// by the host's coin table (out of scope here) and never
// mutated by the Signer.
type CoinInfo struct {
	// Name is used only for error messages and logging.
	Name string

	// CurveName identifies the elliptic curve the Keychain must use to
	// derive keys for this coin. The curve primitive itself is out of
	// scope; this is a label the Keychain collaborator interprets.
	CurveName string

	// AddressType and AddressTypeP2SH are the Base58Check version bytes
	// for P2PKH and P2SH addresses respectively.
	AddressType     byte
	AddressTypeP2SH byte

	// Bech32Prefix is the HRP for native segwit addresses, nil if the
	// coin doesn't support segwit bech32 addresses.
	Bech32Prefix *string

	// CashAddrPrefix is the CashAddr prefix (e.g. "bitcoincash"), nil
	// unless the coin uses the CashAddr encoding (BCH-family forks).
	CashAddrPrefix *string

	// MaxFeeKB bounds the fee-per-kilobyte the Signer will accept
	// without an explicit override confirmation.
	MaxFeeKB uint64

	// SignHashDouble selects whether legacy per-input sighash preimages
	// are hashed once or twice before signing.
	SignHashDouble bool

	// Segwit reports whether the coin supports segregated witness at
	// all; a segwit-class input on a coin with Segwit=false is a
	// DataError.
	Segwit bool

	// ForceBIP143 makes every non-segwit input on this coin compute a
	// BIP-143 preimage instead of the classic legacy preimage; used by
	// e.g. Bitcoin Cash style forks that adopted BIP-143 without native
	// segwit.
	ForceBIP143 bool

	// NegativeFee permits total_out > total_in (reward/coinbase-style
	// transactions) without raising NotEnoughFunds.
	NegativeFee bool

	// ForkID is non-nil for coins that mix SIGHASH_FORKID into the
	// sighash type; its value occupies the high bytes.
	ForkID *uint32

	// ExtraData marks coins whose previous-transaction footer carries
	// opaque trailing bytes that must be folded into the prev-tx hash
	// but never into the signed transaction itself.
	ExtraData bool

	// Timestamp marks coins whose header carries a block-time-style u32
	// timestamp immediately after the version field.
	Timestamp bool

	// B58Hash is the Base58Check checksum function; defaults to
	// DoubleSHA256 when nil.
	B58Hash B58HashFunc
}

func (c *CoinInfo) b58Hash() B58HashFunc {
	if c.B58Hash != nil {
		return c.B58Hash
	}
	return DoubleSHA256
}

// SigHashType returns the base|forkid|0x40 composition used for
// fork-id coins. Coins without a ForkID get plain SIGHASH_ALL (0x01).
func (c *CoinInfo) SigHashType() uint32 {
	const (
		sigHashAll    = 0x01
		sigHashForkID = 0x40
	)
	if c.ForkID == nil {
		return sigHashAll
	}
	return sigHashAll | (*c.ForkID << 8) | sigHashForkID
}

// CoinProfile is the per-coin-family set of behavioral overrides: a single
// Signer parameterized by a record of flags and function pointers. The
// Bitcoin base profile and its fork variants differ only in these fields;
// composition replaces a subclass-per-coin-family hierarchy.
type CoinProfile struct {
	// WriteHeader appends the transaction's version (and, for
	// Timestamp coins, its timestamp) plus the segwit marker/flag bytes
	// when hasSegwit is true.
	WriteHeader func(w *txBuffer, tx *SignTx, hasSegwit bool)

	// WritePrevTxFooter appends whatever coin-specific trailing bytes a
	// previous transaction's footer carries (lock_time and, for
	// ExtraData coins, the opaque extra payload) while computing the
	// prev-tx hash. The matching WriteHeader call is always made with
	// hasSegwit=false: authenticated prev-tx hashing always uses the
	// non-segwit, on-chain txid serialization.
	WritePrevTxFooter func(w *txBuffer, tx *PrevTxMeta, extraData []byte)

	// OnNegativeFee is invoked when total_in < total_out. The default
	// raises NotEnoughFunds unless the coin has NegativeFee=true, in which
	// case it accepts the reward transaction silently.
	OnNegativeFee func(coin *CoinInfo) error
}

// DefaultCoinProfile returns the Bitcoin-like profile: standard header
// writing, standard prev-tx footer, and the standard negative-fee
// rejection. Coin tables (out of scope) may override individual fields for
// fork variants, dispatching by function value instead of by subclass.
func DefaultCoinProfile() *CoinProfile {
	return &CoinProfile{
		WriteHeader:       writeStandardHeader,
		WritePrevTxFooter: writeStandardPrevTxFooter,
		OnNegativeFee:     defaultOnNegativeFee,
	}
}

func defaultOnNegativeFee(coin *CoinInfo) error {
	if coin.NegativeFee {
		return nil
	}
	return notEnoughFundsError("total output amount exceeds total input amount")
}
