package lnwallet

import (
	"crypto/sha256"
	"encoding/binary"
	"runtime"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// writeStandardHeader is the default CoinProfile.WriteHeader: version, an
// optional Timestamp coins' block-time field, then the segwit marker/flag
// pair when the transaction carries any segwit input.
func writeStandardHeader(w *txBuffer, tx *SignTx, hasSegwit bool) {
	w.writeUint32LE(tx.Version)
	if tx.Timestamp != nil {
		w.writeUint32LE(*tx.Timestamp)
	}
	if hasSegwit {
		w.writeByte(0x00)
		w.writeByte(0x01)
	}
}

// writeStandardPrevTxFooter is the default CoinProfile.WritePrevTxFooter:
// lock_time followed by whatever opaque ExtraData payload the coin's
// previous-transaction format appends after it.
func writeStandardPrevTxFooter(w *txBuffer, tx *PrevTxMeta, extraData []byte) {
	w.writeUint32LE(tx.LockTime)
	if len(extraData) > 0 {
		w.writeBytes(extraData)
	}
}

// commitHash folds every input and output the Signer witnesses into a
// single running digest, the Go analogue of h_confirmed and h_check:
// two independent passes over the same host-supplied stream must fold
// to the same value, or the host changed the transaction mid-signature
// and the session aborts.
type commitHash struct {
	h [sha256.Size]byte
	w txBuffer
	n int
}

func newCommitHash() *commitHash {
	return &commitHash{}
}

func (c *commitHash) foldInput(txi *TxInputType) {
	c.w.buf.Reset()
	c.w.writeBytes(txi.PrevHash[:])
	c.w.writeUint32LE(txi.PrevIndex)
	c.w.writeUint32LE(txi.Sequence)
	c.w.writeByte(byte(txi.ScriptType))
	c.w.writeVarInt(uint64(len(txi.AddressN)))
	for _, p := range txi.AddressN {
		c.w.writeUint32LE(p)
	}
	if txi.Amount != nil {
		c.w.writeByte(1)
		c.w.writeUint64LE(uint64(*txi.Amount))
	} else {
		c.w.writeByte(0)
	}
	c.foldMultisig(txi.Multisig)
	c.fold()
}

func (c *commitHash) foldOutput(txo *TxOutputType) {
	c.w.buf.Reset()
	c.w.writeUint64LE(uint64(txo.Amount))
	c.w.writeByte(byte(txo.ScriptType))
	c.w.writeVarBytes([]byte(txo.Address))
	c.w.writeVarInt(uint64(len(txo.AddressN)))
	for _, p := range txo.AddressN {
		c.w.writeUint32LE(p)
	}
	c.foldMultisig(txo.Multisig)
	c.w.writeVarBytes(txo.OpReturnData)
	c.fold()
}

func (c *commitHash) foldMultisig(ms *MultisigRedeemScriptType) {
	if ms == nil {
		c.w.writeByte(0)
		return
	}
	c.w.writeByte(1)
	c.w.writeByte(byte(ms.M))
	c.w.writeVarInt(uint64(len(ms.Pubkeys)))
	for _, p := range ms.Pubkeys {
		c.w.writeVarBytes(p.Pubkey)
		c.w.writeVarInt(uint64(len(p.AddressN)))
		for _, e := range p.AddressN {
			c.w.writeUint32LE(e)
		}
	}
	c.w.writeVarInt(uint64(len(ms.Signatures)))
	for _, s := range ms.Signatures {
		c.w.writeVarBytes(s)
	}
}

// fold mixes the pending item (plus a running counter, so reordering two
// identical items would still change the digest) into the accumulated
// hash and resets the scratch buffer for the next item.
func (c *commitHash) fold() {
	var ctr [4]byte
	binary.LittleEndian.PutUint32(ctr[:], uint32(c.n))
	c.n++

	h := sha256.New()
	h.Write(c.h[:])
	h.Write(ctr[:])
	h.Write(c.w.Bytes())
	copy(c.h[:], h.Sum(nil))
}

func (c *commitHash) digest() [sha256.Size]byte {
	return c.h
}

// Signer drives the seven-phase streaming transaction-signing protocol
// against one Host, one Confirmer, and one Keychain. A
// Signer is single-use: construct one with NewSigner per signing session
// and call Run once.
type Signer struct {
	tx      *SignTx
	coin    *CoinInfo
	profile *CoinProfile

	host      Host
	confirmer Confirmer
	keychain  Keychain

	totalIn   int64
	totalOut  int64
	changeOut int64
	bip143In  int64

	segwit    []bool
	hasSegwit bool

	weight     *WeightEstimator
	hConfirmed *commitHash
	hash143    *Bip143Hasher
	serialized *txBuffer

	pathChecker *WalletPathChecker
	msChecker   *MultisigFingerprintChecker

	confirmedDigest [sha256.Size]byte
}

// NewSigner prepares a Signer for one signing session. profile may be nil,
// in which case DefaultCoinProfile is used.
func NewSigner(tx *SignTx, coin *CoinInfo, profile *CoinProfile, host Host, confirmer Confirmer, keychain Keychain) *Signer {
	if profile == nil {
		profile = DefaultCoinProfile()
	}
	return &Signer{
		tx:          tx,
		coin:        coin,
		profile:     profile,
		host:        host,
		confirmer:   confirmer,
		keychain:    keychain,
		segwit:      make([]bool, tx.InputsCount),
		weight:      NewWeightEstimator(),
		hConfirmed:  newCommitHash(),
		hash143:     NewBip143Hasher(),
		serialized:  newTxBuffer(),
		pathChecker: NewWalletPathChecker(),
		msChecker:   NewMultisigFingerprintChecker(),
	}
}

// Run executes all seven phases in order and returns the fully serialized
// signed transaction. Any error aborts the session immediately; there is
// no partial commit, and the host must restart from SignTx to retry.
func (s *Signer) Run() ([]byte, error) {
	log.Debugf("lnwallet: starting signing session, %d inputs, %d outputs",
		s.tx.InputsCount, s.tx.OutputsCount)

	if err := s.phase1ProcessInputs(); err != nil {
		return nil, err
	}
	if err := s.phase2ConfirmOutputs(); err != nil {
		return nil, err
	}
	s.hasSegwit = anySegwit(s.segwit)

	if err := s.phase3ConfirmTransaction(); err != nil {
		return nil, err
	}

	if err := s.phase4SerializeInputs(); err != nil {
		return nil, err
	}
	if err := s.phase5SerializeOutputs(); err != nil {
		return nil, err
	}
	if err := s.phase6SegwitWitnesses(); err != nil {
		return nil, err
	}
	return s.phase7Finish()
}

func anySegwit(segwit []bool) bool {
	for _, b := range segwit {
		if b {
			return true
		}
	}
	return false
}

// phase1ProcessInputs streams every input once, folds it into both
// match checkers and h_confirmed, confirms any foreign (not-this-device)
// derivation path, and authenticates legacy inputs' claimed amount
// against the previous transaction they reference.
func (s *Signer) phase1ProcessInputs() error {
	for i := uint32(0); i < s.tx.InputsCount; i++ {
		txi, err := s.host.TxInput(i)
		if err != nil {
			return processError("requesting input %d: %v", i, err)
		}

		s.pathChecker.AddInput(txi)
		s.msChecker.AddInput(txi, s.keychain, s.coin)
		s.hash143.AddInput(txi.PrevHash, txi.PrevIndex, txi.Sequence)
		s.hConfirmed.foldInput(txi)

		if !s.keychain.PathIsKnown(s.coin, txi.AddressN) {
			ok, err := s.confirmer.ConfirmForeignAddress(txi.AddressN)
			if err != nil {
				return processError("confirming foreign input path: %v", err)
			}
			if !ok {
				return actionCancelledError("user declined foreign input path at index %d", i)
			}
		}

		switch txi.ScriptType {
		case SpendWitness, SpendP2SHWitness:
			if !s.coin.Segwit {
				return dataError("coin %s does not support segwit inputs", s.coin.Name)
			}
			if txi.Amount == nil {
				return dataError("segwit input %d missing amount", i)
			}
			s.segwit[i] = true
			s.bip143In += *txi.Amount
			s.totalIn += *txi.Amount
			s.weight.AddInput(legacyScriptSigSize(txi))
			s.weight.AddWitness(estimateWitnessSize(txi))

		default: // SpendAddress, SpendMultisig
			if s.coin.ForceBIP143 {
				if txi.Amount == nil {
					return dataError("input %d missing amount on a force-BIP143 coin", i)
				}
				s.segwit[i] = false
				s.bip143In += *txi.Amount
				s.totalIn += *txi.Amount
			} else {
				amount, err := s.authenticatePrevTx(txi)
				if err != nil {
					return err
				}
				s.segwit[i] = false
				s.totalIn += amount
			}
			s.weight.AddInput(legacyScriptSigSize(txi))
		}
	}
	return nil
}

// authenticatePrevTx replays the previous transaction's own serialization
// and checks it hashes to txi.PrevHash, returning the
// claimed amount of the output txi actually spends. This is the mechanism
// that lets a legacy input go unsigned-amount without trusting the host.
func (s *Signer) authenticatePrevTx(txi *TxInputType) (int64, error) {
	meta, err := s.host.PrevTxMeta(txi.PrevHash)
	if err != nil {
		return 0, processError("requesting previous transaction meta: %v", err)
	}

	w := newTxBuffer()
	s.profile.WriteHeader(w, &SignTx{Version: meta.Version, Timestamp: meta.Timestamp}, false)

	w.writeVarInt(uint64(meta.InputsCount))
	for k := uint32(0); k < meta.InputsCount; k++ {
		pi, err := s.host.PrevTxInput(txi.PrevHash, k)
		if err != nil {
			return 0, processError("requesting previous input %d: %v", k, err)
		}
		w.writeBytes(pi.PrevHash[:])
		w.writeUint32LE(pi.PrevIndex)
		w.writeVarBytes(pi.Script)
		w.writeUint32LE(pi.Sequence)
	}

	w.writeVarInt(uint64(meta.OutputsCount))
	var targetAmount int64
	found := false
	for k := uint32(0); k < meta.OutputsCount; k++ {
		po, err := s.host.PrevTxOutput(txi.PrevHash, k)
		if err != nil {
			return 0, processError("requesting previous output %d: %v", k, err)
		}
		w.writeUint64LE(uint64(po.Amount))
		w.writeVarBytes(po.Script)
		if k == txi.PrevIndex {
			targetAmount = po.Amount
			found = true
		}
	}
	if !found {
		return 0, dataError("prev_index %d out of range for previous transaction", txi.PrevIndex)
	}

	var extraData []byte
	if s.coin.ExtraData && meta.ExtraDataLen > 0 {
		extraData, err = s.host.PrevTxExtraData(txi.PrevHash, 0, meta.ExtraDataLen)
		if err != nil {
			return 0, processError("requesting previous transaction extra data: %v", err)
		}
	}
	s.profile.WritePrevTxFooter(w, meta, extraData)

	got := chainhash.DoubleHashH(w.Bytes())
	if !got.IsEqual(&txi.PrevHash) {
		return 0, processError("previous transaction hash mismatch for input")
	}
	return targetAmount, nil
}


// phase2ConfirmOutputs handles every output, either admitting it
// silently as change (at most one, per the structural eligibility rule
// plus the match checkers as outputIsChange applies them) or surfacing it
// to the user for explicit confirmation.
func (s *Signer) phase2ConfirmOutputs() error {
	for j := uint32(0); j < s.tx.OutputsCount; j++ {
		txo, err := s.host.TxOutput(j)
		if err != nil {
			return processError("requesting output %d: %v", j, err)
		}

		script, err := outputScript(s.coin, s.keychain, txo)
		if err != nil {
			return err
		}
		s.weight.AddOutput(len(script))

		silent := s.changeOut == 0 && s.outputIsChange(txo)
		if silent {
			s.changeOut = txo.Amount
		} else if err := s.confirmOutput(txo); err != nil {
			return err
		}

		s.hash143.AddOutput(txo.Amount, script)
		s.hConfirmed.foldOutput(txo)
		s.totalOut += txo.Amount
	}
	return nil
}

// outputIsChange applies the change-eligibility rule: the multisig
// fingerprint only gates the decision when the candidate output itself
// carries a multisig descriptor, so an ordinary wallet's non-multisig
// change still gets silently accepted even though its multisig checker
// latched MISMATCH on input 0.
func (s *Signer) outputIsChange(txo *TxOutputType) bool {
	if !outputIsChangeEligible(txo) {
		return false
	}
	if txo.Multisig != nil && !s.msChecker.OutputMatches(txo, s.keychain, s.coin) {
		return false
	}
	return s.pathChecker.OutputMatches(txo)
}

func (s *Signer) confirmOutput(txo *TxOutputType) error {
	if txo.ScriptType == PayToOpReturn {
		ok, err := s.confirmer.ConfirmOpReturn(txo.OpReturnData)
		if err != nil {
			return processError("confirming op_return output: %v", err)
		}
		if !ok {
			return actionCancelledError("user declined op_return output")
		}
		return nil
	}

	address := txo.Address
	if address == "" {
		addr, err := changeOutputAddress(s.coin, s.keychain, txo)
		if err != nil {
			return err
		}
		address = addr
	}

	ok, err := s.confirmer.ConfirmOutputAddress(txo, address)
	if err != nil {
		return processError("confirming output: %v", err)
	}
	if !ok {
		return actionCancelledError("user declined output to %s", address)
	}
	return nil
}

// phase3ConfirmTransaction computes the fee, rejects or waives a
// negative fee per the coin profile, confirms a fee-per-kilobyte above
// the coin's threshold, confirms a non-zero lock_time, and obtains the
// final spend/fee confirmation. This is also where h_confirmed is
// frozen for the phase-4/6 consistency checks.
func (s *Signer) phase3ConfirmTransaction() error {
	s.confirmedDigest = s.hConfirmed.digest()

	fee := s.totalIn - s.totalOut
	if fee < 0 {
		if err := s.profile.OnNegativeFee(s.coin); err != nil {
			return err
		}
	}

	// A legacy input co-mingled in a segwit transaction still costs one
	// empty-witness byte on the wire.
	if s.hasSegwit {
		for _, sw := range s.segwit {
			if !sw {
				s.weight.AddEmptyWitness()
			}
		}
	}

	// maxfee_kb / 1000 * (weight / 4) computed with the divisions
	// cleared (weight / 4000) instead of rounding vsize up first: the
	// host must not be able to sneak an over-threshold fee past the
	// confirmation by exploiting the rounding boundary.
	threshold := int64(s.coin.MaxFeeKB) * s.weight.Weight() / 4000
	if fee > threshold {
		ok, err := s.confirmer.ConfirmFeeOverride(fee, threshold)
		if err != nil {
			return processError("confirming fee override: %v", err)
		}
		if !ok {
			return actionCancelledError("user declined high-fee override")
		}
	}

	if s.tx.LockTime > 0 {
		ok, err := s.confirmer.ConfirmLockTime(s.tx.LockTime)
		if err != nil {
			return processError("confirming lock_time: %v", err)
		}
		if !ok {
			return actionCancelledError("user declined non-zero lock_time")
		}
	}

	ok, err := s.confirmer.ConfirmTotal(s.totalIn-s.changeOut, fee)
	if err != nil {
		return processError("confirming transaction total: %v", err)
	}
	if !ok {
		return actionCancelledError("user declined transaction total")
	}
	return nil
}

// phase4SerializeInputs writes the header
// and, for every input, either its (empty or redeem-push) scriptSig if
// it's segwit, or a freshly computed legacy signature if it isn't.
func (s *Signer) phase4SerializeInputs() error {
	s.profile.WriteHeader(s.serialized, s.tx, s.hasSegwit)
	s.serialized.writeVarInt(uint64(s.tx.InputsCount))

	for i := uint32(0); i < s.tx.InputsCount; i++ {
		if s.segwit[i] {
			if err := s.serializeSegwitInput(i); err != nil {
				return err
			}
			continue
		}
		if s.coin.ForceBIP143 {
			if err := s.signBip143Input(i); err != nil {
				return err
			}
			continue
		}
		if err := s.signLegacyInput(i); err != nil {
			return err
		}
	}
	return nil
}

func (s *Signer) serializeSegwitInput(i uint32) error {
	txi, err := s.host.TxInput(i)
	if err != nil {
		return processError("re-requesting input %d: %v", i, err)
	}
	// NOTE: no need to check the multisig fingerprint here, because we
	// won't be signing the script in this pass.
	if err := s.pathChecker.CheckInput(txi); err != nil {
		return err
	}

	var scriptSig []byte
	if txi.ScriptType == SpendP2SHWitness {
		redeem, err := p2shWitnessRedeemScript(s.coin, s.keychain, txi.AddressN, txi.Multisig)
		if err != nil {
			return err
		}
		bldr := txscript.NewScriptBuilder()
		bldr.AddData(redeem)
		scriptSig, err = bldr.Script()
		if err != nil {
			return dataError("building P2SH-witness scriptSig: %v", err)
		}
	}

	s.serialized.writeBytes(txi.PrevHash[:])
	s.serialized.writeUint32LE(txi.PrevIndex)
	s.serialized.writeVarBytes(scriptSig)
	s.serialized.writeUint32LE(txi.Sequence)
	return nil
}

// signLegacyInput runs a second full pass over every
// input and output of the transaction, re-folding them into h_check (which
// must equal the frozen h_confirmed) while building the classic signature
// preimage for input iSign with every other input's scriptSig blanked.
func (s *Signer) signLegacyInput(iSign uint32) error {
	hCheck := newCommitHash()
	hSign := newTxBuffer()

	hSign.writeUint32LE(s.tx.Version)
	if s.tx.Timestamp != nil {
		hSign.writeUint32LE(*s.tx.Timestamp)
	}
	hSign.writeVarInt(uint64(s.tx.InputsCount))

	var target *TxInputType
	var scriptCode []byte
	var ourPubkey []byte

	for k := uint32(0); k < s.tx.InputsCount; k++ {
		txi, err := s.host.TxInput(k)
		if err != nil {
			return processError("re-requesting input %d: %v", k, err)
		}
		hCheck.foldInput(txi)

		var scriptSig []byte
		if k == iSign {
			target = txi
			if err := s.pathChecker.CheckInput(txi); err != nil {
				return err
			}
			if err := s.msChecker.CheckInput(txi, s.keychain, s.coin); err != nil {
				return err
			}
			switch txi.ScriptType {
			case SpendAddress:
				ourPubkey, err = s.keychain.DerivePublicKey(s.coin, txi.AddressN)
				if err != nil {
					return dataError("deriving key for input %d: %v", k, err)
				}
				// scriptCode is derived from the device's own key, never
				// taken from a second, unauthenticated host round-trip: a
				// malicious host could otherwise return a different script
				// here than the one phase 1 authenticated against
				// PrevHash, steering what the device actually signs over.
				scriptCode, err = p2pkhScript(btcutil.Hash160(ourPubkey))
				if err != nil {
					return dataError("building scriptCode for input %d: %v", k, err)
				}
			case SpendMultisig:
				if txi.Multisig == nil {
					return dataError("input %d: SPENDMULTISIG requires a multisig descriptor", k)
				}
				scriptCode, err = multisigRedeemScript(txi.Multisig, s.keychain, s.coin)
				if err != nil {
					return err
				}
			default:
				return dataError("input %d: script type %v has no legacy signing path", k, txi.ScriptType)
			}
			scriptSig = scriptCode
		}

		hSign.writeBytes(txi.PrevHash[:])
		hSign.writeUint32LE(txi.PrevIndex)
		hSign.writeVarBytes(scriptSig)
		hSign.writeUint32LE(txi.Sequence)
	}

	hSign.writeVarInt(uint64(s.tx.OutputsCount))
	for k := uint32(0); k < s.tx.OutputsCount; k++ {
		txo, err := s.host.TxOutput(k)
		if err != nil {
			return processError("re-requesting output %d: %v", k, err)
		}
		hCheck.foldOutput(txo)

		script, err := outputScript(s.coin, s.keychain, txo)
		if err != nil {
			return err
		}
		hSign.writeUint64LE(uint64(txo.Amount))
		hSign.writeVarBytes(script)
	}

	hSign.writeUint32LE(s.tx.LockTime)
	hSign.writeUint32LE(uint32(sigHashTypeByte(s.coin)))

	if hCheck.digest() != s.confirmedDigest {
		return processError("transaction has changed during signing")
	}

	digest := chainhash.HashH(hSign.Bytes())
	if s.coin.SignHashDouble {
		digest = chainhash.HashH(digest[:])
	}

	// Dropping hSign's backing buffer before the blocking Sign call
	// keeps the session's working set bounded to one input's data at a
	// time.
	runtime.GC()

	if ourPubkey == nil {
		pub, err := s.keychain.DerivePublicKey(s.coin, target.AddressN)
		if err != nil {
			return dataError("deriving key for input %d: %v", iSign, err)
		}
		ourPubkey = pub
	}

	sig, err := s.keychain.Sign(s.coin, target.AddressN, digest[:])
	if err != nil {
		return dataError("signing input %d: %v", iSign, err)
	}

	finalScriptSig, err := legacyInputScriptSig(target, s.keychain, s.coin, sig, ourPubkey, scriptCode)
	if err != nil {
		return err
	}

	s.serialized.writeBytes(target.PrevHash[:])
	s.serialized.writeUint32LE(target.PrevIndex)
	s.serialized.writeVarBytes(finalScriptSig)
	s.serialized.writeUint32LE(target.Sequence)
	return nil
}

// signBip143Input handles a non-segwit-class input (SpendAddress or
// SpendMultisig) on a ForceBIP143 coin: the scriptSig format stays the
// classic one, but the signature preimage is BIP-143's, not the
// two-pass classic preimage signLegacyInput builds. Bitcoin Cash and its
// relatives adopted BIP-143 without adopting segwit itself, so these
// inputs need both halves at once.
func (s *Signer) signBip143Input(i uint32) error {
	txi, err := s.host.TxInput(i)
	if err != nil {
		return processError("re-requesting input %d: %v", i, err)
	}
	if err := s.pathChecker.CheckInput(txi); err != nil {
		return err
	}
	if err := s.msChecker.CheckInput(txi, s.keychain, s.coin); err != nil {
		return err
	}

	switch txi.ScriptType {
	case SpendAddress, SpendMultisig:
	default:
		return dataError("input %d: script type %v has no BIP-143 signing path", i, txi.ScriptType)
	}

	if txi.Amount == nil {
		return dataError("input %d missing amount on a force-BIP143 coin", i)
	}
	if *txi.Amount > s.bip143In {
		return processError("input %d amount grew beyond the remaining segwit funds", i)
	}
	s.bip143In -= *txi.Amount

	ourPubkey, err := s.keychain.DerivePublicKey(s.coin, txi.AddressN)
	if err != nil {
		return dataError("deriving key for input %d: %v", i, err)
	}

	var scriptCode []byte
	if txi.ScriptType == SpendMultisig {
		if txi.Multisig == nil {
			return dataError("input %d: SPENDMULTISIG requires a multisig descriptor", i)
		}
		scriptCode, err = multisigRedeemScript(txi.Multisig, s.keychain, s.coin)
		if err != nil {
			return err
		}
	} else {
		scriptCode, err = p2pkhScript(btcutil.Hash160(ourPubkey))
		if err != nil {
			return dataError("building scriptCode for input %d: %v", i, err)
		}
	}

	preimage := s.hash143.PreimageHash(
		s.tx.Version, txi.PrevHash, txi.PrevIndex, scriptCode,
		*txi.Amount, txi.Sequence, s.tx.LockTime, s.coin.SigHashType(),
	)

	runtime.GC()

	sig, err := s.keychain.Sign(s.coin, txi.AddressN, preimage[:])
	if err != nil {
		return dataError("signing input %d: %v", i, err)
	}

	finalScriptSig, err := legacyInputScriptSig(txi, s.keychain, s.coin, sig, ourPubkey, scriptCode)
	if err != nil {
		return err
	}

	s.serialized.writeBytes(txi.PrevHash[:])
	s.serialized.writeUint32LE(txi.PrevIndex)
	s.serialized.writeVarBytes(finalScriptSig)
	s.serialized.writeUint32LE(txi.Sequence)
	return nil
}

// phase5SerializeOutputs runs a third
// unconditional re-request of every output, writing its amount and
// scriptPubKey straight to serialized_tx.
func (s *Signer) phase5SerializeOutputs() error {
	s.serialized.writeVarInt(uint64(s.tx.OutputsCount))
	for j := uint32(0); j < s.tx.OutputsCount; j++ {
		txo, err := s.host.TxOutput(j)
		if err != nil {
			return processError("re-requesting output %d: %v", j, err)
		}
		script, err := outputScript(s.coin, s.keychain, txo)
		if err != nil {
			return err
		}
		s.serialized.writeUint64LE(uint64(txo.Amount))
		s.serialized.writeVarBytes(script)
	}
	return nil
}

// phase6SegwitWitnesses emits, when any input is segwit, one witness
// stack per input in order: real for segwit inputs and a lone 0x00 for
// legacy inputs co-mingled in a mixed transaction.
func (s *Signer) phase6SegwitWitnesses() error {
	if !s.hasSegwit {
		return nil
	}

	for i := uint32(0); i < s.tx.InputsCount; i++ {
		if !s.segwit[i] {
			s.writeWitnessStack(wire.TxWitness{})
			continue
		}
		if err := s.signSegwitInput(i); err != nil {
			return err
		}
	}
	return nil
}

func (s *Signer) signSegwitInput(i uint32) error {
	txi, err := s.host.TxInput(i)
	if err != nil {
		return processError("re-requesting input %d: %v", i, err)
	}
	if txi.ScriptType != SpendWitness && txi.ScriptType != SpendP2SHWitness {
		return processError("input %d is no longer segwit", i)
	}
	if err := s.pathChecker.CheckInput(txi); err != nil {
		return err
	}
	if err := s.msChecker.CheckInput(txi, s.keychain, s.coin); err != nil {
		return err
	}
	if txi.Amount == nil {
		return dataError("segwit input %d missing amount", i)
	}
	if *txi.Amount > s.bip143In {
		return processError("input %d amount grew beyond the remaining segwit funds", i)
	}
	s.bip143In -= *txi.Amount

	ourPubkey, err := s.keychain.DerivePublicKey(s.coin, txi.AddressN)
	if err != nil {
		return dataError("deriving key for input %d: %v", i, err)
	}

	var scriptCode, witnessScript []byte
	var wt WitnessType
	if txi.Multisig != nil {
		ms, err := multisigRedeemScript(txi.Multisig, s.keychain, s.coin)
		if err != nil {
			return err
		}
		scriptCode, witnessScript = ms, ms
		wt = WitnessP2WSHMultisig
	} else {
		scriptCode, err = p2pkhScript(btcutil.Hash160(ourPubkey))
		if err != nil {
			return dataError("building scriptCode for input %d: %v", i, err)
		}
		wt = WitnessP2WPKH
	}

	preimage := s.hash143.PreimageHash(
		s.tx.Version, txi.PrevHash, txi.PrevIndex, scriptCode,
		*txi.Amount, txi.Sequence, s.tx.LockTime, s.coin.SigHashType(),
	)

	runtime.GC()

	sig, err := s.keychain.Sign(s.coin, txi.AddressN, preimage[:])
	if err != nil {
		return dataError("signing segwit input %d: %v", i, err)
	}

	stack, err := genWitness(
		s.coin, s.keychain, wt, sig, ourPubkey, txi.Multisig, ourPubkey,
		witnessScript, byte(s.coin.SigHashType()&0xff),
	)
	if err != nil {
		return err
	}

	s.writeWitnessStack(stack)
	log.Tracef("lnwallet: input %d witness stack, %d bytes", i,
		stackSerializedSize(stack))
	return nil
}

func (s *Signer) writeWitnessStack(stack wire.TxWitness) {
	s.serialized.writeVarInt(uint64(len(stack)))
	for _, item := range stack {
		s.serialized.writeVarBytes(item)
	}
}

// phase7Finish appends lock_time, delivers the completed serialized_tx
// to the host, and reports TXFINISHED.
func (s *Signer) phase7Finish() ([]byte, error) {
	s.serialized.writeUint32LE(s.tx.LockTime)
	out := s.serialized.Drain()

	if err := s.host.TxFinish(out); err != nil {
		return nil, processError("delivering finished transaction: %v", err)
	}
	log.Debugf("lnwallet: signing session complete, %d bytes", len(out))
	return out, nil
}
