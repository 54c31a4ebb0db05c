package lnwallet

import (
	"bytes"
	"encoding/binary"
)

// txBuffer is the serialized_tx arena: a single growable byte buffer
// that the session reuses. On a host with ample memory a bytes.Buffer's
// internal growth is a no-op in practice; Drain gives the embedded-target
// behavior a place to hook in memory discipline.
type txBuffer struct {
	buf bytes.Buffer
}

func newTxBuffer() *txBuffer {
	return &txBuffer{}
}

func (w *txBuffer) writeByte(b byte) {
	w.buf.WriteByte(b)
}

func (w *txBuffer) writeBytes(b []byte) {
	w.buf.Write(b)
}

func (w *txBuffer) writeUint32LE(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *txBuffer) writeUint64LE(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

// writeVarInt writes n using Bitcoin's compact-size encoding.
func (w *txBuffer) writeVarInt(n uint64) {
	switch {
	case n < 0xfd:
		w.writeByte(byte(n))
	case n <= 0xffff:
		w.writeByte(0xfd)
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(n))
		w.buf.Write(b[:])
	case n <= 0xffffffff:
		w.writeByte(0xfe)
		w.writeUint32LE(uint32(n))
	default:
		w.writeByte(0xff)
		w.writeUint64LE(n)
	}
}

// writeVarBytes writes b prefixed with its varint length.
func (w *txBuffer) writeVarBytes(b []byte) {
	w.writeVarInt(uint64(len(b)))
	w.writeBytes(b)
}

// Bytes returns everything written so far without resetting the buffer.
func (w *txBuffer) Bytes() []byte {
	return w.buf.Bytes()
}

// Drain returns everything written so far and resets the buffer, modeling
// the drained-through-the-host-reply behavior wanted on hosts
// that want to bound memory use; callers on ample-memory hosts may ignore
// the reset and just call Bytes at the end of the session instead.
func (w *txBuffer) Drain() []byte {
	out := make([]byte, w.buf.Len())
	copy(out, w.buf.Bytes())
	w.buf.Reset()
	return out
}

// varIntSize returns the encoded length of n, used by the weight
// estimator and by callers sizing a scriptPubKey/scriptSig push ahead of
// writing it.
func varIntSize(n uint64) int {
	switch {
	case n < 0xfd:
		return 1
	case n <= 0xffff:
		return 3
	case n <= 0xffffffff:
		return 5
	default:
		return 9
	}
}
