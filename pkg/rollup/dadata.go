package rollup

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// DaDataKind discriminates the tagged union of messages the core recognizes
// on the DA chain. Senders other than the sequencer/prover DA keys post
// blobs the core never tags at all -- see da.Classify.
type DaDataKind uint8

const (
	DaDataKindSequencerCommitment DaDataKind = iota
	DaDataKindZKProof
)

// DaData is the tagged union `{ SequencerCommitment(c), ZKProof(p), ... }`
// serialized as a discriminant byte followed by the payload, fixed field
// order, little-endian, length-prefixed variable-length fields.
type DaData struct {
	Kind       DaDataKind
	Commitment *SequencerCommitment
	ZKProof    *Proof
}

var (
	ErrTruncatedDaData   = errors.New("rollup: truncated DaData payload")
	ErrUnknownDaDataKind = errors.New("rollup: unknown DaData discriminant")
)

// EncodeDaData serializes a DaData value deterministically.
func EncodeDaData(d *DaData) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(d.Kind))

	switch d.Kind {
	case DaDataKindSequencerCommitment:
		if d.Commitment == nil {
			return nil, errors.New("rollup: nil commitment for SequencerCommitment DaData")
		}
		buf.Write(d.Commitment.L1StartBlockHash[:])
		buf.Write(d.Commitment.L1EndBlockHash[:])
		buf.Write(d.Commitment.MerkleRoot[:])
	case DaDataKindZKProof:
		if d.ZKProof == nil {
			return nil, errors.New("rollup: nil proof for ZKProof DaData")
		}
		encodedProof, err := EncodeProof(d.ZKProof)
		if err != nil {
			return nil, fmt.Errorf("encode zk proof: %w", err)
		}
		if err := writeLengthPrefixed(&buf, encodedProof); err != nil {
			return nil, err
		}
	default:
		return nil, ErrUnknownDaDataKind
	}

	return buf.Bytes(), nil
}

// DecodeDaData parses a blob payload into a DaData value. Malformed input
// is a protocol-decode error per spec.md §4.1/§7 -- callers must treat it as
// "log and drop the blob", never fatal.
func DecodeDaData(raw []byte) (*DaData, error) {
	if len(raw) < 1 {
		return nil, ErrTruncatedDaData
	}
	kind := DaDataKind(raw[0])
	rest := raw[1:]

	switch kind {
	case DaDataKindSequencerCommitment:
		if len(rest) < 96 {
			return nil, ErrTruncatedDaData
		}
		c := &SequencerCommitment{}
		copy(c.L1StartBlockHash[:], rest[0:32])
		copy(c.L1EndBlockHash[:], rest[32:64])
		copy(c.MerkleRoot[:], rest[64:96])
		return &DaData{Kind: kind, Commitment: c}, nil
	case DaDataKindZKProof:
		payload, _, err := readLengthPrefixed(rest)
		if err != nil {
			return nil, err
		}
		p, err := DecodeProof(payload)
		if err != nil {
			return nil, fmt.Errorf("decode zk proof: %w", err)
		}
		return &DaData{Kind: kind, ZKProof: p}, nil
	default:
		return nil, ErrUnknownDaDataKind
	}
}

// ProofVariant discriminates the Proof tagged union.
type ProofVariant uint8

const (
	ProofVariantPublicInput ProofVariant = iota
	ProofVariantFull
)

// Proof is `{ PublicInput(bytes) | Full(bytes) }`, both length-prefixed
// with a leading discriminant byte.
type Proof struct {
	Variant ProofVariant
	Payload []byte
}

// EncodeProof serializes a Proof deterministically.
func EncodeProof(p *Proof) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(p.Variant))
	if err := writeLengthPrefixed(&buf, p.Payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeProof parses a Proof from its discriminant-prefixed wire form.
func DecodeProof(raw []byte) (*Proof, error) {
	if len(raw) < 1 {
		return nil, ErrTruncatedDaData
	}
	variant := ProofVariant(raw[0])
	if variant != ProofVariantPublicInput && variant != ProofVariantFull {
		return nil, fmt.Errorf("rollup: unknown proof variant %d", raw[0])
	}
	payload, _, err := readLengthPrefixed(raw[1:])
	if err != nil {
		return nil, err
	}
	return &Proof{Variant: variant, Payload: payload}, nil
}

func writeLengthPrefixed(buf *bytes.Buffer, data []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
	buf.Write(lenBuf[:])
	buf.Write(data)
	return nil
}

// readLengthPrefixed reads a uint32 little-endian length prefix followed by
// that many bytes, returning the payload and the number of bytes consumed.
func readLengthPrefixed(raw []byte) ([]byte, int, error) {
	if len(raw) < 4 {
		return nil, 0, ErrTruncatedDaData
	}
	n := binary.LittleEndian.Uint32(raw[0:4])
	if uint64(len(raw)-4) < uint64(n) {
		return nil, 0, ErrTruncatedDaData
	}
	return raw[4 : 4+n], 4 + int(n), nil
}
