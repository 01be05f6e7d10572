package solana

import (
	"bytes"
	"crypto/ed25519"
	"io"

	"github.com/pkg/errors"

	"github.com/code-payments/stake-disburser/pkg/solana/shortvec"
)

// Marshal returns the wire encoding of the transaction: the compact array of
// signatures followed by the message.
func (t Transaction) Marshal() []byte {
	b := new(bytes.Buffer)

	_, _ = shortvec.EncodeLen(b, len(t.Signatures))
	for _, s := range t.Signatures {
		b.Write(s[:])
	}
	b.Write(t.Message.Marshal())

	return b.Bytes()
}

func (t *Transaction) Unmarshal(b []byte) error {
	r := &wireReader{buf: bytes.NewBuffer(b)}

	t.Signatures = make([]Signature, r.readLen("signature length"))
	for i := range t.Signatures {
		r.readFull(t.Signatures[i][:], "signature")
	}
	if r.err != nil {
		return r.err
	}

	return t.Message.Unmarshal(r.buf.Bytes())
}

// Marshal returns the wire encoding of a legacy message.
func (m Message) Marshal() []byte {
	b := new(bytes.Buffer)

	b.WriteByte(m.Header.NumSignatures)
	b.WriteByte(m.Header.NumReadonlySigned)
	b.WriteByte(m.Header.NumReadOnly)

	_, _ = shortvec.EncodeLen(b, len(m.Accounts))
	for _, a := range m.Accounts {
		b.Write(a)
	}

	b.Write(m.RecentBlockhash[:])

	_, _ = shortvec.EncodeLen(b, len(m.Instructions))
	for _, i := range m.Instructions {
		b.WriteByte(i.ProgramIndex)
		writeCompactBytes(b, i.Accounts)
		writeCompactBytes(b, i.Data)
	}

	return b.Bytes()
}

func (m *Message) Unmarshal(b []byte) error {
	if len(b) == 0 {
		return errors.New("empty message")
	}
	if b[0]&0x80 != 0 {
		return errors.New("versioned messages not supported")
	}

	r := &wireReader{buf: bytes.NewBuffer(b)}

	m.Header.NumSignatures = r.readByte("num signatures")
	m.Header.NumReadonlySigned = r.readByte("num readonly signatures")
	m.Header.NumReadOnly = r.readByte("num readonly")

	m.Accounts = make([]ed25519.PublicKey, r.readLen("account length"))
	for i := range m.Accounts {
		m.Accounts[i] = make(ed25519.PublicKey, ed25519.PublicKeySize)
		r.readFull(m.Accounts[i], "account")
	}

	r.readFull(m.RecentBlockhash[:], "recent blockhash")

	m.Instructions = make([]CompiledInstruction, r.readLen("instruction length"))
	for i := range m.Instructions {
		c := &m.Instructions[i]

		c.ProgramIndex = r.readByte("program index")
		c.Accounts = r.readCompactBytes("instruction accounts")
		c.Data = r.readCompactBytes("instruction data")
		if r.err != nil {
			return errors.Wrapf(r.err, "invalid instruction %d", i)
		}

		if int(c.ProgramIndex) >= len(m.Accounts) {
			return errors.Errorf("program index out of range: %d:%d", i, c.ProgramIndex)
		}
		for _, index := range c.Accounts {
			if int(index) >= len(m.Accounts) {
				return errors.Errorf("account index out of range: %d:%d", i, index)
			}
		}
	}

	return r.err
}

func writeCompactBytes(b *bytes.Buffer, data []byte) {
	_, _ = shortvec.EncodeLen(b, len(data))
	b.Write(data)
}

// wireReader decodes sequential fields and keeps the first error, so callers
// only need to check it once at the end.
type wireReader struct {
	buf *bytes.Buffer
	err error
}

func (r *wireReader) readByte(field string) byte {
	if r.err != nil {
		return 0
	}

	v, err := r.buf.ReadByte()
	if err != nil {
		r.err = errors.Wrapf(err, "failed to read %s", field)
	}
	return v
}

func (r *wireReader) readLen(field string) int {
	if r.err != nil {
		return 0
	}

	n, err := shortvec.DecodeLen(r.buf)
	if err != nil {
		r.err = errors.Wrapf(err, "failed to read %s", field)
		return 0
	}
	return n
}

func (r *wireReader) readFull(dst []byte, field string) {
	if r.err != nil {
		return
	}

	if _, err := io.ReadFull(r.buf, dst); err != nil {
		r.err = errors.Wrapf(err, "failed to read %s", field)
	}
}

func (r *wireReader) readCompactBytes(field string) []byte {
	n := r.readLen(field + " length")
	if r.err != nil {
		return nil
	}

	if n > r.buf.Len() {
		r.err = errors.Errorf("failed to read %s: %d bytes declared, %d available", field, n, r.buf.Len())
		return nil
	}

	dst := make([]byte, n)
	r.readFull(dst, field)
	return dst
}
