package model

import (
	"github.com/cipherstake/staking-ledger/internal/fhe"
)

const CiphertextCollection = "ciphertexts"

// CiphertextDocument is the mongo form of fhe.CipherRecord. Data rides as raw
// bytes; the ACL is the list of principals allowed to decrypt.
type CiphertextDocument struct {
	Handle string   `bson:"_id"` // hex handle
	Data   []byte   `bson:"data"`
	Depth  int64    `bson:"depth"`
	ACL    []string `bson:"acl"`
}

func NewCiphertextDocument(rec *fhe.CipherRecord) *CiphertextDocument {
	acl := rec.ACL
	if acl == nil {
		acl = []string{}
	}
	return &CiphertextDocument{
		Handle: rec.Handle.Hex(),
		Data:   rec.Data,
		Depth:  rec.Depth,
		ACL:    acl,
	}
}

func (d *CiphertextDocument) ToCipherRecord() (*fhe.CipherRecord, error) {
	handle, err := fhe.HandleFromHex(d.Handle)
	if err != nil {
		return nil, err
	}
	return &fhe.CipherRecord{
		Handle: handle,
		Data:   d.Data,
		Depth:  d.Depth,
		ACL:    d.ACL,
	}, nil
}
