package chainscan

import (
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/mahdiidarabi/ecdsa-noncescan/pkg/ecdsaaffine"
)

// Extractor turns transactions into signature records. It never fails:
// a transaction without a usable signature yields nothing.
type Extractor struct {
	field *ecdsaaffine.Field
}

// NewExtractor returns an extractor validating against field.
func NewExtractor(field *ecdsaaffine.Field) *Extractor {
	return &Extractor{field: field}
}

// Extract returns the first signature found in tx.
//
// For script-based transactions the candidates are, input by input, the
// unlocking script followed by each witness item; the first blob holding
// a decodable DER signature wins and later inputs are not inspected.
func (e *Extractor) Extract(tx Transaction) (*ecdsaaffine.Signature, bool) {
	switch tx := tx.(type) {
	case *AccountTx:
		return e.extractAccount(tx)
	case *ScriptTx:
		for i := range tx.Inputs {
			if sig, ok := e.extractInput(tx, &tx.Inputs[i]); ok {
				return sig, true
			}
		}
		return nil, false
	default:
		return nil, false
	}
}

// ExtractAll returns one signature per input that carries one. Account
// transactions yield at most one record.
func (e *Extractor) ExtractAll(tx Transaction) []*ecdsaaffine.Signature {
	switch tx := tx.(type) {
	case *AccountTx:
		if sig, ok := e.extractAccount(tx); ok {
			return []*ecdsaaffine.Signature{sig}
		}
		return nil
	case *ScriptTx:
		var sigs []*ecdsaaffine.Signature
		for i := range tx.Inputs {
			if sig, ok := e.extractInput(tx, &tx.Inputs[i]); ok {
				sigs = append(sigs, sig)
			}
		}
		return sigs
	default:
		return nil
	}
}

func (e *Extractor) extractAccount(tx *AccountTx) (*ecdsaaffine.Signature, bool) {
	if tx.R == nil || tx.S == nil || tx.R.Sign() == 0 || tx.S.Sign() == 0 {
		return nil, false
	}
	sig, err := ecdsaaffine.NewSignature(e.field, messageHash(tx.Hash, tx.SigHash), tx.R, tx.S)
	if err != nil {
		return nil, false
	}
	sig.SourceID = tx.Hash
	sig.Family = ecdsaaffine.FamilyAccount
	sig.Address = tx.From
	sig.PublicKey = tx.PublicKey
	return sig, true
}

func (e *Extractor) extractInput(tx *ScriptTx, in *ScriptInput) (*ecdsaaffine.Signature, bool) {
	r, s, ok := e.scan(in.SignatureScript)
	for i := 0; !ok && i < len(in.Witness); i++ {
		r, s, ok = e.scan(in.Witness[i])
	}
	if !ok {
		return nil, false
	}

	sig, err := ecdsaaffine.NewSignature(e.field, messageHash(tx.TxID, in.SigHash), r, s)
	if err != nil {
		return nil, false
	}
	sig.SourceID = tx.TxID
	sig.Family = ecdsaaffine.FamilyScript
	sig.Address = in.Address
	sig.PublicKey = in.PubKey
	return sig, true
}

// scan looks for a 0x30 marker followed by a plausible sequence length
// and decodes the first span that parses.
func (e *Extractor) scan(blob []byte) (*big.Int, *big.Int, bool) {
	for i := 0; i+ecdsaaffine.MinSigLen <= len(blob); i++ {
		if blob[i] != 0x30 {
			continue
		}
		end := i + 2 + int(blob[i+1])
		if end-i < ecdsaaffine.MinSigLen || end-i > ecdsaaffine.MaxSigLen || end > len(blob) {
			continue
		}
		r, s, err := ecdsaaffine.ParseDERSignature(e.field, blob[i:end])
		if err == nil {
			return r, s, true
		}
	}
	return nil, nil, false
}

// messageHash prefers a provider supplied signing hash. Otherwise the
// transaction identifier is read as a hex number, or hashed when it is
// not hex.
func messageHash(id string, sigHash []byte) *big.Int {
	if len(sigHash) > 0 {
		return new(big.Int).SetBytes(sigHash)
	}
	trimmed := strings.TrimPrefix(strings.TrimPrefix(id, "0x"), "0X")
	if b, err := hex.DecodeString(trimmed); err == nil && len(b) > 0 {
		return new(big.Int).SetBytes(b)
	}
	return ecdsaaffine.HashMessage([]byte(id))
}
