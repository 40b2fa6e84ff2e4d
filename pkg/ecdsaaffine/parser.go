package ecdsaaffine

import (
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
)

// SignatureParser defines the interface for parsing signatures from various sources.
type SignatureParser interface {
	// ParseSignatures parses signatures from a source and returns them.
	ParseSignatures(source string) ([]*Signature, error)
}

// Default field and column names shared by the JSON and CSV parsers.
const (
	defaultMessageField   = "message"
	defaultRField         = "r"
	defaultSField         = "s"
	defaultZField         = "z"
	defaultSourceField    = "txid"
	defaultPublicKeyField = "public_key"
)

// JSONParser parses signatures from JSON files.
//
// Expected format:
//
//	[
//	  {"message": "...", "r": "...", "s": "..."},
//	  {"z": "0x...", "r": "0x...", "s": "0x...", "txid": "...", "public_key": "02..."}
//	]
type JSONParser struct {
	MessageField string // Field name for message (default: "message")
	RField       string // Field name for r (default: "r")
	SField       string // Field name for s (default: "s")
	ZField       string // Field name for z/hash (default: "z")
}

// ParseSignatures parses signatures from a JSON file.
func (p *JSONParser) ParseSignatures(jsonFile string) ([]*Signature, error) {
	file, err := os.Open(jsonFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	defer file.Close()
	return p.Parse(file)
}

// Parse parses signatures from a JSON stream.
func (p *JSONParser) Parse(r io.Reader) ([]*Signature, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber() // Preserve large numbers as json.Number instead of float64

	var items []map[string]interface{}
	if err := decoder.Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	cols := columns{
		message: orDefault(p.MessageField, defaultMessageField),
		r:       orDefault(p.RField, defaultRField),
		s:       orDefault(p.SField, defaultSField),
		z:       orDefault(p.ZField, defaultZField),
	}

	signatures := make([]*Signature, 0, len(items))
	for i, item := range items {
		sig, err := cols.build(func(name string) (interface{}, bool) {
			v, ok := item[name]
			return v, ok
		})
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		signatures = append(signatures, sig)
	}
	return signatures, nil
}

// CSVParser parses signatures from CSV files.
type CSVParser struct {
	MessageCol string // Column name for message (default: "message")
	RCol       string // Column name for r (default: "r")
	SCol       string // Column name for s (default: "s")
	ZCol       string // Column name for z/hash (default: "z")
}

// ParseSignatures parses signatures from a CSV file.
func (p *CSVParser) ParseSignatures(csvFile string) ([]*Signature, error) {
	file, err := os.Open(csvFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()
	return p.Parse(file)
}

// Parse parses signatures from a CSV stream with a header row.
func (p *CSVParser) Parse(r io.Reader) ([]*Signature, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.TrimSpace(col)] = i
	}

	cols := columns{
		message: orDefault(p.MessageCol, defaultMessageField),
		r:       orDefault(p.RCol, defaultRField),
		s:       orDefault(p.SCol, defaultSField),
		z:       orDefault(p.ZCol, defaultZField),
	}
	if _, ok := index[cols.r]; !ok {
		return nil, fmt.Errorf("missing required column: %s", cols.r)
	}
	if _, ok := index[cols.s]; !ok {
		return nil, fmt.Errorf("missing required column: %s", cols.s)
	}

	var signatures []*Signature
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		sig, err := cols.build(func(name string) (interface{}, bool) {
			i, ok := index[name]
			if !ok || i >= len(record) || record[i] == "" {
				return nil, false
			}
			return record[i], true
		})
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		signatures = append(signatures, sig)
	}
	return signatures, nil
}

type columns struct {
	message, r, s, z string
}

// build assembles one signature from a field lookup. z takes precedence
// over hashing the message.
func (c columns) build(get func(name string) (interface{}, bool)) (*Signature, error) {
	field := Secp256k1Field()

	var z *big.Int
	if zVal, ok := get(c.z); ok {
		v, err := parseBigInt(zVal)
		if err != nil {
			return nil, fmt.Errorf("failed to parse z: %w", err)
		}
		z = v
	} else if msgVal, ok := get(c.message); ok {
		msg, ok := msgVal.(string)
		if !ok {
			return nil, fmt.Errorf("message field must be a string")
		}
		z = HashMessage([]byte(msg))
	} else {
		return nil, fmt.Errorf("missing message or z field")
	}

	rVal, ok := get(c.r)
	if !ok {
		return nil, fmt.Errorf("missing r field")
	}
	r, err := parseBigInt(rVal)
	if err != nil {
		return nil, fmt.Errorf("failed to parse r: %w", err)
	}

	sVal, ok := get(c.s)
	if !ok {
		return nil, fmt.Errorf("missing s field")
	}
	s, err := parseBigInt(sVal)
	if err != nil {
		return nil, fmt.Errorf("failed to parse s: %w", err)
	}

	sig, err := NewSignature(field, z, r, s)
	if err != nil {
		return nil, err
	}
	if v, ok := get(defaultSourceField); ok {
		sig.SourceID = fmt.Sprint(v)
	}
	if v, ok := get(defaultPublicKeyField); ok {
		pk, err := hex.DecodeString(strings.TrimPrefix(fmt.Sprint(v), "0x"))
		if err != nil {
			return nil, fmt.Errorf("failed to parse public key: %w", err)
		}
		sig.PublicKey = pk
	}
	return sig, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// parseBigInt parses a big integer from various formats (hex string, decimal string, number).
// Strings with a 0x prefix, hex letters or more than 20 digits are read as hex.
func parseBigInt(val interface{}) (*big.Int, error) {
	switch v := val.(type) {
	case string:
		s := strings.TrimSpace(v)
		hexPrefixed := strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")
		s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")

		if hexPrefixed || strings.ContainsAny(s, "abcdefABCDEF") || len(s) > 20 {
			if z, ok := new(big.Int).SetString(s, 16); ok {
				return z, nil
			}
		}
		z, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("invalid number format: %s", v)
		}
		return z, nil

	case json.Number:
		z, ok := new(big.Int).SetString(string(v), 10)
		if !ok {
			return nil, fmt.Errorf("invalid number format: %s", v)
		}
		return z, nil

	case float64:
		// Loses precision above 2^53; only reached without UseNumber.
		z, ok := new(big.Int).SetString(fmt.Sprintf("%.0f", v), 10)
		if !ok {
			return nil, fmt.Errorf("invalid number format: %v", v)
		}
		return z, nil

	case int64:
		return big.NewInt(v), nil

	case int:
		return big.NewInt(int64(v)), nil

	default:
		return nil, fmt.Errorf("unsupported type: %T", val)
	}
}
