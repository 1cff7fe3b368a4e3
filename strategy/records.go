package strategy

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

// ErrMalformedRecord is returned when a pair-table row cannot be parsed.
var ErrMalformedRecord = errors.New("malformed pair record")

// PairRecord maps one concentrated-liquidity pool to the constant-product
// pool sharing its token pair. BaseIsToken0 is the base asset's index on
// the constant-product side.
type PairRecord struct {
	TokenAddress common.Address
	V2Pool       common.Address
	V3Pool       common.Address
	BaseIsToken0 bool
}

var recordHeader = []string{"token_address", "v2_pool", "v3_pool", "base_is_token0"}

// LoadRecords parses the pair table from CSV. The header row is required
// and must match the canonical column set exactly.
func LoadRecords(r io.Reader) ([]PairRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(recordHeader)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: missing header: %v", ErrMalformedRecord, err)
	}
	for i, want := range recordHeader {
		if header[i] != want {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrMalformedRecord, i, header[i], want)
		}
	}

	var records []PairRecord
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedRecord, line, err)
		}
		record, err := parseRecord(row)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedRecord, line, err)
		}
		records = append(records, record)
	}
}

func parseRecord(row []string) (PairRecord, error) {
	addresses := make([]common.Address, 3)
	for i, field := range row[:3] {
		if !common.IsHexAddress(field) {
			return PairRecord{}, fmt.Errorf("%q is not an address", field)
		}
		addresses[i] = common.HexToAddress(field)
	}
	baseIsToken0, err := strconv.ParseBool(row[3])
	if err != nil {
		return PairRecord{}, fmt.Errorf("%q is not a bool", row[3])
	}
	return PairRecord{
		TokenAddress: addresses[0],
		V2Pool:       addresses[1],
		V3Pool:       addresses[2],
		BaseIsToken0: baseIsToken0,
	}, nil
}
