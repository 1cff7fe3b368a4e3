package strategy

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

const pairTable = `token_address,v2_pool,v3_pool,base_is_token0
0x00000000000000000000000000000000000000bb,0x0000000000000000000000000000000000000e02,0x0000000000000000000000000000000000000e01,true
0x00000000000000000000000000000000000000cc,0x0000000000000000000000000000000000000e04,0x0000000000000000000000000000000000000e03,false
`

func TestLoadRecords(t *testing.T) {
	records, err := LoadRecords(strings.NewReader(pairTable))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, common.HexToAddress("0xbb"), records[0].TokenAddress)
	assert.Equal(t, common.HexToAddress("0xe02"), records[0].V2Pool)
	assert.Equal(t, common.HexToAddress("0xe01"), records[0].V3Pool)
	assert.True(t, records[0].BaseIsToken0)
	assert.False(t, records[1].BaseIsToken0)
}

func TestLoadRecordsRejectsMalformedInput(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{
			name:  "wrong header",
			input: "a,b,c,d\n",
		},
		{
			name: "bad address",
			input: "token_address,v2_pool,v3_pool,base_is_token0\n" +
				"nonsense,0x0000000000000000000000000000000000000e02,0x0000000000000000000000000000000000000e01,true\n",
		},
		{
			name: "bad bool",
			input: "token_address,v2_pool,v3_pool,base_is_token0\n" +
				"0x00000000000000000000000000000000000000bb,0x0000000000000000000000000000000000000e02,0x0000000000000000000000000000000000000e01,maybe\n",
		},
		{
			name: "missing column",
			input: "token_address,v2_pool,v3_pool,base_is_token0\n" +
				"0x00000000000000000000000000000000000000bb,0x0000000000000000000000000000000000000e02,true\n",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadRecords(strings.NewReader(tc.input))
			assert.ErrorIs(t, err, ErrMalformedRecord)
		})
	}
}

func TestProcessEventEmitsSizeLadder(t *testing.T) {
	s, err := New(Config{
		Records:            strings.NewReader(pairTable),
		ProposerPercentage: 17,
		Logger:             nopLogger{},
	})
	require.NoError(t, err)
	require.NoError(t, s.SyncState(context.Background()))

	attempts := s.ProcessEvent(context.Background(), PoolTouched{
		Pool:   common.HexToAddress("0xe01"),
		TxHash: common.HexToHash("0x01"),
	})
	require.Len(t, attempts, 14)

	expectedSize := new(big.Int).Exp(big.NewInt(10), big.NewInt(5), nil)
	seenIDs := make(map[string]bool, len(attempts))
	for _, attempt := range attempts {
		assert.Equal(t, common.HexToAddress("0xe01"), attempt.VenueA)
		assert.Equal(t, common.HexToAddress("0xe02"), attempt.VenueB)
		assert.Equal(t, uint64(17), attempt.ProposerPercentage)
		assert.Equal(t, expectedSize, attempt.AmountIn)
		expectedSize = new(big.Int).Mul(expectedSize, big.NewInt(10))

		assert.False(t, seenIDs[attempt.ID.String()], "attempt IDs must be unique")
		seenIDs[attempt.ID.String()] = true
	}
}

func TestProcessEventIgnoresUnknownPool(t *testing.T) {
	s, err := New(Config{
		Records: strings.NewReader(pairTable),
		Logger:  nopLogger{},
	})
	require.NoError(t, err)
	require.NoError(t, s.SyncState(context.Background()))

	attempts := s.ProcessEvent(context.Background(), PoolTouched{
		Pool: common.HexToAddress("0xdead"),
	})
	assert.Empty(t, attempts)
}

func TestSyncStateSurfacesTableErrors(t *testing.T) {
	s, err := New(Config{
		Records: strings.NewReader("not,a,valid,table\n"),
		Logger:  nopLogger{},
	})
	require.NoError(t, err)
	assert.ErrorIs(t, s.SyncState(context.Background()), ErrMalformedRecord)
}
