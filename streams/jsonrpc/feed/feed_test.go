package feed

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Test Setup: Mock RPC Server ---

type MockTouchStreamer struct {
	events chan TouchMessage
	t      *testing.T
}

func (api *MockTouchStreamer) SubscribePoolTouches(ctx context.Context) (*rpc.Subscription, error) {
	notifier, supported := rpc.NotifierFromContext(ctx)
	if !supported {
		return nil, rpc.ErrNotificationsUnsupported
	}

	rpcSub := notifier.CreateSubscription()
	go func() {
		for event := range api.events {
			select {
			case <-rpcSub.Err():
				return
			default:
				if err := notifier.Notify(rpcSub.ID, event); err != nil {
					api.t.Logf("Error notifying subscriber: %v", err)
					return
				}
			}
		}
	}()
	return rpcSub, nil
}

// setupMockTouchStreamer serves the mock API over websockets and returns the
// ws:// URL to dial.
func setupMockTouchStreamer(t *testing.T, events []TouchMessage) string {
	t.Helper()

	eventChan := make(chan TouchMessage, len(events))
	for _, e := range events {
		eventChan <- e
	}
	close(eventChan)

	api := &MockTouchStreamer{events: eventChan, t: t}
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName(RpcNamespace, api))

	httpServer := httptest.NewServer(server.WebsocketHandler([]string{"*"}))
	t.Cleanup(func() {
		server.Stop()
		httpServer.Close()
	})

	return "ws" + strings.TrimPrefix(httpServer.URL, "http")
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// --- Tests ---

func TestEventStreamDeliversTouches(t *testing.T) {
	messages := []TouchMessage{
		{Pool: "0x0000000000000000000000000000000000000e01", TxHash: "0x01"},
		{Pool: "not-an-address", TxHash: "0x02"}, // dropped
		{Pool: "0x0000000000000000000000000000000000000e02", TxHash: "0x03"},
	}
	url := setupMockTouchStreamer(t, messages)

	source, err := NewSource(Config{URL: url, Logger: nopLogger{}})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stream, err := source.EventStream(ctx)
	require.NoError(t, err)

	first := <-stream
	assert.Equal(t, common.HexToAddress("0xe01"), first.Pool)
	assert.Equal(t, common.HexToHash("0x01"), first.TxHash)

	second := <-stream
	assert.Equal(t, common.HexToAddress("0xe02"), second.Pool)

	// Cancellation closes the stream.
	cancel()
	for range stream {
	}
}

func TestNewSourceValidation(t *testing.T) {
	_, err := NewSource(Config{Logger: nopLogger{}})
	assert.Error(t, err)

	_, err = NewSource(Config{URL: "ws://localhost:1"})
	assert.Error(t, err)
}

func TestDecodeTouch(t *testing.T) {
	testCases := []struct {
		name    string
		msg     TouchMessage
		wantErr bool
	}{
		{name: "valid", msg: TouchMessage{Pool: "0x0000000000000000000000000000000000000e01", TxHash: "0xabc"}},
		{name: "empty pool", msg: TouchMessage{TxHash: "0xabc"}, wantErr: true},
		{name: "garbage pool", msg: TouchMessage{Pool: "bogus"}, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			event, err := DecodeTouch(tc.msg)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrMalformedMessage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, common.HexToAddress(tc.msg.Pool), event.Pool)
		})
	}
}
