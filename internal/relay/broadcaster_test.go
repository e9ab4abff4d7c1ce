package relay

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lovecigare/jupito-swap/internal/config"
)

func signedTx(t *testing.T) *solana.Transaction {
	t.Helper()
	payer := solana.NewWallet()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(1, payer.PublicKey(), solana.NewWallet().PublicKey()).Build(),
		},
		solana.Hash{},
		solana.TransactionPayer(payer.PublicKey()),
	)
	require.NoError(t, err)
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer.PublicKey()) {
			return &payer.PrivateKey
		}
		return nil
	})
	require.NoError(t, err)
	return tx
}

func acceptingServer(t *testing.T, bodies *sync.Map) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		if bodies != nil {
			bodies.Store("accept", string(b))
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","result":"5Bsig","id":1}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func rejectingServer(t *testing.T, bodies *sync.Map, key string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		if bodies != nil {
			bodies.Store(key, string(b))
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","error":{"code":-32602,"message":"no"},"id":1}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newBroadcaster(endpoints []string) *Broadcaster {
	return NewBroadcaster(config.RelayCfg{
		Endpoints: endpoints,
		Timeout:   2 * time.Second,
	}, zap.NewNop())
}

func TestBroadcast_FirstAcceptanceWins(t *testing.T) {
	accept := acceptingServer(t, nil)

	// the accepting endpoint is reported regardless of its position
	for _, position := range []int{0, 1, 2} {
		endpoints := make([]string, 3)
		for i := range endpoints {
			if i == position {
				endpoints[i] = accept.URL
			} else {
				endpoints[i] = rejectingServer(t, nil, "r").URL
			}
		}

		attempted, first, err := newBroadcaster(endpoints).Broadcast(context.Background(), signedTx(t))
		require.NoError(t, err)
		assert.Equal(t, 3, attempted)
		require.NotNil(t, first)
		assert.Equal(t, accept.URL, first.Endpoint)
		assert.True(t, first.Accepted)
		assert.Equal(t, "5Bsig", first.ResponseID)
	}
}

func TestBroadcast_AllReject_NotFatal(t *testing.T) {
	endpoints := []string{
		rejectingServer(t, nil, "a").URL,
		rejectingServer(t, nil, "b").URL,
	}

	attempted, first, err := newBroadcaster(endpoints).Broadcast(context.Background(), signedTx(t))
	require.NoError(t, err)
	assert.Equal(t, 2, attempted)
	assert.Nil(t, first)
}

func TestBroadcast_UnreachableEndpointSwallowed(t *testing.T) {
	accept := acceptingServer(t, nil)
	endpoints := []string{"http://127.0.0.1:1", accept.URL}

	_, first, err := newBroadcaster(endpoints).Broadcast(context.Background(), signedTx(t))
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, accept.URL, first.Endpoint)
}

func TestBroadcast_IdenticalPayloadToEveryEndpoint(t *testing.T) {
	var bodies sync.Map
	endpoints := []string{
		rejectingServer(t, &bodies, "r1").URL,
		rejectingServer(t, &bodies, "r2").URL,
		acceptingServer(t, &bodies).URL,
	}

	_, _, err := newBroadcaster(endpoints).Broadcast(context.Background(), signedTx(t))
	require.NoError(t, err)

	// give stragglers a moment to record their bodies
	deadline := time.Now().Add(time.Second)
	for {
		count := 0
		bodies.Range(func(_, _ any) bool { count++; return true })
		if count == 3 || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	var seen []string
	bodies.Range(func(_, v any) bool {
		seen = append(seen, v.(string))
		return true
	})
	require.Len(t, seen, 3)
	assert.Equal(t, seen[0], seen[1])
	assert.Equal(t, seen[1], seen[2])
}
