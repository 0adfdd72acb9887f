package rpcsvc

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/bkfox/rpccaps-go/codec"
)

type counter struct {
	n int
}

func (c *counter) Add(delta uint32) (uint32, error) {
	c.n += int(delta)
	return uint32(c.n), nil
}

func (c *counter) Clear() {
	c.n = 0
}

func (c *counter) Get() uint32 {
	return uint32(c.n)
}

func (c *counter) Fail() error {
	return assertError
}

var assertError = assertErr("boom")

type assertErr string

func (e assertErr) Error() string { return string(e) }

func TestDeriveDispatchRoundTrip(t *testing.T) {
	svc := Derive(&counter{})
	idx := map[string]int{}
	for i, name := range svc.MethodNames() {
		idx[name] = i
	}

	arg, err := msgpack.Marshal(uint32(5))
	require.NoError(t, err)
	resp := svc.Dispatch(Request{Method: idx["Add"], Args: [][]byte{arg}})
	require.Empty(t, resp.Err)

	var result uint32
	require.NoError(t, msgpack.Unmarshal(resp.Result, &result))
	assert.Equal(t, uint32(5), result)
}

func TestDeriveDispatchUnknownMethod(t *testing.T) {
	svc := Derive(&counter{})
	resp := svc.Dispatch(Request{Method: 999})
	assert.NotEmpty(t, resp.Err)
}

func TestDeriveDispatchErrorReturn(t *testing.T) {
	svc := Derive(&counter{})
	idx := map[string]int{}
	for i, name := range svc.MethodNames() {
		idx[name] = i
	}
	resp := svc.Dispatch(Request{Method: idx["Fail"]})
	assert.Equal(t, "boom", resp.Err)
}

func TestClientServeOverPipe(t *testing.T) {
	svc := Derive(&counter{})

	clientToServer, serverFromClient := io.Pipe()
	serverToClient, clientFromServer := io.Pipe()

	serverIn := codec.NewFramed[Request](serverFromClient, nil, codec.MsgpackCodec[Request]{})
	serverOut := codec.NewFramed[Response](nil, serverToClient, codec.MsgpackCodec[Response]{})
	go func() {
		_ = svc.Serve(serverIn, serverOut)
	}()

	clientIn := codec.NewFramed[Request](nil, clientToServer, codec.MsgpackCodec[Request]{})
	clientOut := codec.NewFramed[Response](clientFromServer, nil, codec.MsgpackCodec[Response]{})
	client := NewClient(svc.MethodNames(), clientIn, clientOut)

	result, err := CallTyped[uint32](client, "Add", uint32(7))
	require.NoError(t, err)
	assert.Equal(t, uint32(7), result)

	result, err = CallTyped[uint32](client, "Add", uint32(3))
	require.NoError(t, err)
	assert.Equal(t, uint32(10), result)

	_, err = client.Call("Clear")
	require.NoError(t, err)

	result, err = CallTyped[uint32](client, "Get")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), result)
}

func TestClientCallUnknownMethod(t *testing.T) {
	clientIn := codec.NewFramed[Request](nil, io.Discard, codec.MsgpackCodec[Request]{})
	client := NewClient(nil, clientIn, nil)
	_, err := client.Call("NoSuchMethod")
	assert.Error(t, err)
}
