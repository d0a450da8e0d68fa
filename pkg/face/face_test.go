package face

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ndnsec/pkg/ndn"
)

func TestExpressRoutesToLongestPrefix(t *testing.T) {
	f := NewInMemoryFace()
	require.NoError(t, f.RegisterPrefix(ndn.ParseName("/a"), func(ctx context.Context, i ndn.Interest) (*ndn.Data, error) {
		d := ndn.NewData(i.Name, []byte("short"))
		return &d, nil
	}))
	require.NoError(t, f.RegisterPrefix(ndn.ParseName("/a/b"), func(ctx context.Context, i ndn.Interest) (*ndn.Data, error) {
		d := ndn.NewData(i.Name, []byte("long"))
		return &d, nil
	}))

	data, err := f.Express(context.Background(), ndn.NewInterest(ndn.ParseName("/a/b/c")))
	require.NoError(t, err)
	assert.Equal(t, "long", string(data.Content))
}

func TestExpressNoRouteTimesOut(t *testing.T) {
	f := NewInMemoryFace()
	_, err := f.Express(context.Background(), ndn.NewInterest(ndn.ParseName("/unreachable")))
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestUnregisterPrefix(t *testing.T) {
	f := NewInMemoryFace()
	require.NoError(t, f.RegisterPrefix(ndn.ParseName("/a"), func(ctx context.Context, i ndn.Interest) (*ndn.Data, error) {
		d := ndn.NewData(i.Name, nil)
		return &d, nil
	}))
	require.NoError(t, f.UnregisterPrefix(ndn.ParseName("/a")))
	require.Error(t, f.UnregisterPrefix(ndn.ParseName("/a")))

	_, err := f.Express(context.Background(), ndn.NewInterest(ndn.ParseName("/a/b")))
	assert.ErrorIs(t, err, ErrTimeout)
}
