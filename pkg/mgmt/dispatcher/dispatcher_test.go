package dispatcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ndnsec/pkg/face"
	"ndnsec/pkg/mgmt"
	"ndnsec/pkg/mgmt/dataset"
	"ndnsec/pkg/ndn"
	"ndnsec/pkg/security/keys"
)

func testSigningInfo(t *testing.T) mgmt.SigningInfo {
	t.Helper()
	priv, err := keys.GeneratePrivateKey(keys.ECParams(256))
	require.NoError(t, err)
	return mgmt.SigningInfo{Key: priv, CertName: ndn.ParseName("/producer/KEY/k1/self/v1")}
}

func alwaysAuthorize(context.Context, ndn.Interest) (bool, string) { return true, "" }
func denyAuthorize(context.Context, ndn.Interest) (bool, string)   { return false, "forbidden" }

func passthroughParse(interest ndn.Interest, raw []byte) ([]byte, error) { return raw, nil }
func noopValidate([]byte) error                                         { return nil }

func TestControlCommandRoundTrip(t *testing.T) {
	f := face.NewInMemoryFace()
	d := New(f, nil, nil)
	signing := testSigningInfo(t)

	var gotParams []byte
	handle := func(ctx context.Context, interest ndn.Interest, params []byte) ([]byte, error) {
		gotParams = params
		return []byte("ack"), nil
	}
	require.NoError(t, d.AddControlCommand(ndn.ParseName("/mgmt/ping"), passthroughParse, alwaysAuthorize, noopValidate, handle, RejectSilent))
	require.NoError(t, d.AddTopPrefix(ndn.ParseName("/device"), true, signing))

	interest := ndn.NewInterest(ndn.ParseName("/device/mgmt/ping/hello"))
	data, err := f.Express(context.Background(), interest)
	require.NoError(t, err)
	require.NotNil(t, data)

	resp, err := mgmt.DecodeControlResponse(data.Content)
	require.NoError(t, err)
	assert.Equal(t, uint32(200), resp.StatusCode)
	assert.Equal(t, "ack", string(resp.Body))
	assert.Equal(t, []byte("hello"), gotParams)
}

func TestControlCommandRejectionSilent(t *testing.T) {
	f := face.NewInMemoryFace()
	d := New(f, nil, nil)
	signing := testSigningInfo(t)

	handle := func(ctx context.Context, interest ndn.Interest, params []byte) ([]byte, error) {
		t.Fatal("handler should not run when authorization is rejected")
		return nil, nil
	}
	require.NoError(t, d.AddControlCommand(ndn.ParseName("/mgmt/ping"), passthroughParse, denyAuthorize, noopValidate, handle, RejectSilent))
	require.NoError(t, d.AddTopPrefix(ndn.ParseName("/device"), true, signing))

	_, err := f.Express(context.Background(), ndn.NewInterest(ndn.ParseName("/device/mgmt/ping/hello")))
	assert.ErrorIs(t, err, face.ErrTimeout)
}

func TestControlCommandRejectionStatus403(t *testing.T) {
	f := face.NewInMemoryFace()
	d := New(f, nil, nil)
	signing := testSigningInfo(t)

	handle := func(ctx context.Context, interest ndn.Interest, params []byte) ([]byte, error) {
		t.Fatal("handler should not run when authorization is rejected")
		return nil, nil
	}
	require.NoError(t, d.AddControlCommand(ndn.ParseName("/mgmt/ping"), passthroughParse, denyAuthorize, noopValidate, handle, RejectStatus403))
	require.NoError(t, d.AddTopPrefix(ndn.ParseName("/device"), true, signing))

	data, err := f.Express(context.Background(), ndn.NewInterest(ndn.ParseName("/device/mgmt/ping/hello")))
	require.NoError(t, err)
	resp, err := mgmt.DecodeControlResponse(data.Content)
	require.NoError(t, err)
	assert.Equal(t, uint32(403), resp.StatusCode)
}

func TestControlCommandRetransmissionServedFromCache(t *testing.T) {
	f := face.NewInMemoryFace()
	d := New(f, nil, nil)
	signing := testSigningInfo(t)

	calls := 0
	handle := func(ctx context.Context, interest ndn.Interest, params []byte) ([]byte, error) {
		calls++
		return []byte("ack"), nil
	}
	require.NoError(t, d.AddControlCommand(ndn.ParseName("/mgmt/ping"), passthroughParse, alwaysAuthorize, noopValidate, handle, RejectSilent))
	require.NoError(t, d.AddTopPrefix(ndn.ParseName("/device"), true, signing))

	interest := ndn.NewInterest(ndn.ParseName("/device/mgmt/ping/hello"))
	_, err := f.Express(context.Background(), interest)
	require.NoError(t, err)
	_, err = f.Express(context.Background(), interest)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "retransmitted Interest should be served from the retransmission store, not re-run the handler")
}

func TestStatusDatasetProducesSegmentsWithFinalBlock(t *testing.T) {
	f := face.NewInMemoryFace()
	d := New(f, nil, nil)
	signing := testSigningInfo(t)

	handle := func(ctx context.Context, interest ndn.Interest, dsctx *dataset.Context) error {
		require.NoError(t, dsctx.Append([]byte("hello world")))
		return dsctx.End()
	}
	require.NoError(t, d.AddStatusDataset(ndn.ParseName("/mgmt/status"), alwaysAuthorize, handle))
	require.NoError(t, d.AddTopPrefix(ndn.ParseName("/device"), true, signing))

	data, err := f.Express(context.Background(), ndn.NewInterest(ndn.ParseName("/device/mgmt/status")))
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, ndn.ComponentSegment, data.Name.At(-1).Type)
	require.NotNil(t, data.FinalBlockID)
}

func TestStatusDatasetRejectsRequestWithSegmentComponent(t *testing.T) {
	f := face.NewInMemoryFace()
	d := New(f, nil, nil)
	signing := testSigningInfo(t)

	handle := func(ctx context.Context, interest ndn.Interest, dsctx *dataset.Context) error {
		t.Fatal("handler should not run for a request carrying a segment component")
		return nil
	}
	require.NoError(t, d.AddStatusDataset(ndn.ParseName("/mgmt/status"), alwaysAuthorize, handle))
	require.NoError(t, d.AddTopPrefix(ndn.ParseName("/device"), true, signing))

	bad := ndn.ParseName("/device/mgmt/status").Append(ndn.NewSegmentComponent(3))
	_, err := f.Express(context.Background(), ndn.NewInterest(bad))
	assert.ErrorIs(t, err, face.ErrTimeout)
}

func TestNotificationStreamAssignsIncreasingSequenceNumbers(t *testing.T) {
	f := face.NewInMemoryFace()
	d := New(f, nil, nil)
	signing := testSigningInfo(t)

	post, err := d.AddNotificationStream(ndn.ParseName("/mgmt/events"))
	require.NoError(t, err)
	require.NoError(t, d.AddTopPrefix(ndn.ParseName("/device"), true, signing))

	require.NoError(t, post([]byte("first")))
	require.NoError(t, post([]byte("second")))

	first, err := f.Express(context.Background(), ndn.NewInterest(ndn.ParseName("/device/mgmt/events").Append(ndn.NewSequenceNumberComponent(0))))
	require.NoError(t, err)
	assert.Equal(t, "first", string(first.Content))

	second, err := f.Express(context.Background(), ndn.NewInterest(ndn.ParseName("/device/mgmt/events").Append(ndn.NewSequenceNumberComponent(1))))
	require.NoError(t, err)
	assert.Equal(t, "second", string(second.Content))
}

func TestAddHandlerAfterTopPrefixFails(t *testing.T) {
	f := face.NewInMemoryFace()
	d := New(f, nil, nil)
	signing := testSigningInfo(t)
	require.NoError(t, d.AddTopPrefix(ndn.ParseName("/device"), true, signing))

	err := d.AddControlCommand(ndn.ParseName("/mgmt/ping"), passthroughParse, alwaysAuthorize, noopValidate, nil, RejectSilent)
	assert.Error(t, err)
}

func TestOverlappingRelPrefixRejected(t *testing.T) {
	f := face.NewInMemoryFace()
	d := New(f, nil, nil)
	require.NoError(t, d.AddControlCommand(ndn.ParseName("/mgmt/ping"), passthroughParse, alwaysAuthorize, noopValidate, nil, RejectSilent))
	err := d.AddControlCommand(ndn.ParseName("/mgmt/ping/sub"), passthroughParse, alwaysAuthorize, noopValidate, nil, RejectSilent)
	assert.Error(t, err)
}

func TestOverlappingTopPrefixRejected(t *testing.T) {
	f := face.NewInMemoryFace()
	d := New(f, nil, nil)
	signing := testSigningInfo(t)
	require.NoError(t, d.AddTopPrefix(ndn.ParseName("/device"), true, signing))
	err := d.AddTopPrefix(ndn.ParseName("/device/sub"), true, signing)
	assert.Error(t, err)
}

func TestRemoveTopPrefixStopsRouting(t *testing.T) {
	f := face.NewInMemoryFace()
	d := New(f, nil, nil)
	signing := testSigningInfo(t)
	handle := func(ctx context.Context, interest ndn.Interest, params []byte) ([]byte, error) {
		return []byte("ack"), nil
	}
	require.NoError(t, d.AddControlCommand(ndn.ParseName("/mgmt/ping"), passthroughParse, alwaysAuthorize, noopValidate, handle, RejectSilent))
	require.NoError(t, d.AddTopPrefix(ndn.ParseName("/device"), true, signing))
	require.NoError(t, d.RemoveTopPrefix(ndn.ParseName("/device")))

	_, err := f.Express(context.Background(), ndn.NewInterest(ndn.ParseName("/device/mgmt/ping/hello")))
	assert.ErrorIs(t, err, face.ErrTimeout)
}
