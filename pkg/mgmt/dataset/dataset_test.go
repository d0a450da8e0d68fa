package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ndnsec/pkg/mgmt"
	"ndnsec/pkg/ndn"
)

func noopSign(d ndn.Data) (ndn.Data, error) { return d, nil }

func TestSetPrefixRejectsNonMatchingName(t *testing.T) {
	c := New(ndn.ParseName("/a/b"), noopSign, func(ndn.Data) error { return nil })
	err := c.SetPrefix(ndn.ParseName("/x/y"))
	assert.Error(t, err)
	assert.Equal(t, StateInitial, c.State())
}

func TestSetPrefixGeneratesVersionWhenMissing(t *testing.T) {
	c := New(ndn.ParseName("/a/b"), noopSign, func(ndn.Data) error { return nil })
	require.NoError(t, c.SetPrefix(ndn.ParseName("/a/b/list")))
	assert.Equal(t, ndn.ComponentVersion, c.prefix.At(-1).Type)
}

func TestSetPrefixRejectsSegmentComponent(t *testing.T) {
	c := New(ndn.ParseName("/a/b"), noopSign, func(ndn.Data) error { return nil })
	bad := ndn.ParseName("/a/b/list").Append(ndn.NewSegmentComponent(0))
	assert.Error(t, c.SetPrefix(bad))
}

func TestAppendAndEndEmitsSegments(t *testing.T) {
	var emitted []ndn.Data
	c := New(ndn.ParseName("/a/b"), noopSign, func(d ndn.Data) error {
		emitted = append(emitted, d)
		return nil
	})
	c.maxPayload = 4
	require.NoError(t, c.SetPrefix(ndn.ParseName("/a/b/list").Append(ndn.NewVersionComponent(1))))

	require.NoError(t, c.Append([]byte("abcdefgh")))
	assert.Equal(t, StateResponded, c.State())
	require.Len(t, emitted, 2, "8 bytes over a 4-byte budget should flush two non-final segments")

	require.NoError(t, c.End())
	assert.Equal(t, StateFinalized, c.State())
	require.Len(t, emitted, 3)

	final := emitted[len(emitted)-1]
	require.NotNil(t, final.FinalBlockID)
	assert.Equal(t, final.Name.At(-1), *final.FinalBlockID)

	for i, d := range emitted {
		assert.Equal(t, uint64(i), d.Name.At(-1).Value)
	}
}

func TestAppendBeforeSetPrefixFails(t *testing.T) {
	c := New(ndn.ParseName("/a/b"), noopSign, func(ndn.Data) error { return nil })
	assert.Error(t, c.Append([]byte("x")))
}

func TestEndWithNoAppendEmitsEmptyFinalSegment(t *testing.T) {
	var emitted []ndn.Data
	c := New(ndn.ParseName("/a/b"), noopSign, func(d ndn.Data) error {
		emitted = append(emitted, d)
		return nil
	})
	require.NoError(t, c.SetPrefix(ndn.ParseName("/a/b/list").Append(ndn.NewVersionComponent(1))))
	require.NoError(t, c.End())
	require.Len(t, emitted, 1)
	assert.Empty(t, emitted[0].Content)
	assert.NotNil(t, emitted[0].FinalBlockID)
}

func TestRejectOnlyAllowedInInitial(t *testing.T) {
	var emitted []ndn.Data
	c := New(ndn.ParseName("/a/b"), noopSign, func(d ndn.Data) error {
		emitted = append(emitted, d)
		return nil
	})
	require.NoError(t, c.Reject(mgmt.ControlResponse{StatusCode: 403, StatusText: "forbidden"}))
	assert.Equal(t, StateFinalized, c.State())
	require.Len(t, emitted, 1)
	assert.Equal(t, ndn.ContentTypeNack, emitted[0].ContentType)

	err := c.Reject(mgmt.ControlResponse{StatusCode: 403})
	assert.Error(t, err)
}

func TestOperationsAfterFinalizedFail(t *testing.T) {
	c := New(ndn.ParseName("/a/b"), noopSign, func(ndn.Data) error { return nil })
	require.NoError(t, c.SetPrefix(ndn.ParseName("/a/b/list").Append(ndn.NewVersionComponent(1))))
	require.NoError(t, c.End())

	assert.Error(t, c.SetPrefix(ndn.ParseName("/a/b/list2")))
	assert.Error(t, c.Append([]byte("x")))
	assert.Error(t, c.End())
}
