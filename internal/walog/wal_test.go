package walog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendAndReplayInOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.wal")

	w, err := Open(path, nil, nil)
	require.NoError(t, err)

	require.NoError(t, w.Append(OpAddVector, EncodeVector([]float32{1, 2, 3})))
	require.NoError(t, w.Append(OpAddVector, EncodeVector([]float32{4, 5, 6})))
	require.NoError(t, w.Append(OpAddVector, EncodeVector([]float32{7, 8, 9})))
	require.NoError(t, w.Close())

	var replayed [][]float32
	w2, err := Open(path, func(op, payload string) error {
		if op != OpAddVector {
			return ErrUnrecognizedOp
		}
		v, err := DecodeVector(payload)
		if err != nil {
			return err
		}
		replayed = append(replayed, v)
		return nil
	}, nil)
	require.NoError(t, err)
	defer w2.Close()

	require.Equal(t, 3, len(replayed))
	require.Equal(t, []float32{1, 2, 3}, replayed[0])
	require.Equal(t, []float32{4, 5, 6}, replayed[1])
	require.Equal(t, []float32{7, 8, 9}, replayed[2])
}

func TestCheckpointTruncatesLog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.wal")

	w, err := Open(path, nil, nil)
	require.NoError(t, err)
	require.NoError(t, w.Append(OpAddVector, EncodeVector([]float32{1})))
	require.NoError(t, w.Checkpoint())
	require.NoError(t, w.Close())

	var replayed int
	w2, err := Open(path, func(op, payload string) error {
		replayed++
		return nil
	}, nil)
	require.NoError(t, err)
	defer w2.Close()
	require.Equal(t, 0, replayed)
}

func TestReplaySkipsMalformedAndUnrecognized(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.wal")

	w, err := Open(path, nil, nil)
	require.NoError(t, err)
	require.NoError(t, w.Append(OpAddVector, EncodeVector([]float32{1, 2})))
	require.NoError(t, w.Append("DELETE_VECTOR", "5"))
	require.NoError(t, w.Append(OpAddVector, EncodeVector([]float32{3, 4})))
	require.NoError(t, w.Close())

	// Manually append a malformed line (no separator) directly to the file.
	raw, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, err = raw.WriteString("not-a-valid-record\n")
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	var ops []string
	w2, err := Open(path, func(op, payload string) error {
		if op != OpAddVector {
			return ErrUnrecognizedOp
		}
		ops = append(ops, payload)
		return nil
	}, nil)
	require.NoError(t, err)
	defer w2.Close()

	require.Equal(t, []string{"[1, 2]", "[3, 4]"}, ops)
}

func TestEncodeDecodeVectorRoundTrip(t *testing.T) {
	v := []float32{1.5, -2.25, 0, 3.333333}
	encoded := EncodeVector(v)
	decoded, err := DecodeVector(encoded)
	require.NoError(t, err)
	require.Equal(t, v, decoded)
}
