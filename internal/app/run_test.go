package app

import (
	"bytes"
	"context"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/observe-l/rlcdecode/fec"
	"github.com/observe-l/rlcdecode/internal/instance"
	"github.com/observe-l/rlcdecode/internal/output"
)

// writeInstance encodes msg with seed 42 (blocks of 3 symbols, 2 repairs) and
// erases `lost` source symbols at the front of every block.
func writeInstance(t *testing.T, dir, name string, msg []byte, lost int) {
	t.Helper()
	const ws, bs, red = 4, 3, 2
	h := instance.Header{Seed: 42, BlockSize: bs, WordSize: ws, Redundancy: red, MessageSize: uint64(len(msg))}
	var buf bytes.Buffer
	buf.Write(h.MarshalBinary(nil))
	padded := make([]byte, int(h.SourceSymbols())*ws)
	copy(padded, msg)
	coefs := fec.GenerateCoefficients(42, bs, red)
	for off := 0; off < len(padded); {
		var src [][]byte
		for len(src) < bs && off < len(padded) {
			src = append(src, padded[off:off+ws])
			off += ws
		}
		m := fec.NewMatrix(red, len(src))
		for r := 0; r < red; r++ {
			copy(m.Row(r), coefs.Row(r)[:len(src)])
		}
		rep, err := m.MulSymbols(src)
		require.NoError(t, err)
		for i, s := range src {
			if i < lost {
				buf.Write(make([]byte, ws))
			} else {
				buf.Write(s)
			}
		}
		for _, s := range rep {
			buf.Write(s)
		}
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644))
}

func message(seed int64, n int) []byte {
	rng := rand.New(rand.NewSource(seed))
	msg := make([]byte, n)
	for i := range msg {
		msg[i] = byte(1 + rng.Intn(255))
	}
	return msg
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestRunDecodesDirectory(t *testing.T) {
	dir := t.TempDir()
	msgA, msgC := message(1, 45), message(2, 7)
	writeInstance(t, dir, "a.bin", msgA, 1)
	writeInstance(t, dir, "b.bin", message(3, 20), 3) // 3 erasures, 2 repairs
	writeInstance(t, dir, "c.bin", msgC, 0)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "d.bin"), []byte{1, 2, 3}, 0o644))

	var out bytes.Buffer
	d := &Decoder{Threads: 3, Log: quietLogger(), Registry: prometheus.NewRegistry()}
	sum, err := d.Run(context.Background(), dir, &out)
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Instances)
	assert.Equal(t, 2, sum.Decoded)
	assert.False(t, sum.OK())
	assert.ElementsMatch(t, []string{"b.bin", filepath.Join(dir, "d.bin")}, sum.Failed)

	recs, err := output.ReadRecords(&out)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "a.bin", recs[0].Name)
	assert.Equal(t, msgA, recs[0].Message)
	assert.Equal(t, "c.bin", recs[1].Name)
	assert.Equal(t, msgC, recs[1].Message)
}

func TestRunSameOutputForAnyThreadCount(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 12; i++ {
		writeInstance(t, dir, string(rune('a'+i))+".bin", message(int64(i), 10+37*i), i%3)
	}
	var outputs [][]byte
	for _, threads := range []int{1, 4, 16} {
		var out bytes.Buffer
		d := &Decoder{Threads: threads, Log: quietLogger()}
		sum, err := d.Run(context.Background(), dir, &out)
		require.NoError(t, err)
		require.True(t, sum.OK(), "failed: %v", sum.Failed)
		outputs = append(outputs, out.Bytes())
	}
	assert.Equal(t, outputs[0], outputs[1])
	assert.Equal(t, outputs[0], outputs[2])
}

func TestRunErrors(t *testing.T) {
	d := &Decoder{Threads: 0, Log: quietLogger()}
	_, err := d.Run(context.Background(), t.TempDir(), io.Discard)
	assert.Error(t, err)

	d.Threads = 1
	_, err = d.Run(context.Background(), filepath.Join(t.TempDir(), "nope"), io.Discard)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.Run(ctx, t.TempDir(), io.Discard)
	assert.ErrorIs(t, err, context.Canceled)
}
