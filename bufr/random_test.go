package bufr

import (
	"math"
	"testing"
	"time"

	"github.com/dsnet/wreport/internal/testutil"
	"github.com/dsnet/wreport/wmo"
)

// TestRandomRoundTrip exercises both the uncompressed and compressed codecs
// over many deterministically-generated bulletins, rather than a handful of
// hand-picked vectors, to catch domain-boundary mistakes a fixed fixture
// would miss.
func TestRandomRoundTrip(t *testing.T) {
	ts := mustTableSet(t)
	blockInfo := wmo.NewVarinfo(wmo.NewVarcode(0, 1, 1), "", "", wmo.Integer, 0, 0, 7)
	tempInfo := wmo.NewVarinfo(wmo.NewVarcode(0, 12, 101), "", "", wmo.Decimal, 2, -5000, 16)

	r := testutil.NewRand(1)
	for trial := 0; trial < 50; trial++ {
		compressed := trial%2 == 0
		n := 1 + r.Intn(5)
		subsets := make([]*wmo.Subset, n)
		blocks := make([]int32, n)
		temps := make([]float64, n)
		for i := 0; i < n; i++ {
			blocks[i] = int32(r.Intn(int(blockInfo.IMax) + 1))
			rawTemp := tempInfo.IMin + int32(r.Intn(int(tempInfo.IMax-tempInfo.IMin)+1))
			temps[i] = float64(rawTemp) * math.Pow(10, -float64(tempInfo.Scale))

			block := wmo.NewVar(blockInfo)
			if err := block.SetInt(blocks[i]); err != nil {
				t.Fatalf("trial %d: SetInt(%d): %v", trial, blocks[i], err)
			}
			temp := wmo.NewVar(tempInfo)
			if err := temp.SetDouble(temps[i]); err != nil {
				t.Fatalf("trial %d: SetDouble(%v): %v", trial, temps[i], err)
			}
			s := &wmo.Subset{}
			s.Append(block)
			s.Append(temp)
			subsets[i] = s
		}

		orig := &wmo.Bulletin{
			Edition:       4,
			Centre:        98,
			MasterTable:   14,
			ReferenceTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			Compressed:    compressed,
			DataDesc:      []wmo.Varcode{wmo.NewVarcode(0, 1, 1), wmo.NewVarcode(0, 12, 101)},
			Subsets:       subsets,
		}

		data, err := Encode(orig, ts, wmo.Options{})
		if err != nil {
			t.Fatalf("trial %d (compressed=%v): Encode: %v", trial, compressed, err)
		}
		got, err := Decode(data, ts, wmo.Options{})
		if err != nil {
			t.Fatalf("trial %d (compressed=%v): Decode: %v", trial, compressed, err)
		}
		if n := wmo.Diff(orig, got); n != 0 {
			t.Errorf("trial %d (compressed=%v): round trip produced %d differences", trial, compressed, n)
		}
	}
}
