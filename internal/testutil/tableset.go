package testutil

import (
	"sync"

	"sigs.k8s.io/yaml"

	"github.com/dsnet/wreport/wmo"
)

// tableFixture is the YAML shape LoadTableSet reads: a flat list of Table B
// element definitions and a flat list of Table D sequence expansions,
// small enough to inline in a _test.go file's test data directory without
// pulling in a real WMO table distribution.
type tableFixture struct {
	B []struct {
		Code   string `json:"code"`
		Desc   string `json:"desc"`
		Unit   string `json:"unit"`
		Type   string `json:"type"`
		Scale  int    `json:"scale"`
		Ref    int32  `json:"ref"`
		BitLen uint32 `json:"bitlen"`
	} `json:"b"`
	D []struct {
		Code    string   `json:"code"`
		Expands []string `json:"expands"`
	} `json:"d"`
}

// fixtureTableSet is a wmo.TableSet backed by a tableFixture, with the
// memoized Altered/AlteredRef derivation wmo.TableSet requires.
type fixtureTableSet struct {
	b map[wmo.Varcode]*wmo.Varinfo
	d map[wmo.Varcode][]wmo.Varcode

	mu      sync.Mutex
	altered map[alterKey]*wmo.Varinfo
}

type alterKey struct {
	code          wmo.Varcode
	scale, bitLen uint32 // bitLen reused for the signed bitLen param
	ref           int32
	hasRef        bool
}

var typeNames = map[string]wmo.Type{
	"integer": wmo.Integer,
	"decimal": wmo.Decimal,
	"string":  wmo.String,
	"binary":  wmo.Binary,
}

// LoadTableSet parses a YAML table fixture into a wmo.TableSet, safe for
// the concurrent read-only use wmo.TableSet requires.
func LoadTableSet(data []byte) (wmo.TableSet, error) {
	var fx tableFixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, err
	}
	ts := &fixtureTableSet{
		b:       make(map[wmo.Varcode]*wmo.Varinfo, len(fx.B)),
		d:       make(map[wmo.Varcode][]wmo.Varcode, len(fx.D)),
		altered: make(map[alterKey]*wmo.Varinfo),
	}
	for _, e := range fx.B {
		code, err := wmo.ParseVarcode(e.Code)
		if err != nil {
			return nil, err
		}
		typ, ok := typeNames[e.Type]
		if !ok {
			typ = wmo.Integer
		}
		ts.b[code] = wmo.NewVarinfo(code, e.Desc, e.Unit, typ, e.Scale, e.Ref, e.BitLen)
	}
	for _, e := range fx.D {
		code, err := wmo.ParseVarcode(e.Code)
		if err != nil {
			return nil, err
		}
		seq := make([]wmo.Varcode, len(e.Expands))
		for i, s := range e.Expands {
			c, err := wmo.ParseVarcode(s)
			if err != nil {
				return nil, err
			}
			seq[i] = c
		}
		ts.d[code] = seq
	}
	return ts, nil
}

// MustLoadTableSet must load a table fixture or else panics.
func MustLoadTableSet(data []byte) wmo.TableSet {
	ts, err := LoadTableSet(data)
	if err != nil {
		panic(err)
	}
	return ts
}

func (ts *fixtureTableSet) LookupB(code wmo.Varcode) (*wmo.Varinfo, error) {
	info, ok := ts.b[code]
	if !ok {
		return nil, wmo.Errorf(wmo.NotFound, "%s not found in table B fixture", code)
	}
	return info, nil
}

func (ts *fixtureTableSet) ExpandD(code wmo.Varcode) ([]wmo.Varcode, error) {
	seq, ok := ts.d[code]
	if !ok {
		return nil, wmo.Errorf(wmo.NotFound, "%s not found in table D fixture", code)
	}
	return seq, nil
}

func (ts *fixtureTableSet) Altered(base *wmo.Varinfo, newScale int, newBitLen uint32) *wmo.Varinfo {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	key := alterKey{code: base.Code, scale: uint32(newScale), bitLen: newBitLen}
	if v, ok := ts.altered[key]; ok {
		return v
	}
	v := wmo.NewVarinfo(base.Code, base.Desc, base.Unit, base.Type, newScale, base.Ref, newBitLen)
	v.Alteration = len(ts.altered) + 1
	ts.altered[key] = v
	return v
}

func (ts *fixtureTableSet) AlteredRef(base *wmo.Varinfo, newScale int, newBitLen uint32, newRef int32) *wmo.Varinfo {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	key := alterKey{code: base.Code, scale: uint32(newScale), bitLen: newBitLen, ref: newRef, hasRef: true}
	if v, ok := ts.altered[key]; ok {
		return v
	}
	v := wmo.NewVarinfo(base.Code, base.Desc, base.Unit, base.Type, newScale, newRef, newBitLen)
	v.Alteration = len(ts.altered) + 1
	ts.altered[key] = v
	return v
}
