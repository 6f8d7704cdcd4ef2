package storage

import (
	"bytes"
	"fmt"
	"maps"
	"slices"

	"github.com/go-crypt/x/blake2b"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/vectorindex"
)

// SnapshotVersion is the format version written by MarshalSnapshot.
const SnapshotVersion = 2

// digestSize is the length of the BLAKE2b-256 digest that ends every snapshot.
const digestSize = blake2b.Size256

var snapshotMagic = []byte("RCLS")

type serializer[T any] interface {
	Marshal(v T, bs []byte) (n int)
	Unmarshal(bs []byte) (v T, n int, err error)
	Size(v T) (size int)
}

type encoder struct {
	buf []byte
}

func put[T any](e *encoder, s serializer[T], v T) {
	n := s.Size(v)
	e.buf = slices.Grow(e.buf, n)
	e.buf = e.buf[:len(e.buf)+n]
	s.Marshal(v, e.buf[len(e.buf)-n:])
}

func (e *encoder) uint(v uint64)   { put(e, varint.Uint64, v) }
func (e *encoder) int(v int64)     { put(e, varint.Int64, v) }
func (e *encoder) str(v string)    { put(e, ord.String, v) }
func (e *encoder) flag(v bool)     { put(e, ord.Bool, v) }
func (e *encoder) float(v float32) { put(e, raw.Float32, v) }

func (e *encoder) bytes(v []byte) {
	e.uint(uint64(len(v)))
	e.buf = append(e.buf, v...)
}

type decoder struct {
	bs  []byte
	pos int
}

func get[T any](d *decoder, s serializer[T], field string) (T, error) {
	var zero T
	if d.pos >= len(d.bs) {
		return zero, fmt.Errorf("%w: %w: reading %s at offset %d", ErrCorruptSnapshot, ErrTruncatedData, field, d.pos)
	}
	v, n, err := s.Unmarshal(d.bs[d.pos:])
	if err != nil {
		return zero, fmt.Errorf("%w: reading %s at offset %d: %w", ErrCorruptSnapshot, field, d.pos, err)
	}
	d.pos += n
	return v, nil
}

func (d *decoder) uint(field string) (uint64, error) { return get(d, varint.Uint64, field) }
func (d *decoder) int(field string) (int64, error)   { return get(d, varint.Int64, field) }
func (d *decoder) str(field string) (string, error)  { return get(d, ord.String, field) }
func (d *decoder) flag(field string) (bool, error)   { return get(d, ord.Bool, field) }

func (d *decoder) float(field string) (float32, error) {
	if len(d.bs)-d.pos < 4 {
		return 0, fmt.Errorf("%w: %w: reading %s at offset %d", ErrCorruptSnapshot, ErrTruncatedData, field, d.pos)
	}
	return get(d, raw.Float32, field)
}

// count reads a collection length. Every element takes at least one byte,
// so a length larger than what is left cannot be valid.
func (d *decoder) count(field string) (int, error) {
	n, err := d.uint(field)
	if err != nil {
		return 0, err
	}
	if n > uint64(len(d.bs)-d.pos) {
		return 0, fmt.Errorf("%w: %s length %d exceeds remaining %d bytes", ErrCorruptSnapshot, field, n, len(d.bs)-d.pos)
	}
	return int(n), nil
}

func (d *decoder) bytes(field string) ([]byte, error) {
	n, err := d.count(field)
	if err != nil {
		return nil, err
	}
	b := slices.Clone(d.bs[d.pos : d.pos+n])
	d.pos += n
	return b, nil
}

// MarshalSnapshot encodes a snapshot. Map contents are written in key
// order, so equal snapshots encode to equal bytes. The encoding ends with a
// BLAKE2b-256 digest of everything before it.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	if s == nil {
		return nil, ErrSnapshotRequired
	}
	e := &encoder{buf: slices.Clone(snapshotMagic)}
	e.uint(SnapshotVersion)

	e.flag(s.Graph != nil)
	if s.Graph != nil {
		marshalGraph(e, s.Graph)
	}

	e.uint(uint64(len(s.Documents)))
	for i, doc := range s.Documents {
		if doc == nil || doc.Terms == nil {
			return nil, fmt.Errorf("document %d: %w", i, core.ErrInvalidDocument)
		}
		e.uint(uint64(doc.ID))
		e.str(doc.Text)
		e.bytes(doc.Terms.Bytes())
		e.uint(doc.TermTotal)
	}

	stats := s.Stats
	if stats == nil {
		stats = core.NewCorpusStats()
	}
	e.float(stats.AverageLength)
	e.uint(uint64(len(stats.TermTotals)))
	for _, term := range slices.Sorted(maps.Keys(stats.TermTotals)) {
		e.str(term)
		e.uint(stats.TermTotals[term])
	}

	e.uint(uint64(len(s.Hashes)))
	for _, hash := range slices.Sorted(maps.Keys(s.Hashes)) {
		e.str(hash)
		e.uint(uint64(s.Hashes[hash]))
	}

	sum := blake2b.Sum256(e.buf)
	return append(e.buf, sum[:]...), nil
}

func marshalGraph(e *encoder, g *vectorindex.GraphState) {
	e.uint(uint64(g.Params.M))
	e.uint(uint64(g.Params.EfConstruction))
	e.uint(uint64(g.Params.EfSearch))
	e.int(g.Params.Seed)
	e.int(int64(g.Entry))

	e.uint(uint64(len(g.Points)))
	for _, p := range g.Points {
		e.uint(uint64(p.Owner))
		e.uint(uint64(len(p.Vector)))
		for _, f := range p.Vector {
			e.float(f)
		}
	}
	e.uint(uint64(len(g.Levels)))
	for _, level := range g.Levels {
		e.uint(uint64(level))
	}
	e.uint(uint64(len(g.Links)))
	for _, layers := range g.Links {
		e.uint(uint64(len(layers)))
		for _, links := range layers {
			e.uint(uint64(len(links)))
			for _, next := range links {
				e.uint(uint64(next))
			}
		}
	}
}

// UnmarshalSnapshot decodes bytes written by MarshalSnapshot. The digest is
// checked before anything else is decoded. Any failure is reported as
// ErrCorruptSnapshot; running out of bytes is also reported as
// ErrTruncatedData.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	if len(data) < len(snapshotMagic) {
		return nil, fmt.Errorf("%w: %w: %d bytes", ErrCorruptSnapshot, ErrTruncatedData, len(data))
	}
	if !bytes.Equal(data[:len(snapshotMagic)], snapshotMagic) {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorruptSnapshot, data[:len(snapshotMagic)])
	}
	if len(data) < len(snapshotMagic)+1+digestSize {
		return nil, fmt.Errorf("%w: %w: %d bytes", ErrCorruptSnapshot, ErrTruncatedData, len(data))
	}
	body := data[:len(data)-digestSize]
	if sum := blake2b.Sum256(body); !bytes.Equal(sum[:], data[len(body):]) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptSnapshot)
	}

	d := &decoder{bs: body, pos: len(snapshotMagic)}
	version, err := d.uint("version")
	if err != nil {
		return nil, err
	}
	if version != SnapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptSnapshot, version)
	}

	s := &Snapshot{}
	hasGraph, err := d.flag("graph flag")
	if err != nil {
		return nil, err
	}
	if hasGraph {
		if s.Graph, err = unmarshalGraph(d); err != nil {
			return nil, err
		}
	}

	n, err := d.count("documents")
	if err != nil {
		return nil, err
	}
	s.Documents = make([]*core.Document, 0, n)
	for range n {
		doc, err := unmarshalDocument(d)
		if err != nil {
			return nil, err
		}
		s.Documents = append(s.Documents, doc)
	}

	s.Stats = core.NewCorpusStats()
	if s.Stats.AverageLength, err = d.float("average length"); err != nil {
		return nil, err
	}
	if n, err = d.count("term totals"); err != nil {
		return nil, err
	}
	for range n {
		term, err := d.str("term")
		if err != nil {
			return nil, err
		}
		total, err := d.uint("term total")
		if err != nil {
			return nil, err
		}
		s.Stats.TermTotals[term] = total
	}

	if n, err = d.count("hashes"); err != nil {
		return nil, err
	}
	s.Hashes = make(map[string]core.DocumentID, n)
	for range n {
		hash, err := d.str("hash")
		if err != nil {
			return nil, err
		}
		id, err := d.uint("hash id")
		if err != nil {
			return nil, err
		}
		s.Hashes[hash] = core.DocumentID(id)
	}

	if d.pos != len(body) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptSnapshot, len(body)-d.pos)
	}
	return s, nil
}

func unmarshalDocument(d *decoder) (*core.Document, error) {
	id, err := d.uint("document id")
	if err != nil {
		return nil, err
	}
	text, err := d.str("document text")
	if err != nil {
		return nil, err
	}
	fst, err := d.bytes("document terms")
	if err != nil {
		return nil, err
	}
	terms, err := core.LoadTermCounts(fst)
	if err != nil {
		return nil, fmt.Errorf("%w: document %d terms: %w", ErrCorruptSnapshot, id, err)
	}
	total, err := d.uint("document term total")
	if err != nil {
		return nil, err
	}
	return &core.Document{
		ID:        core.DocumentID(id),
		Text:      text,
		Terms:     terms,
		TermTotal: total,
	}, nil
}

func unmarshalGraph(d *decoder) (*vectorindex.GraphState, error) {
	g := &vectorindex.GraphState{}
	var params [3]uint64
	for i, field := range []string{"m", "ef construction", "ef search"} {
		v, err := d.uint(field)
		if err != nil {
			return nil, err
		}
		params[i] = v
	}
	g.Params.M = int(params[0])
	g.Params.EfConstruction = int(params[1])
	g.Params.EfSearch = int(params[2])

	seed, err := d.int("seed")
	if err != nil {
		return nil, err
	}
	g.Params.Seed = seed
	entry, err := d.int("entry")
	if err != nil {
		return nil, err
	}
	g.Entry = int(entry)

	n, err := d.count("points")
	if err != nil {
		return nil, err
	}
	g.Points = make([]core.EmbeddingPoint, n)
	for i := range g.Points {
		owner, err := d.uint("point owner")
		if err != nil {
			return nil, err
		}
		dim, err := d.count("point vector")
		if err != nil {
			return nil, err
		}
		vector := make([]float32, dim)
		for j := range vector {
			if vector[j], err = d.float("point component"); err != nil {
				return nil, err
			}
		}
		g.Points[i] = core.EmbeddingPoint{Vector: vector, Owner: core.DocumentID(owner)}
	}

	if n, err = d.count("levels"); err != nil {
		return nil, err
	}
	g.Levels = make([]int, n)
	for i := range g.Levels {
		level, err := d.uint("level")
		if err != nil {
			return nil, err
		}
		g.Levels[i] = int(level)
	}

	if n, err = d.count("links"); err != nil {
		return nil, err
	}
	g.Links = make([][][]uint32, n)
	for i := range g.Links {
		layers, err := d.count("layers")
		if err != nil {
			return nil, err
		}
		g.Links[i] = make([][]uint32, layers)
		for l := range g.Links[i] {
			m, err := d.count("neighbors")
			if err != nil {
				return nil, err
			}
			links := make([]uint32, m)
			for k := range links {
				next, err := d.uint("neighbor")
				if err != nil {
					return nil, err
				}
				links[k] = uint32(next)
			}
			g.Links[i][l] = links
		}
	}
	return g, nil
}
