package core

import (
	"bytes"
	"errors"
	"fmt"
	"slices"

	"github.com/blevesearch/vellum"
)

// TermCounts is a succinct ordered map from term bytes to occurrence count,
// stored as a finite state transducer.
type TermCounts struct {
	fst  *vellum.FST
	data []byte
}

// BuildTermCounts compiles counts into a TermCounts.
func BuildTermCounts(counts map[string]uint64) (*TermCounts, error) {
	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	// FST keys must be inserted in byte order
	slices.Sort(terms)

	var buf bytes.Buffer
	builder, err := vellum.New(&buf, nil)
	if err != nil {
		return nil, err
	}
	for _, term := range terms {
		if err := builder.Insert([]byte(term), counts[term]); err != nil {
			return nil, err
		}
	}
	if err := builder.Close(); err != nil {
		return nil, err
	}

	return LoadTermCounts(buf.Bytes())
}

// LoadTermCounts opens a TermCounts from bytes previously returned by Bytes.
// The whole transducer is walked once, so damaged bytes fail here with
// ErrCorruptTermCounts instead of on first use.
func LoadTermCounts(data []byte) (tc *TermCounts, err error) {
	defer func() {
		if r := recover(); r != nil {
			tc, err = nil, fmt.Errorf("%w: %v", ErrCorruptTermCounts, r)
		}
	}()

	fst, err := vellum.Load(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptTermCounts, err)
	}
	tc = &TermCounts{fst: fst, data: data}
	if err := tc.verify(); err != nil {
		return nil, err
	}
	return tc, nil
}

// verify walks every term, checking order and that each one resolves to
// the count the walk reported.
func (t *TermCounts) verify() error {
	var (
		prev []byte
		seen int
		bad  error
	)
	err := t.Each(func(term string, count uint64) bool {
		key := []byte(term)
		if seen > 0 && bytes.Compare(prev, key) >= 0 {
			bad = fmt.Errorf("%w: term %q out of order", ErrCorruptTermCounts, term)
			return false
		}
		got, ok, err := t.fst.Get(key)
		if err != nil || !ok || got != count {
			bad = fmt.Errorf("%w: term %q does not resolve", ErrCorruptTermCounts, term)
			return false
		}
		prev = key
		seen++
		return true
	})
	switch {
	case err != nil:
		return fmt.Errorf("%w: %w", ErrCorruptTermCounts, err)
	case bad != nil:
		return bad
	case seen != t.fst.Len():
		return fmt.Errorf("%w: walked %d terms, header records %d", ErrCorruptTermCounts, seen, t.fst.Len())
	}
	return nil
}

// Get returns the count for term, or 0 if the term is absent.
func (t *TermCounts) Get(term string) uint64 {
	if t == nil {
		return 0
	}
	count, ok, err := t.fst.Get([]byte(term))
	if err != nil || !ok {
		return 0
	}
	return count
}

// Contains reports whether term occurs at least once.
func (t *TermCounts) Contains(term string) bool {
	if t == nil {
		return false
	}
	ok, err := t.fst.Contains([]byte(term))
	return err == nil && ok
}

// Len returns the number of distinct terms.
func (t *TermCounts) Len() int {
	if t == nil {
		return 0
	}
	return t.fst.Len()
}

// Bytes returns the serialized transducer.
func (t *TermCounts) Bytes() []byte {
	if t == nil {
		return nil
	}
	return t.data
}

// Each calls fn for every term in byte order until fn returns false.
func (t *TermCounts) Each(fn func(term string, count uint64) bool) error {
	if t == nil {
		return nil
	}
	iter, err := t.fst.Iterator(nil, nil)
	for err == nil {
		key, count := iter.Current()
		if !fn(string(key), count) {
			return nil
		}
		err = iter.Next()
	}
	if errors.Is(err, vellum.ErrIteratorDone) {
		return nil
	}
	return err
}

// Map expands the transducer into a plain map.
func (t *TermCounts) Map() (map[string]uint64, error) {
	out := make(map[string]uint64, t.Len())
	err := t.Each(func(term string, count uint64) bool {
		out[term] = count
		return true
	})
	return out, err
}
