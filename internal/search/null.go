package search

import "context"

// NullIndex disabled search: writes are dropped, queries match nothing
type NullIndex struct{}

var _ Index = NullIndex{}

// NewNullIndex create NullIndex
func NewNullIndex() NullIndex {
	return NullIndex{}
}

func (NullIndex) Name() string { return EngineNull }

func (NullIndex) Index(context.Context, Document) error { return nil }

func (NullIndex) Remove(context.Context, string) error { return nil }

func (NullIndex) Search(context.Context, string, int) ([]Hit, error) { return nil, nil }

func (NullIndex) Close() error { return nil }
