package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yemenflix/yflix/internal/ports"
)

// collection est un accès typé à une collection du DocumentStore.
type collection[T any] struct {
	store ports.DocumentStore
	name  string
	id    func(T) string
}

func newCollection[T any](store ports.DocumentStore, name string, id func(T) string) collection[T] {
	return collection[T]{store: store, name: name, id: id}
}

func (c collection[T]) get(ctx context.Context, id string) (T, error) {
	var out T
	b, err := c.store.Get(ctx, c.name, id)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("%s/%s: decode: %w", c.name, id, err)
	}
	return out, nil
}

// list échoue sur le premier document illisible.
func (c collection[T]) list(ctx context.Context) ([]T, error) {
	docs, err := c.store.List(ctx, c.name)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for _, b := range docs {
		var v T
		if err := json.Unmarshal(b, &v); err != nil {
			return nil, fmt.Errorf("%s: decode: %w", c.name, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (c collection[T]) filter(ctx context.Context, keep func(T) bool) ([]T, error) {
	all, err := c.list(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, v := range all {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (c collection[T]) put(ctx context.Context, v T) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.store.Put(ctx, c.name, c.id(v), b)
}

func (c collection[T]) delete(ctx context.Context, id string) error {
	return c.store.Delete(ctx, c.name, id)
}
