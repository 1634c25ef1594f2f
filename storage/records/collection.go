package records

import (
	"context"

	"github.com/pkg/errors"
)

// collection stores one record kind. Every domain repository is a thin wrapper around one.
type collection[T any] struct {
	store    Store
	kind     string
	prefix   string
	notFound error
}

func newCollection[T any](store Store, kind, prefix string, notFound error) collection[T] {
	return collection[T]{store: store, kind: kind, prefix: prefix, notFound: notFound}
}

func (c collection[T]) nextIndex(ctx context.Context) (string, error) {
	index, _, err := nextIndex(ctx, c.store, c.prefix)
	return index, err
}

func (c collection[T]) insert(ctx context.Context, id, owner string, v T) (T, error) {
	if err := c.store.Insert(ctx, c.kind, id, owner, v); err != nil {
		var zero T
		return zero, errors.Wrapf(err, "inserting %s %s", c.kind, id)
	}
	return v, nil
}

func (c collection[T]) get(ctx context.Context, id string) (T, error) {
	var v T
	if err := c.store.Get(ctx, c.kind, id, &v); err != nil {
		var zero T
		return zero, trapNoRecord(err, c.notFound)
	}
	return v, nil
}

// put replaces an existing record.
func (c collection[T]) put(ctx context.Context, id, owner string, v T) (T, error) {
	if _, err := c.get(ctx, id); err != nil {
		var zero T
		return zero, err
	}
	if err := c.store.Put(ctx, c.kind, id, owner, v); err != nil {
		var zero T
		return zero, errors.Wrapf(err, "updating %s %s", c.kind, id)
	}
	return v, nil
}

func (c collection[T]) delete(ctx context.Context, id string) error {
	return trapNoRecord(c.store.Delete(ctx, c.kind, id), c.notFound)
}

// list returns the records of `owner` (every record when empty) in insertion order.
func (c collection[T]) list(ctx context.Context, owner string) ([]T, error) {
	var list []T
	err := c.store.List(ctx, c.kind, owner, func(raw []byte) error {
		var v T
		if err := unmarshal(raw, &v); err != nil {
			return err
		}
		list = append(list, v)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s", c.kind)
	}
	return list, nil
}
