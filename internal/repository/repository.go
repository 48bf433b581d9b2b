package repository

import "context"

// Package repository contains data access layer abstractions.
// Implementations can live in subpackages (e.g., postgres) inside this directory.
//
// Repositories contain SQL only, no business logic. Lookups scoped to a user
// (FindLive / FindForUser and friends) filter by ownership in the query, so a
// missing row and a row owned by someone else are indistinguishable to the
// caller; services translate both to NotFound.

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}

// TxRunner executes a function inside one database transaction. Every
// repository call made with the ctx it passes to fn joins that transaction,
// which is how cascading operations stay atomic.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
