package mocks

import (
	"context"
	"roombook/infras/postgres"
)

type transactorImpl struct {
	err error
}

// WithTx implements postgres.Transactor. fn receives a nil transaction.
func (t *transactorImpl) WithTx(ctx context.Context, fn postgres.TxFunc) error {
	if t.err != nil {
		return t.err
	}

	return fn(ctx, nil)
}

func NewTransactor() postgres.Transactor {
	return &transactorImpl{}
}

// NewFailingTransactor returns a Transactor whose transactions cannot be opened.
func NewFailingTransactor(err error) postgres.Transactor {
	return &transactorImpl{err: err}
}
