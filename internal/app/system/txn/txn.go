// internal/app/system/txn/txn.go
//
// Package txn runs multi-collection writes inside a MongoDB transaction.
// Standalone servers cannot run transactions; there the callback runs once
// without one and a warning is logged.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// codeIllegalOperation is what a standalone server answers to the first
// operation carrying a transaction number.
const codeIllegalOperation = 20

// Run executes fn inside a session transaction on db's client. fn must use the
// ctx it is given so its operations join the transaction. Returning an error
// from fn aborts the transaction and the error is returned unchanged.
//
// fn is re-run without a transaction only when the deployment itself cannot
// run one. A failed commit on a replica set is returned, never retried
// outside a transaction.
func Run(ctx context.Context, db *mongo.Database, logger *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			logTxnFallback(logger, err)
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	var fnErr error
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		fnErr = fn(sc)
		return nil, fnErr
	})
	switch {
	case err == nil:
		return nil
	case fnErr != nil && IsNotSupported(fnErr):
		logTxnFallback(logger, fnErr)
		return fn(ctx)
	case fnErr != nil:
		return fnErr
	}
	return err
}

func logTxnFallback(logger *zap.Logger, err error) {
	if logger == nil {
		return
	}
	logger.Warn("transactions not supported; running without transaction", zap.Error(err))
}

// IsNotSupported reports whether err means the deployment has no
// transaction support at all (a standalone server, or a topology without
// sessions). Transient transaction errors on a replica set are not matched.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == codeIllegalOperation {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "only allowed on a replica set member") ||
		(strings.Contains(msg, "session") &&
			(strings.Contains(msg, "not supported") || strings.Contains(msg, "does not support")))
}
