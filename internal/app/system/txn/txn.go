// Package txn runs MongoDB multi-document transactions and recognises the
// errors deployments return when they cannot run them (standalone servers,
// some managed offerings).
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ErrNotSupported is returned by Run when the deployment cannot run
// transactions and the caller has not allowed a fallback.
var ErrNotSupported = errors.New("transactions are not supported by this deployment")

// Run executes fn inside a transaction. The context passed to fn carries
// the session; every operation that should take part must use it.
func Run(ctx context.Context, client *mongo.Client, fn func(ctx context.Context) error) error {
	sess, err := client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// RunOrFallback is Run, except that when the deployment reports transactions
// are unsupported it either returns ErrNotSupported (strict) or runs fn
// without a transaction and logs a warning.
func RunOrFallback(ctx context.Context, client *mongo.Client, strict bool, logger *zap.Logger, fn func(ctx context.Context) error) error {
	err := Run(ctx, client, fn)
	if !IsNotSupported(err) {
		return err
	}
	if strict {
		return errors.Join(ErrNotSupported, err)
	}
	logger.Warn("transactions unsupported; running batch without atomicity", zap.Error(err))
	return fn(ctx)
}

// IsNotSupported reports whether err means the server cannot run the
// transaction at all (as opposed to the transaction failing).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, // IllegalOperation
			51,  // not a replica set member (older servers)
			263: // OperationNotSupportedInTransaction
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	has := func(s string) bool { return strings.Contains(msg, s) }
	switch {
	case has("transaction") && has("replica set"):
		return true
	case has("session") && has("not supported"):
		return true
	case has("transaction") && has("session"):
		return true
	case has("illegal operation"):
		return true
	}
	return false
}
