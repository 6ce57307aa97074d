package cassandra

import (
	"errors"
	"fmt"

	gocql "github.com/apache/cassandra-gocql-driver/v2"

	mserrors "github.com/randalmurphal/metastore/pkg/metastore/errors"
)

// Native protocol error codes the coordinator returns for conditions that
// clear up on their own.
const (
	codeUnavailable   = 0x1000
	codeOverloaded    = 0x1001
	codeBootstrapping = 0x1002
	codeWriteTimeout  = 0x1100
	codeReadTimeout   = 0x1200
)

// requestError is implemented by gocql's coordinator errors.
type requestError interface {
	error
	Code() int
}

// Classify marks transient cluster errors so the retry loop backs off and
// tries again. Other errors are returned unchanged and categorize as
// permanent.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var reqErr requestError
	if errors.As(err, &reqErr) {
		switch reqErr.Code() {
		case codeUnavailable, codeOverloaded, codeBootstrapping, codeWriteTimeout, codeReadTimeout:
			return mserrors.Transient(err, fmt.Sprintf("coordinator error 0x%04x", reqErr.Code()))
		}
		return mserrors.Permanent(err, fmt.Sprintf("coordinator error 0x%04x", reqErr.Code()))
	}

	switch {
	case errors.Is(err, gocql.ErrNoConnections):
		return mserrors.Transient(err, "no connections")
	case errors.Is(err, gocql.ErrTimeoutNoResponse):
		return mserrors.Transient(err, "no response")
	}

	if mserrors.Categorize(err) == mserrors.CategoryTransient {
		return mserrors.Transient(err, "network timeout")
	}
	return err
}
