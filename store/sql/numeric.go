package sql

import (
	"fmt"

	"github.com/pkg/errors"
)

// numericString scans a decimal-valued TEXT column (quantity, reward,
// data_size, diff, ...) back into its original string representation. The
// columns are declared TEXT precisely so SQLite never reinterprets them,
// but this type also tolerates INTEGER/REAL storage classes in case a row
// was written by something less careful, rather than erroring. It is a
// read-side type only: writes bind the plain Go string fields directly, so
// there is no corresponding Value method.
type numericString string

func (n *numericString) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*n = ""
	case string:
		*n = numericString(v)
	case []byte:
		*n = numericString(v)
	case int64:
		*n = numericString(fmt.Sprintf("%d", v))
	case float64:
		*n = numericString(fmt.Sprintf("%v", v))
	default:
		return errors.Errorf("numericString: unsupported scan source %T", src)
	}
	return nil
}
