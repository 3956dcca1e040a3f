package repositories

import (
	"errors"
	"fmt"
	"regexp"

	"natours/internal/domain"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers mapped onto domain errors.
const (
	errDuplicateEntry      = 1062
	errTruncatedWrongValue = 1292
	errDataTooLong         = 1406
	errRowIsReferenced     = 1451
	errNoReferencedRow     = 1452
	errCheckConstraint     = 3819
)

var duplicateEntry = regexp.MustCompile(`Duplicate entry '(.*)' for key`)

// classify converts driver errors into domain errors; anything else is
// wrapped with the resource name.
func classify(resource string, err error) error {
	if err == nil {
		return nil
	}
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return fmt.Errorf("%s store: %w", resource, err)
	}
	switch me.Number {
	case errDuplicateEntry:
		value := "value"
		if m := duplicateEntry.FindStringSubmatch(me.Message); m != nil {
			value = m[1]
		}
		return domain.ConflictError{
			Resource: resource,
			Msg:      fmt.Sprintf("Duplicate field value: %s. Please use another value!", value),
			Err:      err,
		}
	case errNoReferencedRow:
		return domain.ValidationError{Msg: "Referenced record does not exist", Err: err}
	case errRowIsReferenced:
		return domain.ValidationError{Msg: fmt.Sprintf("This %s is still referenced by other records", resource), Err: err}
	case errCheckConstraint, errDataTooLong, errTruncatedWrongValue:
		return domain.ValidationError{Msg: "Invalid input data. " + me.Message, Err: err}
	}
	return fmt.Errorf("%s store: %w", resource, err)
}
