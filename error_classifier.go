package sqlexec

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// MySqlDuplicateEntry is the MySQL server error number for a duplicate key (ER_DUP_ENTRY)
const MySqlDuplicateEntry uint16 = 1062

// ErrorClassifier is an option that can be passed to New or NewExecutor
//
// and decides which driver errors are uniqueness violations. The mapping is backend specific, so an
// Executor over anything other than MySQL needs the classifier for that backend.
type ErrorClassifier interface {
	// Classify returns the kind of the passed (non-nil) driver error
	Classify(err error) ErrorKind
}

// ErrorClassifierFunc adapts a func to an ErrorClassifier
type ErrorClassifierFunc func(err error) ErrorKind

func (f ErrorClassifierFunc) Classify(err error) ErrorKind {
	return f(err)
}

// MySqlErrorClassifier is the default ErrorClassifier
//
// only MySQL error 1062 is classified as KindUniqueViolation
var MySqlErrorClassifier ErrorClassifier = ErrorClassifierFunc(func(err error) ErrorKind {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == MySqlDuplicateEntry {
		return KindUniqueViolation
	}
	return KindGeneric
})

func classifyError(err error, classifier ErrorClassifier) error {
	if err == nil {
		return nil
	}
	if classifier.Classify(err) == KindUniqueViolation {
		return &UniquenessError{}
	}
	return newOrmError(err)
}
