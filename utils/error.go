package utils

import (
	"errors"
	"fmt"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
)

var ErrorRecordNotFound = errors.New("record not found")

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}

// NotFoundError: a referenced entity is absent.
type NotFoundError struct {
	Resource string
	Id       any
}

func (e *NotFoundError) Error() string {
	if e.Id == nil {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %v not found", e.Resource, e.Id)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrorRecordNotFound
}

// ValidationError: a value is out of its domain (percentage bounds,
// date ordering, missing field).
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ConflictStateError: an illegal conflict state transition.
type ConflictStateError struct {
	From string
	To   string
}

func (e *ConflictStateError) Error() string {
	return fmt.Sprintf("illegal conflict transition %s -> %s", e.From, e.To)
}

// InsufficientBalanceError: a ledger overdraft.
type InsufficientBalanceError struct {
	ProductoraId int
	Saldo        decimal.Decimal
	Monto        decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("productora %d: saldo %s is insufficient for %s", e.ProductoraId, e.Saldo, e.Monto)
}

// UniquenessError: a duplicate reference or batch slot.
type UniquenessError struct {
	Column string
	Value  any
}

func (e *UniquenessError) Error() string {
	return fmt.Sprintf("duplicate %s (%v)", e.Column, e.Value)
}

// InternalConsistencyError: an invariant check failed unexpectedly.
// Always a bug, never expected in normal operation.
type InternalConsistencyError struct {
	Check  string
	Detail string
}

func (e *InternalConsistencyError) Error() string {
	return fmt.Sprintf("internal consistency: %s: %s", e.Check, e.Detail)
}

func IsDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// MapDuplicateKey converts a MySQL 1062 into a typed UniquenessError so
// callers never see driver errors for expected uniqueness violations.
func MapDuplicateKey(err error, column string, value any) error {
	if err == nil {
		return nil
	}
	if IsDuplicateKeyErr(err) {
		return &UniquenessError{Column: column, Value: value}
	}
	return err
}
