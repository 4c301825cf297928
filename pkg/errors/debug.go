package errors

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// ErrorDump is the log-only view of an error: its chain and whatever the
// store driver attached. It is never written to a response.
type ErrorDump struct {
	TopMessage string        `json:"top_message"`
	Code       Code          `json:"code,omitempty"`
	Chain      []string      `json:"chain,omitempty"`
	Driver     *DriverDetail `json:"driver,omitempty"`
}

// DriverDetail holds the fields postgres, mysql and sqlite errors expose.
type DriverDetail struct {
	Driver     string `json:"driver"`
	Code       string `json:"code"`
	Constraint string `json:"constraint,omitempty"`
	Table      string `json:"table,omitempty"`
	Column     string `json:"column,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Message    string `json:"message,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error(), Driver: driverDetail(err)}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	return d
}

// Fields flattens the dump for structured logging.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{
		"error":       d.TopMessage,
		"error_code":  d.Code,
		"error_chain": d.Chain,
	}
	if dd := d.Driver; dd != nil {
		fields["db_driver"] = dd.Driver
		fields["db_code"] = dd.Code
		fields["db_message"] = dd.Message
		if dd.Constraint != "" {
			fields["db_constraint"] = dd.Constraint
		}
		if dd.Table != "" {
			fields["db_table"] = dd.Table
		}
		if dd.Detail != "" {
			fields["db_detail"] = dd.Detail
		}
	}
	return fields
}

func driverDetail(err error) *DriverDetail {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return &DriverDetail{
			Driver:     "postgres",
			Code:       pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &DriverDetail{
			Driver:     "postgres",
			Code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return &DriverDetail{
			Driver:  "mysql",
			Code:    fmt.Sprintf("%d", myErr.Number),
			Message: myErr.Message,
		}
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return &DriverDetail{
			Driver:  "sqlite",
			Code:    fmt.Sprintf("%d", int(liteErr.ExtendedCode)),
			Message: liteErr.Error(),
		}
	}
	return nil
}
