package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	sqcore "github.com/square/square-go-sdk/core"
	"github.com/stripe/stripe-go/v84"
)

// ErrorDump is the log-only view of a failure. It never reaches clients.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Chain      []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`

	Upstream          string `json:"upstream,omitempty"`
	UpstreamStatus    int    `json:"upstream_status,omitempty"`
	UpstreamCode      string `json:"upstream_code,omitempty"`
	UpstreamRequestID string `json:"upstream_request_id,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	d.fillPostgres(err)
	d.fillUpstream(err)
	return d
}

func (d *ErrorDump) fillPostgres(err error) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		d.PGCode = pgxErr.Code
		d.PGConstraint = pgxErr.ConstraintName
		d.PGTable = pgxErr.TableName
		d.PGDetail = pgxErr.Detail
		return
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		d.PGCode = string(pqErr.Code)
		d.PGConstraint = pqErr.Constraint
		d.PGTable = pqErr.Table
		d.PGDetail = pqErr.Detail
	}
}

func (d *ErrorDump) fillUpstream(err error) {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		d.Upstream = "stripe"
		d.UpstreamStatus = stripeErr.HTTPStatusCode
		d.UpstreamCode = string(stripeErr.Code)
		d.UpstreamRequestID = stripeErr.RequestID
		return
	}
	var squareErr *sqcore.APIError
	if errors.As(err, &squareErr) {
		d.Upstream = "square"
		d.UpstreamStatus = squareErr.StatusCode
	}
}
