// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package library

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cheesecloth/ccdata/data"
	"github.com/georgysavva/scany/v2/pgxscan"
)

// FactFilter selects facts by company, filing, element, date range, and
// dimensional context. Zero-valued fields are ignored.
type FactFilter struct {
	CIK             string
	Ticker          string
	QName           string
	LocalName       string
	AccessionNumber string
	From            time.Time
	To              time.Time

	// Dimensions restricts results to facts whose dimension mapping
	// contains every listed axis/member pair.
	Dimensions map[string]string

	// NoDimensions restricts results to facts with an empty dimension
	// mapping, i.e. consolidated top-line figures.
	NoDimensions bool

	Limit int
}

// Facts returns stored facts matching the filter, most recent period first.
func (lib *Library) Facts(ctx context.Context, filter FactFilter) ([]*data.Fact, error) {
	var (
		where []string
		args  []interface{}
	)

	appendArg := func(clause string, value interface{}) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if filter.CIK != "" {
		appendArg("f.cik = $%d", filter.CIK)
	}
	if filter.Ticker != "" {
		appendArg("c.ticker = $%d", strings.ToUpper(filter.Ticker))
	}
	if filter.QName != "" {
		appendArg("f.qname LIKE $%d", filter.QName)
	}
	if filter.LocalName != "" {
		appendArg("f.local_name = $%d", filter.LocalName)
	}
	if filter.AccessionNumber != "" {
		appendArg("f.accession_number = $%d", filter.AccessionNumber)
	}
	if !filter.From.IsZero() {
		appendArg("coalesce(f.end_date, f.instant_date) >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		appendArg("coalesce(f.end_date, f.instant_date) <= $%d", filter.To)
	}
	if filter.NoDimensions {
		where = append(where, "f.dimensions = '{}'::jsonb")
	} else if len(filter.Dimensions) > 0 {
		appendArg("f.dimensions @> $%d::jsonb", data.CanonicalDimensions(filter.Dimensions))
	}

	var sb strings.Builder
	sb.WriteString(`SELECT f.cik, f.accession_number, f.qname, f.namespace,
	f.local_name, f.period_type, f.value, f.instant_date, f.start_date,
	f.end_date, f.unit, f.decimals, f.dimensions
FROM facts f`)
	if filter.Ticker != "" {
		sb.WriteString("\nJOIN companies c ON c.cik = f.cik")
	}
	if len(where) > 0 {
		sb.WriteString("\nWHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	sb.WriteString("\nORDER BY coalesce(f.end_date, f.instant_date) DESC NULLS LAST, f.qname")
	if filter.Limit > 0 {
		sb.WriteString(fmt.Sprintf("\nLIMIT %d", filter.Limit))
	}

	var facts []*data.Fact
	if err := pgxscan.Select(ctx, lib.Pool, &facts, sb.String(), args...); err != nil {
		return nil, classifyStorageErr(err)
	}

	return facts, nil
}

// Companies lists every company in the library ordered by ticker.
func (lib *Library) Companies(ctx context.Context) ([]*data.Company, error) {
	var companies []*data.Company
	if err := pgxscan.Select(ctx, lib.Pool, &companies,
		`SELECT cik, ticker, updated_at FROM companies ORDER BY ticker`); err != nil {
		return nil, classifyStorageErr(err)
	}

	return companies, nil
}

// Filings lists the filings stored for a company.
func (lib *Library) Filings(ctx context.Context, cik string) ([]*data.Filing, error) {
	if !data.ValidCIK(cik) {
		return nil, &data.ValidationError{Field: "cik", Reason: fmt.Sprintf("%q is not a 10-digit zero-padded CIK", cik)}
	}

	var filings []*data.Filing
	if err := pgxscan.Select(ctx, lib.Pool, &filings,
		`SELECT cik, accession_number FROM filings WHERE cik = $1 ORDER BY accession_number DESC`, cik); err != nil {
		return nil, classifyStorageErr(err)
	}

	return filings, nil
}
