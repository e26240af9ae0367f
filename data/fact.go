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
package data

import (
	"fmt"
	"regexp"
	"time"
)

// PeriodType discriminates facts measured at a single date from facts
// measured over a date range.
type PeriodType string

const (
	Instant  PeriodType = "instant"
	Duration PeriodType = "duration"
)

var (
	cikPattern       = regexp.MustCompile(`^[0-9]{10}$`)
	accessionPattern = regexp.MustCompile(`^[0-9]{10}-[0-9]{2}-[0-9]{6}$`)
)

// ValidCIK reports whether cik is a 10-digit, zero-padded Central Index Key.
func ValidCIK(cik string) bool {
	return cikPattern.MatchString(cik)
}

// ValidAccession reports whether accession matches the SEC accession number
// format NNNNNNNNNN-NN-NNNNNN.
func ValidAccession(accession string) bool {
	return accessionPattern.MatchString(accession)
}

// ValidationError describes a fact or identifier that fails format checks.
// These are raised before any SQL runs.
type ValidationError struct {
	Field  string
	Reason string
}

func (err *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", err.Field, err.Reason)
}

// Company is a filing entity tracked by the library
type Company struct {
	CIK       string    `db:"cik"`
	Ticker    string    `db:"ticker"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Filing is one submission by a company, identified by (cik, accession_number).
// Filings are immutable; amendments arrive as new accession numbers.
type Filing struct {
	CIK             string `db:"cik"`
	AccessionNumber string `db:"accession_number"`
	Form            string `db:"-"`
	PrimaryDocument string `db:"-"`
}

// Fact is a single tagged, dimensioned, dated data point extracted from a
// filing. Value is kept as raw text because reported values are
// precision-sensitive and must round-trip without lossy conversion.
type Fact struct {
	CIK             string            `db:"cik"`
	AccessionNumber string            `db:"accession_number"`
	QName           string            `db:"qname"`
	Namespace       string            `db:"namespace"`
	LocalName       string            `db:"local_name"`
	PeriodType      PeriodType        `db:"period_type"`
	Value           *string           `db:"value"`
	InstantDate     *time.Time        `db:"instant_date"`
	StartDate       *time.Time        `db:"start_date"`
	EndDate         *time.Time        `db:"end_date"`
	Unit            *string           `db:"unit"`
	Decimals        *int              `db:"decimals"`
	Dimensions      map[string]string `db:"dimensions"`
}

// Validate checks identifier formats and period-field consistency. Facts that
// fail validation never reach the database.
func (fact *Fact) Validate() error {
	if !ValidCIK(fact.CIK) {
		return &ValidationError{Field: "cik", Reason: fmt.Sprintf("%q is not a 10-digit zero-padded CIK", fact.CIK)}
	}

	if !ValidAccession(fact.AccessionNumber) {
		return &ValidationError{Field: "accession_number", Reason: fmt.Sprintf("%q does not match NNNNNNNNNN-NN-NNNNNN", fact.AccessionNumber)}
	}

	if fact.QName == "" {
		return &ValidationError{Field: "qname", Reason: "must not be empty"}
	}

	switch fact.PeriodType {
	case Instant:
		if fact.InstantDate == nil {
			return &ValidationError{Field: "instant_date", Reason: "instant facts require an instant date"}
		}
		if fact.StartDate != nil || fact.EndDate != nil {
			return &ValidationError{Field: "period_type", Reason: "instant facts must not carry start/end dates"}
		}
	case Duration:
		if fact.StartDate == nil || fact.EndDate == nil {
			return &ValidationError{Field: "period_type", Reason: "duration facts require both start and end dates"}
		}
		if fact.InstantDate != nil {
			return &ValidationError{Field: "period_type", Reason: "duration facts must not carry an instant date"}
		}
	default:
		return &ValidationError{Field: "period_type", Reason: fmt.Sprintf("%q is not one of instant, duration", fact.PeriodType)}
	}

	return nil
}

// PeriodDate returns the date facts are ordered by: the end date for
// duration facts, otherwise the instant date.
func (fact *Fact) PeriodDate() *time.Time {
	if fact.EndDate != nil {
		return fact.EndDate
	}
	return fact.InstantDate
}
