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
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// ConflictError reports a fact_hash uniqueness violation that the
// reconciliation protocol did not resolve. The upsert protocol makes this
// unreachable in correct use; seeing one indicates a logic defect.
type ConflictError struct {
	Err error
}

func (err *ConflictError) Error() string {
	return fmt.Sprintf("fact hash conflict not resolved by reconciliation: %v", err.Err)
}

func (err *ConflictError) Unwrap() error {
	return err.Err
}

// ReferentialError reports a fact that references a filing or company not
// present and not created within the same transaction.
type ReferentialError struct {
	Err error
}

func (err *ReferentialError) Error() string {
	return fmt.Sprintf("referenced filing or company does not exist: %v", err.Err)
}

func (err *ReferentialError) Unwrap() error {
	return err.Err
}

// TransientStorageError reports a connectivity or timeout failure talking to
// the database. The whole batch is safe to retry: reconciliation is
// idempotent because identity is hash-based.
type TransientStorageError struct {
	Err error
}

func (err *TransientStorageError) Error() string {
	return fmt.Sprintf("transient storage failure (batch is safe to retry): %v", err.Err)
}

func (err *TransientStorageError) Unwrap() error {
	return err.Err
}

// classifyStorageErr maps low-level database errors onto the library's error
// taxonomy. Errors that fit no category pass through unchanged.
func classifyStorageErr(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgerrcode.UniqueViolation:
			return &ConflictError{Err: err}
		case pgErr.Code == pgerrcode.ForeignKeyViolation:
			return &ReferentialError{Err: err}
		case pgerrcode.IsConnectionException(pgErr.Code):
			return &TransientStorageError{Err: err}
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &TransientStorageError{Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &TransientStorageError{Err: err}
	}

	return err
}
