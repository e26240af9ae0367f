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

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("classifyStorageErr", func() {
	It("passes nil through", func() {
		Expect(classifyStorageErr(nil)).To(Succeed())
	})

	It("maps unique violations to ConflictError", func() {
		pgErr := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "facts_fact_hash_key"}

		classified := classifyStorageErr(pgErr)

		var conflict *ConflictError
		Expect(errors.As(classified, &conflict)).To(BeTrue())
		Expect(errors.Is(classified, pgErr)).To(BeTrue())
	})

	It("maps foreign key violations to ReferentialError", func() {
		pgErr := &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "facts_cik_accession_number_fkey"}

		var referential *ReferentialError
		Expect(errors.As(classifyStorageErr(pgErr), &referential)).To(BeTrue())
	})

	It("maps connection exceptions to TransientStorageError", func() {
		pgErr := &pgconn.PgError{Code: pgerrcode.ConnectionFailure}

		var transient *TransientStorageError
		Expect(errors.As(classifyStorageErr(pgErr), &transient)).To(BeTrue())
	})

	It("maps deadline expiry to TransientStorageError", func() {
		err := fmt.Errorf("query facts: %w", context.DeadlineExceeded)

		var transient *TransientStorageError
		Expect(errors.As(classifyStorageErr(err), &transient)).To(BeTrue())
	})

	It("passes unrelated database errors through unchanged", func() {
		pgErr := &pgconn.PgError{Code: pgerrcode.CheckViolation}
		Expect(classifyStorageErr(pgErr)).To(BeIdenticalTo(pgErr))
	})

	It("passes unrelated errors through unchanged", func() {
		err := errors.New("boom")
		Expect(classifyStorageErr(err)).To(BeIdenticalTo(err))
	})
})
