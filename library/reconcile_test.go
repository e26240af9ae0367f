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
	"time"

	"github.com/cheesecloth/ccdata/data"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func strPtr(s string) *string {
	return &s
}

func intPtr(n int) *int {
	return &n
}

func datePtr(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}

func testFiling() *data.Filing {
	return &data.Filing{CIK: "0000320193", AccessionNumber: "0000320193-24-000123"}
}

func revenueFact(value string) *data.Fact {
	return &data.Fact{
		CIK:             "0000320193",
		AccessionNumber: "0000320193-24-000123",
		QName:           "us-gaap:Revenues",
		Namespace:       "us-gaap",
		LocalName:       "Revenues",
		PeriodType:      data.Duration,
		Value:           strPtr(value),
		StartDate:       datePtr(2023, time.October, 1),
		EndDate:         datePtr(2024, time.September, 28),
		Unit:            strPtr("USD"),
		Decimals:        intPtr(-6),
		Dimensions:      map[string]string{},
	}
}

func assetsFact(value string) *data.Fact {
	return &data.Fact{
		CIK:             "0000320193",
		AccessionNumber: "0000320193-24-000123",
		QName:           "us-gaap:Assets",
		Namespace:       "us-gaap",
		LocalName:       "Assets",
		PeriodType:      data.Instant,
		Value:           strPtr(value),
		InstantDate:     datePtr(2024, time.September, 28),
		Unit:            strPtr("USD"),
		Decimals:        intPtr(-6),
		Dimensions:      map[string]string{},
	}
}

// stored converts planned facts into the lookup shape the classifier reads,
// simulating what the database would hold after those facts committed.
func stored(planned []plannedFact) map[string]storedFact {
	existing := make(map[string]storedFact, len(planned))
	for _, entry := range planned {
		existing[entry.hash] = storedFact{
			Hash:     entry.hash,
			Value:    entry.fact.Value,
			Decimals: entry.fact.Decimals,
		}
	}
	return existing
}

var _ = Describe("planBatch", func() {
	It("keeps well-formed facts in first-seen order", func() {
		planned, rejected, err := planBatch(testFiling(), []*data.Fact{revenueFact("100"), assetsFact("500")}, false)

		Expect(err).NotTo(HaveOccurred())
		Expect(rejected).To(BeZero())
		Expect(planned).To(HaveLen(2))
		Expect(planned[0].fact.QName).To(Equal("us-gaap:Revenues"))
		Expect(planned[1].fact.QName).To(Equal("us-gaap:Assets"))
	})

	It("lets the later occurrence win when a hash repeats within the batch", func() {
		planned, rejected, err := planBatch(testFiling(), []*data.Fact{revenueFact("100"), assetsFact("500"), revenueFact("105")}, false)

		Expect(err).NotTo(HaveOccurred())
		Expect(rejected).To(BeZero())
		Expect(planned).To(HaveLen(2))
		Expect(*planned[0].fact.Value).To(Equal("105"))
	})

	It("rejects malformed facts individually and keeps the rest", func() {
		bad := revenueFact("100")
		bad.CIK = "123"

		planned, rejected, err := planBatch(testFiling(), []*data.Fact{bad, assetsFact("500")}, false)

		Expect(err).NotTo(HaveOccurred())
		Expect(rejected).To(Equal(1))
		Expect(planned).To(HaveLen(1))
		Expect(planned[0].fact.QName).To(Equal("us-gaap:Assets"))
	})

	It("rejects facts that belong to a different filing", func() {
		stray := revenueFact("100")
		stray.AccessionNumber = "0000320193-24-000999"

		planned, rejected, err := planBatch(testFiling(), []*data.Fact{stray}, false)

		Expect(err).NotTo(HaveOccurred())
		Expect(rejected).To(Equal(1))
		Expect(planned).To(BeEmpty())
	})

	It("fails fast on the first malformed fact in strict mode", func() {
		bad := revenueFact("100")
		bad.AccessionNumber = "ABC"

		_, _, err := planBatch(testFiling(), []*data.Fact{bad, assetsFact("500")}, true)

		Expect(err).To(BeAssignableToTypeOf(&data.ValidationError{}))
	})
})

var _ = Describe("classify", func() {
	It("marks facts with no stored counterpart as inserts", func() {
		planned, _, err := planBatch(testFiling(), []*data.Fact{revenueFact("100"), assetsFact("500")}, false)
		Expect(err).NotTo(HaveOccurred())

		inserts, revisions, unchanged := classify(planned, map[string]storedFact{})

		Expect(inserts).To(HaveLen(2))
		Expect(revisions).To(BeEmpty())
		Expect(unchanged).To(BeZero())
	})

	It("marks re-ingested identical facts as unchanged", func() {
		planned, _, err := planBatch(testFiling(), []*data.Fact{revenueFact("100"), assetsFact("500")}, false)
		Expect(err).NotTo(HaveOccurred())

		inserts, revisions, unchanged := classify(planned, stored(planned))

		Expect(inserts).To(BeEmpty())
		Expect(revisions).To(BeEmpty())
		Expect(unchanged).To(Equal(2))
	})

	It("marks a corrected value for the same context as a revision", func() {
		first, _, err := planBatch(testFiling(), []*data.Fact{revenueFact("100")}, false)
		Expect(err).NotTo(HaveOccurred())

		second, _, err := planBatch(testFiling(), []*data.Fact{revenueFact("105")}, false)
		Expect(err).NotTo(HaveOccurred())

		// identical semantic context, different value: same hash
		Expect(second[0].hash).To(Equal(first[0].hash))

		inserts, revisions, unchanged := classify(second, stored(first))

		Expect(inserts).To(BeEmpty())
		Expect(unchanged).To(BeZero())
		Expect(revisions).To(HaveLen(1))
		Expect(*revisions[0].fact.Value).To(Equal("105"))
	})

	It("treats a decimals change alone as a revision", func() {
		first, _, err := planBatch(testFiling(), []*data.Fact{revenueFact("100")}, false)
		Expect(err).NotTo(HaveOccurred())

		changed := revenueFact("100")
		changed.Decimals = intPtr(0)
		second, _, err := planBatch(testFiling(), []*data.Fact{changed}, false)
		Expect(err).NotTo(HaveOccurred())

		_, revisions, unchanged := classify(second, stored(first))

		Expect(unchanged).To(BeZero())
		Expect(revisions).To(HaveLen(1))
	})

	It("distinguishes a nil value from an empty string", func() {
		first, _, err := planBatch(testFiling(), []*data.Fact{revenueFact("")}, false)
		Expect(err).NotTo(HaveOccurred())

		nilValue := revenueFact("ignored")
		nilValue.Value = nil
		second, _, err := planBatch(testFiling(), []*data.Fact{nilValue}, false)
		Expect(err).NotTo(HaveOccurred())

		_, revisions, unchanged := classify(second, stored(first))

		Expect(unchanged).To(BeZero())
		Expect(revisions).To(HaveLen(1))
	})

	It("is idempotent: a second pass over committed facts is all unchanged", func() {
		batch := []*data.Fact{revenueFact("100"), assetsFact("500"), revenueFact("105")}

		firstPass, _, err := planBatch(testFiling(), batch, false)
		Expect(err).NotTo(HaveOccurred())

		secondPass, _, err := planBatch(testFiling(), batch, false)
		Expect(err).NotTo(HaveOccurred())

		inserts, revisions, unchanged := classify(secondPass, stored(firstPass))

		Expect(inserts).To(BeEmpty())
		Expect(revisions).To(BeEmpty())
		Expect(unchanged).To(Equal(len(secondPass)))
	})
})
