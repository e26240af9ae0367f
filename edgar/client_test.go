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
package edgar_test

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/cheesecloth/ccdata/data"
	"github.com/cheesecloth/ccdata/edgar"
	"github.com/spf13/viper"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const tickerFixture = `{
	"0": {"cik_str": 320193, "ticker": "AAPL", "title": "Apple Inc."},
	"1": {"cik_str": 789019, "ticker": "MSFT", "title": "MICROSOFT CORP"}
}`

const submissionsFixture = `{
	"cik": "320193",
	"filings": {
		"recent": {
			"accessionNumber": ["0000320193-24-000123", "0000320193-24-000081", "0000320193-23-000106"],
			"form": ["10-K", "10-Q", "10-K"],
			"primaryDocument": ["aapl-20240928.htm", "aapl-20240629.htm", "aapl-20230930.htm"]
		}
	}
}`

const companyFactsFixture = `{
	"cik": 320193,
	"entityName": "Apple Inc.",
	"facts": {
		"us-gaap": {
			"Revenues": {
				"label": "Revenues",
				"units": {
					"USD": [
						{"start": "2023-10-01", "end": "2024-09-28", "val": 383285000000, "accn": "0000320193-24-000123", "form": "10-K", "filed": "2024-11-01"},
						{"start": "2022-09-25", "end": "2023-09-30", "val": 394328000000, "accn": "0000320193-23-000106", "form": "10-K", "filed": "2023-11-03"}
					]
				}
			},
			"Assets": {
				"label": "Total Assets",
				"units": {
					"USD": [
						{"end": "2024-09-28", "val": 364980000000, "accn": "0000320193-24-000123", "form": "10-K", "filed": "2024-11-01"}
					]
				}
			}
		}
	}
}`

var _ = Describe("Client", func() {
	var (
		server *httptest.Server
		client *edgar.Client
		ctx    context.Context
	)

	BeforeEach(func() {
		viper.Set("edgar.useragent", "ccdata tests test@example.com")

		mux := http.NewServeMux()
		mux.HandleFunc("/files/company_tickers.json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(tickerFixture))
		})
		mux.HandleFunc("/submissions/CIK0000320193.json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(submissionsFixture))
		})
		mux.HandleFunc("/api/xbrl/companyfacts/CIK0000320193.json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(companyFactsFixture))
		})

		server = httptest.NewServer(mux)
		client = edgar.New(edgar.WithBaseURLs(server.URL, server.URL))
		ctx = context.Background()
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("CIKForTicker", func() {
		It("resolves a ticker to a zero-padded CIK", func() {
			cik, err := client.CIKForTicker(ctx, "AAPL")
			Expect(err).NotTo(HaveOccurred())
			Expect(cik).To(Equal("0000320193"))
		})

		It("is case-insensitive", func() {
			cik, err := client.CIKForTicker(ctx, "msft")
			Expect(err).NotTo(HaveOccurred())
			Expect(cik).To(Equal("0000789019"))
		})

		It("reports unknown tickers", func() {
			_, err := client.CIKForTicker(ctx, "NOPE")
			Expect(err).To(MatchError(edgar.ErrTickerNotFound))
		})
	})

	Describe("Filings", func() {
		It("filters by form type", func() {
			filings, err := client.Filings(ctx, "0000320193", []string{"10-K"}, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(filings).To(HaveLen(2))
			Expect(filings[0].AccessionNumber).To(Equal("0000320193-24-000123"))
			Expect(filings[0].Form).To(Equal("10-K"))
			Expect(filings[1].AccessionNumber).To(Equal("0000320193-23-000106"))
		})

		It("caps the number of filings", func() {
			filings, err := client.Filings(ctx, "0000320193", []string{"10-K"}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(filings).To(HaveLen(1))
		})

		It("returns every form when no filter is given", func() {
			filings, err := client.Filings(ctx, "0000320193", nil, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(filings).To(HaveLen(3))
		})

		It("rejects a malformed cik before issuing a request", func() {
			_, err := client.Filings(ctx, "320193", nil, 0)
			Expect(err).To(BeAssignableToTypeOf(&data.ValidationError{}))
		})
	})

	Describe("CompanyFacts", func() {
		It("converts reported items into valid facts", func() {
			facts, err := client.CompanyFacts(ctx, "0000320193")
			Expect(err).NotTo(HaveOccurred())
			Expect(facts).To(HaveLen(3))

			for _, fact := range facts {
				Expect(fact.Validate()).To(Succeed())
				Expect(fact.CIK).To(Equal("0000320193"))
				Expect(fact.Dimensions).To(BeEmpty())
				Expect(fact.Unit).NotTo(BeNil())
			}
		})

		It("distinguishes instant from duration periods", func() {
			facts, err := client.CompanyFacts(ctx, "0000320193")
			Expect(err).NotTo(HaveOccurred())

			byQName := make(map[string][]*data.Fact)
			for _, fact := range facts {
				byQName[fact.QName] = append(byQName[fact.QName], fact)
			}

			Expect(byQName["us-gaap:Revenues"]).To(HaveLen(2))
			for _, fact := range byQName["us-gaap:Revenues"] {
				Expect(fact.PeriodType).To(Equal(data.Duration))
				Expect(fact.StartDate).NotTo(BeNil())
				Expect(fact.EndDate).NotTo(BeNil())
				Expect(fact.InstantDate).To(BeNil())
			}

			Expect(byQName["us-gaap:Assets"]).To(HaveLen(1))
			assets := byQName["us-gaap:Assets"][0]
			Expect(assets.PeriodType).To(Equal(data.Instant))
			Expect(assets.InstantDate).NotTo(BeNil())
			Expect(*assets.Value).To(Equal("364980000000"))
			Expect(*assets.Unit).To(Equal("USD"))
		})
	})

	Describe("GroupByFiling", func() {
		It("splits facts into per-accession batches", func() {
			facts, err := client.CompanyFacts(ctx, "0000320193")
			Expect(err).NotTo(HaveOccurred())

			grouped := edgar.GroupByFiling(facts)
			Expect(grouped).To(HaveLen(2))
			Expect(grouped["0000320193-24-000123"]).To(HaveLen(2))
			Expect(grouped["0000320193-23-000106"]).To(HaveLen(1))
		})
	})
})
