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
package healthcheck

import (
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/viper"
)

var (
	ErrStatus = errors.New("status code is invalid")
)

// Ping signals a healthchecks.io check that an ingest run completed. The
// check id is read from the healthchecks.checkid configuration key; pings
// are skipped when no id is configured.
func Ping(id string) error {
	if id == "" {
		id = viper.GetString("healthchecks.checkid")
	}
	if id == "" {
		return nil
	}

	client := resty.New()
	resp, err := client.R().
		Get(fmt.Sprintf("https://hc-ping.com/%s", id))

	if err != nil {
		return err
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode())
	}

	return nil
}

// Fail signals a healthchecks.io check that an ingest run failed.
func Fail(id string) error {
	if id == "" {
		id = viper.GetString("healthchecks.checkid")
	}
	if id == "" {
		return nil
	}

	client := resty.New()
	resp, err := client.R().
		Get(fmt.Sprintf("https://hc-ping.com/%s/fail", id))

	if err != nil {
		return err
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode())
	}

	return nil
}
