/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package catalog

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
)

// ErrConnection reports a failure reaching the catalog database.
type ErrConnection struct {
	Msg string
	Err error
}

// ErrQuery reports a statement the database rejected or failed to run.
type ErrQuery struct {
	Msg string
	Err error
}

// ErrInvalidInput reports a request the connector refuses to send.
type ErrInvalidInput struct {
	Msg string
	Err error
}

// ErrTimeout reports an operation that ran past its deadline.
type ErrTimeout struct {
	Msg string
	Err error
}

// ErrCancelled reports an operation stopped by its context.
type ErrCancelled struct {
	Msg string
	Err error
}

func format(kind, msg string, err error) string {
	if err == nil {
		return fmt.Sprintf("%s: %s", kind, msg)
	}
	return fmt.Sprintf("%s: %s: %v", kind, msg, err)
}

func (e *ErrConnection) Error() string { return format("catalog connection error", e.Msg, e.Err) }
func (e *ErrConnection) Unwrap() error { return e.Err }

func (e *ErrQuery) Error() string { return format("catalog query error", e.Msg, e.Err) }
func (e *ErrQuery) Unwrap() error { return e.Err }

func (e *ErrInvalidInput) Error() string { return format("invalid catalog request", e.Msg, e.Err) }
func (e *ErrInvalidInput) Unwrap() error { return e.Err }

func (e *ErrTimeout) Error() string { return format("catalog timeout", e.Msg, e.Err) }
func (e *ErrTimeout) Unwrap() error { return e.Err }

func (e *ErrCancelled) Error() string { return format("catalog operation cancelled", e.Msg, e.Err) }
func (e *ErrCancelled) Unwrap() error { return e.Err }

// classify wraps a driver error in the matching typed error.
func classify(msg string, err error) error {
	var netErr net.Error
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return &ErrCancelled{Msg: msg, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &ErrTimeout{Msg: msg, Err: err}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &ErrTimeout{Msg: msg, Err: err}
	case errors.Is(err, driver.ErrBadConn), errors.As(err, &netErr):
		return &ErrConnection{Msg: msg, Err: err}
	default:
		return &ErrQuery{Msg: msg, Err: err}
	}
}
