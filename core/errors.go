// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import "errors"

var (
	// ErrInvalidRecord indicates a Record failed validation.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrInvalidQueryRecord indicates a QueryRecord failed validation.
	ErrInvalidQueryRecord = errors.New("invalid query record")

	// ErrInvalidTimestamp indicates a timestamp is in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")

	// ErrEmptyText indicates the primary text field is empty.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrMissingKey indicates a record has not been assigned a key.
	ErrMissingKey = errors.New("record key is not set")

	// ErrInvalidKind indicates a kind value outside the known set.
	ErrInvalidKind = errors.New("invalid kind")

	// ErrUnknownKeyStrategy indicates an unrecognized key generation strategy name.
	ErrUnknownKeyStrategy = errors.New("unknown key strategy")
)
