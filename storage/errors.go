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


package storage

import "errors"

var (
	// ErrNotFound indicates that no snapshot has been saved.
	ErrNotFound = errors.New("snapshot not found")

	// ErrCorruptSnapshot indicates stored bytes that are not a valid snapshot.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")

	// ErrTruncatedData indicates that a snapshot ended before all of its
	// fields were read. It is always reported together with ErrCorruptSnapshot.
	ErrTruncatedData = errors.New("truncated data")

	// ErrStorageClosed indicates that the store is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrSnapshotRequired indicates a nil snapshot passed to Save.
	ErrSnapshotRequired = errors.New("snapshot is required")
)
