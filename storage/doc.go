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


// Package storage defines the persisted form of a recall engine and the
// stores that hold it.
//
// The whole engine state (vector graph, documents, corpus statistics and
// the content-hash table) is written as one snapshot. Snapshots are
// encoded with mus-go behind a magic/version header so a foreign or
// damaged blob is rejected instead of half-loaded.
//
// # Backends
//
//   - storage/file: one file per snapshot, replaced atomically by rename.
//   - storage/badger: one key in a BadgerDB database, written in a single
//     transaction.
//
// Both return storage.SnapshotStore so the engine does not care which one
// it holds:
//
//	store, err := file.NewStore("/var/lib/recall/recall.snap")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
// # Errors
//
// Load returns ErrNotFound when nothing has been saved yet and
// ErrCorruptSnapshot when the stored bytes cannot be decoded. Callers
// usually treat both as "start empty".
package storage
