// Copyright 2015 Google Inc. All Rights Reserved.
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

// Package randsrc supplies the batched random-byte source spec §5
// requires for minting capability verify tokens: reads are drawn from
// a shared buffer refilled from crypto/rand in chunks, under a single
// mutex, rather than issuing one syscall per 16-byte token.
package randsrc

import (
	"crypto/rand"
	"fmt"
	"sync"
)

// DefaultBatchSize is how many bytes Source reads from crypto/rand at
// a time once its buffer is exhausted.
const DefaultBatchSize = 4096

// Source is a mutex-guarded batched reader of cryptographically
// random bytes.
type Source struct {
	mu        sync.Mutex
	batchSize int
	buf       []byte
}

// New returns a Source that refills in chunks of batchSize bytes (or
// DefaultBatchSize if batchSize <= 0).
func New(batchSize int) *Source {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Source{batchSize: batchSize}
}

// Read fills p with random bytes, refilling the internal buffer from
// crypto/rand as needed.
func (s *Source) Read(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(p) > 0 {
		if len(s.buf) == 0 {
			s.buf = make([]byte, s.batchSize)
			if _, err := rand.Read(s.buf); err != nil {
				s.buf = nil
				return fmt.Errorf("randsrc: refilling buffer: %w", err)
			}
		}
		n := copy(p, s.buf)
		p = p[n:]
		s.buf = s.buf[n:]
	}
	return nil
}

// VerifyLen is the size of a capability verify token (spec §3/§6).
const VerifyLen = 16

// Verify mints a fresh VerifyLen-byte capability verify token.
func (s *Source) Verify() ([VerifyLen]byte, error) {
	var out [VerifyLen]byte
	err := s.Read(out[:])
	return out, err
}
