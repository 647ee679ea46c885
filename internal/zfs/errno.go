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

package zfs

import "fmt"

// Errno is the wire error space of spec §6: POSIX errno values are
// positive, ZFS-specific errors are negative. It implements error so
// that component APIs can return it directly and callers can use
// errors.As to recover the wire code.
type Errno int32

// ZFS-specific wire errors (spec §6). POSIX errno values (ENOENT, EEXIST,
// ...) are carried as their platform syscall.Errno equivalents and are
// not redefined here.
const (
	Stale            Errno = -20
	Busy             Errno = -21
	Changed          Errno = -22
	MetadataError    Errno = -50
	UpdateFailed     Errno = -51
	ReplyTooLong     Errno = -100
	InvalidReply     Errno = -101
	Exiting          Errno = -151
	CouldNotConnect  Errno = -152
	CouldNotAuth     Errno = -153
	ConnectionClosed Errno = -154
	RequestTimeout   Errno = -155
)

var names = map[Errno]string{
	Stale:            "ZFS_STALE",
	Busy:             "ZFS_BUSY",
	Changed:          "ZFS_CHANGED",
	MetadataError:    "ZFS_METADATA_ERROR",
	UpdateFailed:     "ZFS_UPDATE_FAILED",
	ReplyTooLong:     "ZFS_REPLY_TOO_LONG",
	InvalidReply:     "ZFS_INVALID_REPLY",
	Exiting:          "ZFS_EXITING",
	CouldNotConnect:  "ZFS_COULD_NOT_CONNECT",
	CouldNotAuth:     "ZFS_COULD_NOT_AUTH",
	ConnectionClosed: "ZFS_CONNECTION_CLOSED",
	RequestTimeout:   "ZFS_REQUEST_TIMEOUT",
}

func (e Errno) Error() string {
	if n, ok := names[e]; ok {
		return n
	}
	return fmt.Sprintf("zfs errno %d", int32(e))
}

// Retryable reports whether the dispatcher should attempt one refresh +
// retry cycle (spec §4.7, §7) rather than surface the error immediately.
func (e Errno) Retryable() bool {
	return e == Stale
}
