/*
Copyright 2023 Alexander Bartolomey (github@alexanderbartolomey.de)

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package ipfix

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated indicates that fewer bytes remain than the structure currently being decoded
	// requires. It is never fatal, decoding of the enclosing structure stops and everything decoded
	// until then is kept.
	ErrTruncated error = errors.New("truncated")
	// ErrTruncatedEnterpriseField is a special case of truncation: a field specifier has the enterprise
	// bit set, but the 4 bytes of the enterprise number are missing. errors.Is(err, ErrTruncated) holds.
	ErrTruncatedEnterpriseField error = fmt.Errorf("enterprise number %w", ErrTruncated)
	// ErrMalformedLength indicates a declared length below the structural minimum. The container the
	// length belongs to is not iterated any further.
	ErrMalformedLength error = errors.New("malformed length")
	// ErrUnknownVersion indicates a version number that is neither IPFIX nor NetFlow v5/v9.
	ErrUnknownVersion error = errors.New("unknown version")
	// ErrUnsupportedSetId is used for set ids in the reserved interval [4, 255] (and 0, 1). Such sets
	// are counted, but not decoded.
	ErrUnsupportedSetId error = errors.New("unsupported set id")
	// ErrNotBound is returned when reading from a listener whose socket was never bound
	ErrNotBound error = errors.New("listener is not bound")
)

func truncated(what string, offset, need, have int) error {
	return fmt.Errorf("%w %s at offset %d, need %d bytes, have %d", ErrTruncated, what, offset, need, have)
}

func malformedSetLength(id, length uint16, offset int) error {
	return fmt.Errorf("%w of set %d at offset %d: %d < %d", ErrMalformedLength, id, offset, length, SetHeaderLength)
}

func unknownVersion(v uint16) error {
	return fmt.Errorf("%w %d", ErrUnknownVersion, v)
}

func unsupportedSetId(id uint16) error {
	return fmt.Errorf("%w %d", ErrUnsupportedSetId, id)
}
