package statfile

import "errors"

// Parse failure categories.
//
// Every failure inside the header reader, the background indexer, and the
// frame loader falls into one of three buckets: plain I/O errors (returned
// as-is from the os/bufio layer), structural violations of the detected
// record ordering, and rows that are too short for their positional layout.
// The File boundary converts all of them into a stored last-error string;
// none of them propagates as a panic.
var (
	// ErrStructural marks a violation of the latched sort order: an
	// interleaved file whose frame block is not contiguous, or a grouped
	// file that revisits a (frame, type) pair.
	ErrStructural = errors.New("structural violation")

	// ErrMalformedRow marks a row with too few columns for the field
	// positions the current phase needs. Field positions are load-bearing,
	// so this aborts the phase instead of skipping the line.
	ErrMalformedRow = errors.New("malformed row")
)
