package ivfengine

import (
	"errors"
	"fmt"

	"github.com/Tyooughtul/Vengine/internal/dataset"
	"github.com/Tyooughtul/Vengine/internal/ivf"
	"github.com/Tyooughtul/Vengine/internal/kmeans"
	"github.com/Tyooughtul/Vengine/internal/walog"
)

var (
	// ErrDimensionMismatch is returned when a vector's length does not
	// equal the engine's configured dimension.
	ErrDimensionMismatch = errors.New("ivfengine: dimension mismatch")

	// ErrInsufficientData is returned by BuildIndex when n_lists is not
	// positive, or there are fewer vectors than the requested number of
	// lists.
	ErrInsufficientData = errors.New("ivfengine: insufficient data for requested n_lists")

	// ErrNotBuilt is returned by Search when called before a successful
	// BuildIndex.
	ErrNotBuilt = errors.New("ivfengine: index not built")

	// ErrIoError is returned when a write-ahead log operation fails at
	// the OS level. The underlying *os.PathError (or similar) is
	// reachable via errors.As and errors.Is.
	ErrIoError = errors.New("ivfengine: durability I/O failure")

	// ErrClosed is returned by any operation attempted after Close.
	ErrClosed = errors.New("ivfengine: engine is closed")
)

// translateError maps internal package error types onto this package's
// exported sentinels, so callers only ever need to errors.Is/As against
// the ivfengine package.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var dimErr *dataset.ErrDimensionMismatch
	if errors.As(err, &dimErr) {
		return fmt.Errorf("%w: %w", ErrDimensionMismatch, err)
	}

	var insufficient *kmeans.ErrInsufficientData
	if errors.As(err, &insufficient) {
		return fmt.Errorf("%w: %w", ErrInsufficientData, err)
	}
	var ivfInsufficient *ivf.ErrInsufficientData
	if errors.As(err, &ivfInsufficient) {
		return fmt.Errorf("%w: %w", ErrInsufficientData, err)
	}

	if errors.Is(err, ivf.ErrNotBuilt) {
		return fmt.Errorf("%w: %w", ErrNotBuilt, err)
	}

	var ioErr *walog.IoError
	if errors.As(err, &ioErr) {
		return fmt.Errorf("%w: %w", ErrIoError, err)
	}

	return err
}
