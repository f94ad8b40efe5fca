package export

import (
	"errors"
	"fmt"
)

// ErrNoStore is returned when a job runs without an asset store.
var ErrNoStore = errors.New("export: no asset store")

// AssetError carries the game path of the asset that failed a job.
type AssetError struct {
	Path string
	Err  error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("export: %s: %v", e.Path, e.Err)
}

func (e *AssetError) Unwrap() error { return e.Err }

func assetErr(path string, err error) error {
	if err == nil {
		return nil
	}
	return &AssetError{Path: path, Err: err}
}

func asAssetError(err error) (*AssetError, bool) {
	var ae *AssetError
	ok := errors.As(err, &ae)
	return ae, ok
}
