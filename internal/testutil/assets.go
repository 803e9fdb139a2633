package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// AssetDirName is the directory, next to a test file, that holds its static inputs.
const AssetDirName = "assets"

// AssetDir returns the assets directory that sits beside the calling source
// file. The path comes from the call stack, so it does not depend on the
// working directory. Nothing is checked on disk. Binaries built with
// -trimpath record module-relative file names, so the result is relative there.
func AssetDir() string {
	return callerAssetDir(2)
}

// callerAssetDir counts skip the way runtime.Caller does: 0 is callerAssetDir.
func callerAssetDir(skip int) string {
	_, file, _, _ := runtime.Caller(skip)
	return assetDirFor(file)
}

func assetDirFor(file string) string {
	return filepath.Join(filepath.Dir(file), AssetDirName)
}

// Assets is an asset directory captured once per test package.
type Assets struct {
	dir string
}

// NewAssets captures the assets directory of the calling file.
func NewAssets() Assets {
	return Assets{dir: callerAssetDir(2)}
}

// Dir returns the captured assets directory.
func (a Assets) Dir() string {
	return a.dir
}

// Path joins elem onto the assets directory.
func (a Assets) Path(elem ...string) string {
	return filepath.Join(append([]string{a.dir}, elem...)...)
}

// ReadFile reads an asset, failing the test if it cannot be read.
func (a Assets) ReadFile(t testing.TB, elem ...string) []byte {
	t.Helper()
	path := a.Path(elem...)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read asset %s: %v", path, err)
	}
	return data
}
