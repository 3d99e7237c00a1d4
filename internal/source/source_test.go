package source

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"yaml2json/internal/logging"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func requireNoLiveResources(t *testing.T) {
	t.Helper()
	assert.Equal(t, Resources{}, LiveResources())
}

func TestAcquire_Success(t *testing.T) {
	path := writeFile(t, "test_file.txt", "Hello, World!")

	buf, err := Acquire(path)
	require.NoError(t, err)
	require.True(t, buf.Valid())
	assert.Equal(t, 13, buf.Len())
	assert.Equal(t, "Hello, World!", string(buf.Bytes()))
	assert.Equal(t, path, buf.Path())

	require.NoError(t, buf.Close())
	assert.False(t, buf.Valid())
	requireNoLiveResources(t)
}

func TestAcquire_MappedAndBufferedAgree(t *testing.T) {
	if !mappingSupported {
		t.Skip("memory mapping not available on " + runtime.GOOS)
	}
	content := "database:\n  host: localhost\n  port: 5432\n"
	path := writeFile(t, "in.yaml", content)

	mapped, err := Acquire(path)
	require.NoError(t, err)
	defer mapped.Close()
	assert.Equal(t, modeMapped, mapped.mode)
	assert.Equal(t, Resources{Handles: 1, Mappings: 1}, LiveResources(), "mapping keeps the handle open")

	owned, err := Acquire(path, WithoutMapping())
	require.NoError(t, err)
	defer owned.Close()
	assert.Equal(t, modeOwned, owned.mode)
	assert.Nil(t, owned.file, "buffered read releases the handle immediately")

	assert.Equal(t, content, string(mapped.Bytes()))
	assert.Equal(t, mapped.Bytes(), owned.Bytes())

	require.NoError(t, mapped.Close())
	require.NoError(t, owned.Close())
	requireNoLiveResources(t)
}

func TestAcquire_MappedBytesAreCopyOnWrite(t *testing.T) {
	if !mappingSupported {
		t.Skip("memory mapping not available on " + runtime.GOOS)
	}
	path := writeFile(t, "cow.yaml", "key: value")

	buf, err := Acquire(path)
	require.NoError(t, err)
	buf.Bytes()[0] = 'K'
	assert.Equal(t, "Key: value", string(buf.Bytes()))
	require.NoError(t, buf.Close())

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "key: value", string(onDisk))
}

func TestAcquire_MappingFailureFallsBack(t *testing.T) {
	orig := mapFile
	defer func() { mapFile = orig }()
	core, logs := observer.New(zapcore.InfoLevel)
	logging.Use(zap.New(core))
	t.Cleanup(func() { logging.Use(zap.NewNop()) })

	calls := 0
	mapFile = func(*os.File, int) ([]byte, error) {
		calls++
		return nil, errors.New("ENOMEM")
	}

	path := writeFile(t, "in.yaml", "a: 1\n")
	buf, err := Acquire(path)
	require.NoError(t, err)
	if mappingSupported {
		assert.Equal(t, 1, calls)
	}
	assert.Equal(t, modeOwned, buf.mode)
	assert.Equal(t, "a: 1\n", string(buf.Bytes()))
	assert.Equal(t, Resources{}, LiveResources(), "handle from open must not leak after fallback")
	require.NoError(t, buf.Close())
	if mappingSupported {
		assert.Equal(t, 1, logs.FilterLoggerName("source").FilterMessageSnippet("falling back").Len())
	}
}

func TestAcquire_WithoutMappingSkipsMmap(t *testing.T) {
	orig := mapFile
	defer func() { mapFile = orig }()
	mapFile = func(*os.File, int) ([]byte, error) {
		t.Fatal("mapFile called despite WithoutMapping")
		return nil, nil
	}

	buf, err := Acquire(writeFile(t, "in.yaml", "x"), WithoutMapping())
	require.NoError(t, err)
	assert.Equal(t, "x", string(buf.Bytes()))
	require.NoError(t, buf.Close())
}

func TestAcquire_Errors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty_file.txt")
	require.NoError(t, os.WriteFile(empty, nil, 0644))

	tests := []struct {
		name string
		path string
		kind Kind
		is   error
	}{
		{"missing", filepath.Join(dir, "nonexistent.txt"), NotFound, ErrNotFound},
		{"directory", dir, NotRegularFile, ErrNotRegularFile},
		{"empty", empty, EmptyFile, ErrEmptyFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := Acquire(tt.path)
			require.Error(t, err)
			assert.Nil(t, buf)
			assert.Equal(t, tt.kind, KindOf(err))
			assert.ErrorIs(t, err, tt.is)
			assert.Contains(t, err.Error(), tt.path)
			requireNoLiveResources(t)
		})
	}
}

func TestAcquire_SymlinkToDirectory(t *testing.T) {
	dir := t.TempDir()
	link := filepath.Join(t.TempDir(), "link")
	if err := os.Symlink(dir, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	_, err := Acquire(link)
	assert.ErrorIs(t, err, ErrNotRegularFile)
}

func TestAcquire_SymlinkToFile(t *testing.T) {
	target := writeFile(t, "target.yaml", "k: v")
	link := filepath.Join(t.TempDir(), "link.yaml")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	buf, err := Acquire(link)
	require.NoError(t, err)
	assert.Equal(t, "k: v", string(buf.Bytes()))
	require.NoError(t, buf.Close())
}

func TestAcquire_OpenFailed(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for this user")
	}
	path := writeFile(t, "secret.yaml", "k: v")
	require.NoError(t, os.Chmod(path, 0))

	_, err := Acquire(path)
	require.Error(t, err)
	assert.Equal(t, OpenFailed, KindOf(err))
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.Contains(t, err.Error(), "failed to open input file")
	requireNoLiveResources(t)
}

func TestAcquire_ReadFailed(t *testing.T) {
	orig := readFile
	defer func() { readFile = orig }()
	readFile = func(*os.File, int64) ([]byte, error) {
		return nil, io.ErrUnexpectedEOF
	}

	_, err := Acquire(writeFile(t, "short.yaml", "k: v"), WithoutMapping())
	require.Error(t, err)
	assert.Equal(t, ReadFailed, KindOf(err))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Contains(t, err.Error(), "failed to read input file")
	requireNoLiveResources(t)
}

func TestReadAt_ShortFile(t *testing.T) {
	path := writeFile(t, "in.yaml", "abc")
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	_, err = readAt(f, 10)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestBuffer_MoveReleasesExactlyOnce(t *testing.T) {
	for _, opts := range [][]Option{nil, {WithoutMapping()}} {
		path := writeFile(t, "test_file.txt", "Hello, World!")
		first, err := Acquire(path, opts...)
		require.NoError(t, err)
		held := LiveResources()

		second := first.Move()
		assert.False(t, first.Valid())
		assert.True(t, second.Valid())
		assert.Equal(t, 13, second.Len())
		assert.Equal(t, held, LiveResources(), "move must not release or duplicate")

		require.NoError(t, first.Close())
		assert.Equal(t, held, LiveResources(), "closing the moved-from buffer is a no-op")

		require.NoError(t, second.Close())
		requireNoLiveResources(t)

		require.NoError(t, second.Close())
		requireNoLiveResources(t)
	}
}

func TestBuffer_NilAndEmpty(t *testing.T) {
	var nilBuf *Buffer
	assert.False(t, nilBuf.Valid())
	assert.Zero(t, nilBuf.Len())
	assert.Nil(t, nilBuf.Bytes())
	assert.Empty(t, nilBuf.Path())
	assert.NoError(t, nilBuf.Close())

	var moved *Buffer
	require.NotPanics(t, func() { moved = nilBuf.Move() })
	require.NotNil(t, moved)
	assert.False(t, moved.Valid())
	assert.NoError(t, moved.Close())

	empty := FromBytes(nil)
	assert.False(t, empty.Valid())
	assert.Equal(t, modeInvalid, empty.mode)
}

func TestFromBytes(t *testing.T) {
	buf := FromBytes([]byte("name: test"))
	assert.True(t, buf.Valid())
	assert.Equal(t, modeOwned, buf.mode)
	assert.Empty(t, buf.Path())
	require.NoError(t, buf.Close())
	assert.False(t, buf.Valid())
	requireNoLiveResources(t)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "NotFound", NotFound.String())
	assert.Equal(t, "ReadFailed", ReadFailed.String())
	assert.Equal(t, "Kind(42)", Kind(42).String())
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, "mapped", modeMapped.String())
}

func TestError_IsDoesNotMatchOtherKinds(t *testing.T) {
	err := newError(EmptyFile, "x.yaml", nil)
	assert.ErrorIs(t, err, ErrEmptyFile)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "input file 'x.yaml' is empty", err.Error())
}
