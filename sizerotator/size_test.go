package sizerotator_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"golift.io/rollerr/filer"
	"golift.io/rollerr/mocks"
	"golift.io/rollerr/sizerotator"
)

var errTest = fmt.Errorf("this is a test error")

// testOpenFile creates a real file holding size bytes so Rotate has a live
// handle to measure.
func testOpenFile(t *testing.T, size int) *os.File {
	t.Helper()

	file, err := os.Create(filepath.Join(t.TempDir(), "app.log"))
	if err != nil {
		t.Fatalf("creating test log file: %v", err)
	}

	t.Cleanup(func() { file.Close() })

	if _, err := file.Write(bytes.Repeat([]byte{'x'}, size)); err != nil {
		t.Fatalf("filling test log file: %v", err)
	}

	return file
}

func TestNewDefaults(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	policy := sizerotator.New(nil)
	assert.NotNil(policy, "a nil config must produce a usable policy")
	assert.EqualValues(filer.Default(), policy.Filer)

	// The default limit is 10MB, so a small file must not rotate.
	file := testOpenFile(t, 100)
	rotated, err := policy.Rotate([]byte("hello"), file.Name(), file)
	assert.False(rotated)
	assert.Nil(err)
}

func TestRotateFirst(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	mockFiler := mocks.NewMockFiler(mockCtrl)
	policy := sizerotator.New(&sizerotator.Config{MaxFileSize: 50, MaxBackups: 3, Filer: mockFiler})
	file := testOpenFile(t, 45)

	// The pending bytes push the file to the limit and no backups exist yet.
	gomock.InOrder(
		mockFiler.EXPECT().Stat("/var/log/service.log").Return(nil, nil),
		mockFiler.EXPECT().Stat(filepath.Join("/var/log", "service.log.1")).Return(nil, os.ErrNotExist),
		mockFiler.EXPECT().Rename("/var/log/service.log", filepath.Join("/var/log", "service.log.1")),
	)
	//
	rotated, err := policy.Rotate([]byte("123456"), "/var/log/service.log", file)
	assert.True(rotated)
	assert.Nil(err)

	// A write that leaves room must not touch the file system.
	rotated, err = policy.Rotate([]byte("1234"), "/var/log/service.log", file)
	assert.False(rotated)
	assert.Nil(err)

	// Nothing at the target path means nothing to rotate.
	mockFiler.EXPECT().Stat("/var/log/service.log").Return(nil, os.ErrNotExist)
	//
	rotated, err = policy.Rotate([]byte("123456"), "/var/log/service.log", file)
	assert.False(rotated)
	assert.Nil(err)
}

func TestRotateCascade(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	mockFiler := mocks.NewMockFiler(mockCtrl)
	policy := sizerotator.New(&sizerotator.Config{MaxFileSize: 1, MaxBackups: 2, Filer: mockFiler})
	file := testOpenFile(t, 10)

	// Both backup slots are taken, so the chain shifts inner-out and the
	// file in the last slot is overwritten rather than shifted further.
	gomock.InOrder(
		mockFiler.EXPECT().Stat("/var/log/service.log").Return(nil, nil),
		mockFiler.EXPECT().Stat(filepath.Join("/var/log", "service.log.1")).Return(nil, nil),
		mockFiler.EXPECT().Stat(filepath.Join("/var/log", "service.log.2")).Return(nil, nil),
		mockFiler.EXPECT().Rename(filepath.Join("/var/log", "service.log.1"), filepath.Join("/var/log", "service.log.2")),
		mockFiler.EXPECT().Rename("/var/log/service.log", filepath.Join("/var/log", "service.log.1")),
	)
	//
	rotated, err := policy.Rotate([]byte("x"), "/var/log/service.log", file)
	assert.True(rotated)
	assert.Nil(err)
}

func TestRotateRecycle(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	mockFiler := mocks.NewMockFiler(mockCtrl)
	policy := sizerotator.New(&sizerotator.Config{MaxFileSize: 1, Filer: mockFiler})
	file := testOpenFile(t, 10)

	// Zero retained generations: the single backup slot is recycled even
	// though a file already occupies it.
	gomock.InOrder(
		mockFiler.EXPECT().Stat("/var/log/service.log").Return(nil, nil),
		mockFiler.EXPECT().Stat(filepath.Join("/var/log", "service.log.1")).Return(nil, nil),
		mockFiler.EXPECT().Rename("/var/log/service.log", filepath.Join("/var/log", "service.log.1")),
	)
	//
	rotated, err := policy.Rotate([]byte("x"), "/var/log/service.log", file)
	assert.True(rotated)
	assert.Nil(err)
}

func TestRotateNames(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	// Backup names for unusual live file names. A zero generation counts as
	// a numbered backup and shifts; a name without an inner extension does
	// not, even when its extension is a number.
	for fileName, backup := range map[string]string{
		"/var/log/service":        filepath.Join("/var/log", "service..1"),
		"/var/log/archive.tar.gz": filepath.Join("/var/log", "archive.tar.gz.1"),
		"/var/log/service.7":      filepath.Join("/var/log", "service.7.1"),
		"/var/log/app.log.0":      filepath.Join("/var/log", "app.log.1"),
	} {
		mockFiler := mocks.NewMockFiler(mockCtrl)
		policy := sizerotator.New(&sizerotator.Config{MaxFileSize: 1, MaxBackups: 5, Filer: mockFiler})
		file := testOpenFile(t, 10)

		gomock.InOrder(
			mockFiler.EXPECT().Stat(fileName).Return(nil, nil),
			mockFiler.EXPECT().Stat(backup).Return(nil, os.ErrNotExist),
			mockFiler.EXPECT().Rename(fileName, backup),
		)
		//
		rotated, err := policy.Rotate([]byte("x"), fileName, file)
		assert.True(rotated)
		assert.Nil(err)
	}
}

func TestRotateRenameError(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	mockFiler := mocks.NewMockFiler(mockCtrl)
	policy := sizerotator.New(&sizerotator.Config{MaxFileSize: 1, MaxBackups: 2, Filer: mockFiler})
	file := testOpenFile(t, 10)

	gomock.InOrder(
		mockFiler.EXPECT().Stat("/var/log/service.log").Return(nil, nil),
		mockFiler.EXPECT().Stat(filepath.Join("/var/log", "service.log.1")).Return(nil, os.ErrNotExist),
		mockFiler.EXPECT().Rename("/var/log/service.log", filepath.Join("/var/log", "service.log.1")).Return(errTest),
	)
	//
	rotated, err := policy.Rotate([]byte("x"), "/var/log/service.log", file)
	assert.False(rotated, "a failed rename must not report a rotation")
	assert.ErrorIs(err, errTest, "the rename error must be returned")
}

func TestRotateRealFiles(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	fileName := filepath.Join(t.TempDir(), "app.log")
	policy := sizerotator.New(&sizerotator.Config{MaxFileSize: 10, MaxBackups: 2})

	file, err := os.Create(fileName)
	assert.Nil(err)

	_, err = file.WriteString("first generation\n")
	assert.Nil(err)

	rotated, err := policy.Rotate([]byte("x"), fileName, file)
	assert.True(rotated)
	assert.Nil(err)
	assert.Nil(file.Close())

	// The live file was renamed away and kept its contents.
	_, err = os.Stat(fileName)
	assert.ErrorIs(err, os.ErrNotExist, "the live file must be renamed away")

	data, err := os.ReadFile(fileName + ".1")
	assert.Nil(err)
	assert.Equal("first generation\n", string(data))
}
