package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// FileStore 上传文件存储，流程只管理文件引用的生命周期
type FileStore interface {
	Delete(ctx context.Context, fileID string) error
}

var fileIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

type localFileStore struct {
	dir string
}

// NewLocalFileStore 基于本地目录的 FileStore
func NewLocalFileStore(dir string) FileStore {
	return &localFileStore{dir: dir}
}

// Delete 删除文件；文件不存在视为成功
func (s *localFileStore) Delete(ctx context.Context, fileID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !fileIDPattern.MatchString(fileID) || fileID == "." || fileID == ".." {
		return fmt.Errorf("非法文件 ID: %q", fileID)
	}
	err := os.Remove(filepath.Join(s.dir, fileID))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
