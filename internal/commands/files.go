// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package commands

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"assistbridge/cli/internal/bridge"
	"assistbridge/cli/internal/bridge/model"
	"assistbridge/cli/internal/errors"
)

// UploadResult identifies a started upload so it can be stopped.
type UploadResult struct {
	UploadID string `json:"uploadId"`
	Message  string `json:"message"`
}

// UploadFile sends the local file at path to the backend knowledge base.
func (b *Bridge) UploadFile(ctx context.Context, path string) (UploadResult, error) {
	if strings.TrimSpace(path) == "" {
		return UploadResult{}, errors.New(errors.InvalidInput, "upload path is empty")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return UploadResult{}, errors.Wrap(errors.IO, "read "+path, err)
	}

	id := uuid.NewString()
	msg, err := b.unary(ctx, bridge.MethodUploadFile, model.UploadFileRequest{
		UploadID: id,
		FileName: filepath.Base(path),
		Content:  content,
	})
	if err != nil {
		return UploadResult{}, err
	}
	b.log.Info().Str("upload_id", id).Str("file", filepath.Base(path)).Int("bytes", len(content)).Msg("file uploaded")
	return UploadResult{UploadID: id, Message: msg}, nil
}

// DownloadFile streams fileName from the backend into dest and returns the number
// of bytes written. When dest is an existing directory the file keeps its name.
// The payload goes to a temporary file first so a failed transfer leaves nothing behind.
func (b *Bridge) DownloadFile(ctx context.Context, fileName, dest string) (int64, error) {
	if strings.TrimSpace(fileName) == "" {
		return 0, errors.New(errors.InvalidInput, "download file name is empty")
	}
	if strings.TrimSpace(dest) == "" {
		return 0, errors.New(errors.InvalidInput, "download destination is empty")
	}
	if fi, err := os.Stat(dest); err == nil && fi.IsDir() {
		dest = filepath.Join(dest, filepath.Base(fileName))
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return 0, errors.Wrap(errors.IO, "create download file", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	written, err := b.stream(ctx, fileName, tmp)
	if cerr := tmp.Close(); cerr != nil && err == nil {
		err = errors.Wrap(errors.IO, "close download file", cerr)
	}
	if err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return 0, errors.Wrap(errors.IO, "move download into place", err)
	}
	b.log.Info().Str("file", fileName).Str("dest", dest).Int64("bytes", written).Msg("file downloaded")
	return written, nil
}

func (b *Bridge) stream(ctx context.Context, fileName string, w io.Writer) (int64, error) {
	var written int64
	err := b.sessions.WithStream(ctx, func(ctx context.Context, conn bridge.Conn, alive func()) error {
		return conn.Stream(ctx, bridge.MethodDownloadFile, model.FileNameRequest{FileName: fileName}, func(decode func(any) error) error {
			var chunk model.FileChunk
			if err := decode(&chunk); err != nil {
				return err
			}
			alive()
			n, err := w.Write(chunk.Content)
			written += int64(n)
			if err != nil {
				return errors.Wrap(errors.IO, "write download", err)
			}
			return nil
		})
	})
	return written, err
}
