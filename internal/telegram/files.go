package telegram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/go-telegram/bot"
	"github.com/set-night/crazegpt/internal/domain"
	"github.com/set-night/crazegpt/internal/service"
)

// DownloadFile downloads a file from Telegram by file ID.
func DownloadFile(ctx context.Context, b *bot.Bot, fileID string) ([]byte, string, error) {
	file, err := b.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, "", fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.FileDownloadLink(file), nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read file data: %w", err)
	}

	return data, file.FilePath, nil
}

// StageAttachment copies a user's Telegram upload into the blob store so the
// transcript references a blob: URL rather than a token-bearing link.
func StageAttachment(ctx context.Context, b *bot.Bot, blobs *service.BlobStore, fileID, name, mimeType string, isImage bool) (*domain.Attachment, error) {
	data, filePath, err := DownloadFile(ctx, b, fileID)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = path.Base(filePath)
	}
	return &domain.Attachment{
		Name:    name,
		URL:     blobs.Put(data, name, mimeType),
		IsImage: isImage,
	}, nil
}

// SendGeneratedFile delivers a generated file as a document. The blob is
// released by the download whether or not the upload succeeds.
func SendGeneratedFile(ctx context.Context, b *bot.Bot, chatID int64, files *service.FileService, url, caption string) error {
	var buf bytes.Buffer
	file, err := files.Download(&buf, url)
	if err != nil {
		return fmt.Errorf("load generated file: %w", err)
	}
	return SendDocument(ctx, b, chatID, file.Filename, buf.Bytes(), caption)
}
