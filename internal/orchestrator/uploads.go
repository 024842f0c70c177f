package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/shaiso/Replay/internal/domain"
)

// SaveDownloads отправляет каталог загрузок архивом. Пропускается, если загрузок нет.
func (c *Client) SaveDownloads(ctx context.Context, apiKey string, mem *domain.Memory) error {
	if len(mem.Downloads) == 0 {
		return nil
	}
	archive, err := TarGz(mem.Dirs.Downloads, mem.TaskID)
	if err != nil {
		return err
	}
	return c.upload(ctx, c.endpoints.SaveDownloads, apiKey, mem.TaskID, "compressed_downloads", archive)
}

// SaveTrajectory отправляет весь каталог task архивом.
func (c *Client) SaveTrajectory(ctx context.Context, apiKey string, mem *domain.Memory) error {
	archive, err := TarGz(mem.Dirs.Task, mem.TaskID)
	if err != nil {
		return err
	}
	return c.upload(ctx, c.endpoints.SaveTrajectory, apiKey, mem.TaskID, "compressed_trajectory", archive)
}

// upload отправляет multipart-форму: task_id и архив <task_id>.tar.gz.
// Таймаут клиента не применяется, время загрузки ограничивает ctx.
func (c *Client) upload(ctx context.Context, endpoint, apiKey, taskID, field string, archive io.Reader) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("task_id", taskID); err != nil {
		return fmt.Errorf("write form field: %w", err)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename="%s.tar.gz"`, field, taskID))
	header.Set("Content-Type", "application/gzip")
	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, archive); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(endpoint), &body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	uploader := &Client{
		baseURL: c.baseURL,
		apiKey:  c.apiKey,
		http:    &http.Client{Transport: c.http.Transport},
		logger:  c.logger,
	}
	return uploader.do(req, c.keyOr(apiKey), nil)
}
