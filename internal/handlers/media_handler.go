package handlers

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/vibechat/vibechat-backend/internal/httpx"
	"github.com/vibechat/vibechat-backend/internal/models"
	"github.com/vibechat/vibechat-backend/internal/storage"
	"github.com/vibechat/vibechat-backend/internal/validation"
)

type MediaHandler struct {
	s3 *storage.S3Storage
}

func NewMediaHandler(s3 *storage.S3Storage) *MediaHandler {
	return &MediaHandler{s3: s3}
}

func normalizeETag(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "W/")
	v = strings.Trim(v, "\"")
	return v
}

// UploadAttachment handles POST /api/rooms/:id/attachments. It stores the
// binary and answers with the attachment descriptor the client then embeds
// in a file-message send.
func (h *MediaHandler) UploadAttachment(c *fiber.Ctx) error {
	if h.s3 == nil {
		return httpx.Error(c, fiber.StatusServiceUnavailable, "storage_not_configured", "Storage not configured")
	}

	roomID, err := c.ParamsInt("id")
	if err != nil || roomID <= 0 {
		return httpx.BadRequest(c, "invalid_room_id", "Invalid room id")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return httpx.BadRequest(c, "missing_file", "Missing file field")
	}
	if fileHeader.Size <= 0 || fileHeader.Size > validation.MaxAttachmentSize() {
		return httpx.BadRequest(c, "invalid_file_size", "File empty or too large")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	src, err := fileHeader.Open()
	if err != nil {
		return httpx.BadRequest(c, "invalid_file", "Cannot read file")
	}
	defer src.Close()

	name := filepath.Base(fileHeader.Filename)
	key, err := storage.SafeJoinAttachmentPath(
		fmt.Sprintf("chat/%d", roomID),
		fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), uuid.NewString(), filepath.Ext(name)),
	)
	if err != nil {
		return httpx.BadRequest(c, "invalid_file_name", "Invalid file name")
	}

	if _, err := h.s3.PutObject(c.Context(), key, src, fileHeader.Size, contentType); err != nil {
		log.Printf("attachment upload failed: room=%d key=%q err=%v", roomID, key, err)
		return httpx.Internal(c, "upload_failed")
	}

	return c.Status(fiber.StatusCreated).JSON(models.Attachment{
		URL:         key,
		Name:        name,
		ContentType: contentType,
	})
}

// GetAttachment handles GET /api/media/* and streams the stored object.
func (h *MediaHandler) GetAttachment(c *fiber.Ctx) error {
	if h.s3 == nil {
		return httpx.Error(c, fiber.StatusServiceUnavailable, "storage_not_configured", "Storage not configured")
	}

	keyParam := strings.TrimSpace(c.Params("*"))
	key, err := storage.SafeJoinAttachmentPath("", keyParam)
	if err != nil {
		return httpx.NotFound(c, "not_found", "Not found")
	}

	obj, st, err := h.s3.GetObject(c.Context(), key)
	if err != nil {
		// Hide details.
		var resp minio.ErrorResponse
		if errors.As(err, &resp) {
			if resp.StatusCode == 404 || resp.Code == "NoSuchKey" || resp.Code == "NoSuchObject" {
				return httpx.NotFound(c, "not_found", "Not found")
			}
		}
		log.Printf("media fetch failed: key=%q err=%v", key, err)
		return httpx.Internal(c, "media_fetch_failed")
	}

	etag := st.ETag
	if etag != "" {
		c.Set("ETag", "\""+etag+"\"")
		if inm := normalizeETag(c.Get("If-None-Match")); inm != "" && inm == normalizeETag(etag) {
			_ = obj.Close()
			return c.SendStatus(fiber.StatusNotModified)
		}
	}
	if !st.LastModified.IsZero() {
		c.Set("Last-Modified", st.LastModified.UTC().Format(time.RFC1123))
	}

	c.Set("Cache-Control", "private, max-age=31536000, immutable")
	if st.ContentType != "" {
		c.Set(fiber.HeaderContentType, st.ContentType)
	} else {
		c.Set(fiber.HeaderContentType, "application/octet-stream")
	}
	if st.Size > 0 {
		c.Set("Content-Length", strconv.FormatInt(st.Size, 10))
	}

	// Stream object while capturing any mid-stream errors.
	// (Fiber versions vary; use underlying fasthttp stream writer.)
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			_ = obj.Close()
		}()
		if _, err := io.Copy(w, obj); err != nil {
			log.Printf("media stream interrupted: key=%q err=%v", key, err)
		}
	})
	return nil
}
