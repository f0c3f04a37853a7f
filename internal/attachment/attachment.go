// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package attachment reads the optional CV upload of an inquiry into memory.
//
// The content type is taken from the browser; bytes are not sniffed and
// nothing is scanned. The file picker on the site restricts uploads to PDF.
package attachment

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/placebyte/gateway/internal/models"
)

// DefaultContentType is used when the browser does not declare one.
const DefaultContentType = "application/pdf"

// ErrTooLarge is returned for uploads over models.MaxAttachmentSize.
var ErrTooLarge = errors.New("attachment too large")

// FromMultipart loads an uploaded file. A nil header, an empty file, or the
// "undefined" placeholder some browsers send is treated as no attachment.
func FromMultipart(fh *multipart.FileHeader) (*models.Attachment, error) {
	if fh == nil || fh.Size == 0 || fh.Filename == "undefined" {
		return nil, nil
	}
	if fh.Size > models.MaxAttachmentSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, fh.Size)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	return Read(f, fh.Filename, fh.Header.Get("Content-Type"))
}

// Read loads an attachment from r. The declared size is never trusted:
// at most MaxAttachmentSize+1 bytes are read so an oversized body is
// detected without buffering it.
func Read(r io.Reader, filename, contentType string) (*models.Attachment, error) {
	content, err := io.ReadAll(io.LimitReader(r, models.MaxAttachmentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(content) > models.MaxAttachmentSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, models.MaxAttachmentSize)
	}
	if len(content) == 0 {
		return nil, nil
	}

	if strings.TrimSpace(contentType) == "" {
		contentType = DefaultContentType
	}

	return &models.Attachment{
		Filename:    sanitizeFilename(filename),
		ContentType: contentType,
		Size:        int64(len(content)),
		Content:     content,
	}, nil
}

// Outbound converts an attachment to the transport representation.
func Outbound(a *models.Attachment) models.OutboundAttachment {
	return models.OutboundAttachment{
		Filename:    a.Filename,
		Content:     a.Encoded(),
		ContentType: a.ContentType,
		Disposition: "attachment",
	}
}

// sanitizeFilename strips any client-side path and control characters.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == '"' {
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == "/" {
		return "attachment.pdf"
	}
	return name
}
