package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"interview-hub/internal/domain"
	"interview-hub/internal/metrics"
	"interview-hub/internal/storage"
)

const (
	DefaultMaxAttachmentBytes = 10 << 20
	sniffBytes                = 3072
	attachmentNameAlphabet    = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// allowedAttachments: extension -> tipos MIME aceptados para esa extension.
var allowedAttachments = map[string][]string{
	".jpg":  {"image/jpeg"},
	".jpeg": {"image/jpeg"},
	".png":  {"image/png"},
	".gif":  {"image/gif"},
	".webp": {"image/webp"},
	".mp3":  {"audio/mpeg", "audio/mp3"},
	".wav":  {"audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave"},
	".ogg":  {"audio/ogg", "application/ogg"},
	".m4a":  {"audio/mp4", "audio/x-m4a", "audio/m4a"},
	".webm": {"audio/webm", "video/webm"},
	".pdf":  {"application/pdf"},
	".doc":  {"application/msword", "application/x-ole-storage"},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/zip"},
	".txt":  {"text/plain"},
}

// AttachmentStore es el almacen de binarios (disco local en produccion).
type AttachmentStore interface {
	Save(name string, r io.Reader, maxBytes int64) (int64, error)
	Delete(name string) error
	URL(name string) string
}

// Sender del pipeline de entrega; lo implementa DeliveryService.
type MessageDeliverer interface {
	Deliver(ctx context.Context, path DeliveryPath, in SendInput) (Receipt, error)
}

type UploadInput struct {
	RoomID         string
	SenderEmail    string
	RecipientEmail string
	Content        string
	FileName       string
	DeclaredType   string
	Size           int64
	File           io.Reader
}

type UploadResult struct {
	MessageID string
	FileURL   string
	FileID    string
	Message   domain.ChatMessage
}

type AttachmentService struct {
	logger   *zap.Logger
	store    AttachmentStore
	delivery MessageDeliverer
	metrics  *metrics.Metrics
	maxBytes int64
	now      func() time.Time
}

func NewAttachmentService(logger *zap.Logger, store AttachmentStore, delivery MessageDeliverer, m *metrics.Metrics, maxBytes int64) *AttachmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxAttachmentBytes
	}
	return &AttachmentService{
		logger:   logger,
		store:    store,
		delivery: delivery,
		metrics:  m,
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

func (s *AttachmentService) MaxBytes() int64 {
	return s.maxBytes
}

// Upload valida tipo y tamaño antes de escribir; cualquier fallo posterior borra el binario.
func (s *AttachmentService) Upload(ctx context.Context, in UploadInput) (UploadResult, error) {
	if s.store == nil || s.delivery == nil {
		return UploadResult{}, errors.New("attachment service not configured")
	}
	if in.File == nil {
		s.metrics.Upload("rejected")
		return UploadResult{}, fmt.Errorf("%w: missing file", ErrValidation)
	}
	if in.Size > s.maxBytes {
		s.metrics.Upload("rejected")
		return UploadResult{}, fmt.Errorf("%w: file exceeds %d bytes", ErrUnsupportedMedia, s.maxBytes)
	}

	originalName := filepath.Base(strings.TrimSpace(in.FileName))
	ext := strings.ToLower(filepath.Ext(originalName))
	allowed, ok := allowedAttachments[ext]
	if !ok {
		s.metrics.Upload("rejected")
		return UploadResult{}, fmt.Errorf("%w: extension %q not allowed", ErrUnsupportedMedia, ext)
	}

	head := make([]byte, sniffBytes)
	n, err := io.ReadFull(in.File, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return UploadResult{}, fmt.Errorf("%w: read upload: %w", ErrStorage, err)
	}
	head = head[:n]

	fileType, ok := resolveMIME(in.DeclaredType, head, allowed)
	if !ok {
		s.metrics.Upload("rejected")
		return UploadResult{}, fmt.Errorf("%w: content type does not match %s", ErrUnsupportedMedia, ext)
	}

	name, err := s.storedName(ext)
	if err != nil {
		return UploadResult{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	written, err := s.store.Save(name, io.MultiReader(bytes.NewReader(head), in.File), s.maxBytes)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			s.metrics.Upload("rejected")
			return UploadResult{}, fmt.Errorf("%w: file exceeds %d bytes", ErrUnsupportedMedia, s.maxBytes)
		}
		s.metrics.Upload("failed")
		s.logger.Error("store attachment failed", zap.String("file_id", name), zap.Error(err))
		return UploadResult{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	attachment := &domain.Attachment{
		FileName: originalName,
		FileSize: written,
		FileType: fileType,
		FileURL:  s.store.URL(name),
		FileID:   name,
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		content = "📎 " + originalName
	}

	receipt, err := s.delivery.Deliver(ctx, PathHTTP, SendInput{
		RoomID:         in.RoomID,
		Content:        content,
		SenderEmail:    in.SenderEmail,
		RecipientEmail: in.RecipientEmail,
		Attachment:     attachment,
	})
	if err != nil {
		s.metrics.Upload("failed")
		if delErr := s.store.Delete(name); delErr != nil {
			s.logger.Error("cleanup attachment failed", zap.String("file_id", name), zap.Error(delErr))
		}
		return UploadResult{}, err
	}

	s.metrics.Upload("stored")
	return UploadResult{
		MessageID: receipt.Message.ID,
		FileURL:   attachment.FileURL,
		FileID:    attachment.FileID,
		Message:   receipt.Message,
	}, nil
}

// resolveMIME usa el tipo declarado salvo que falte o sea generico; entonces lo detecta
// por contenido y acepta si el tipo o alguno de sus padres esta permitido.
func resolveMIME(declared string, head []byte, allowed []string) (string, bool) {
	declared = strings.TrimSpace(declared)
	if declared != "" {
		if mediaType, _, err := mime.ParseMediaType(declared); err == nil {
			declared = strings.ToLower(mediaType)
		} else {
			declared = ""
		}
	}

	if declared != "" && declared != "application/octet-stream" {
		for _, a := range allowed {
			if declared == a {
				return declared, true
			}
		}
		return declared, false
	}

	detected := mimetype.Detect(head)
	for m := detected; m != nil; m = m.Parent() {
		for _, a := range allowed {
			if m.Is(a) {
				return a, true
			}
		}
	}
	return detected.String(), false
}

// storedName: <unixMillis>-<12 caracteres aleatorios><ext>.
func (s *AttachmentService) storedName(ext string) (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = attachmentNameAlphabet[int(b)%len(attachmentNameAlphabet)]
	}
	return fmt.Sprintf("%d-%s%s", s.now().UnixMilli(), buf, ext), nil
}
