package handler

import (
	"context"
	"mime/multipart"
	"net/http"

	"github.com/hitoshi/careerhub/internal/model"
	"github.com/hitoshi/careerhub/internal/uploads"
)

// UploadServiceInterface はアップロードハンドラーが必要とするサービスインターフェース。
type UploadServiceInterface interface {
	UploadImage(ctx context.Context, fh *multipart.FileHeader) (*uploads.UploadResult, error)
	UploadDocument(ctx context.Context, fh *multipart.FileHeader) (*uploads.UploadResult, error)
}

// UploadMetrics はアップロード件数を記録する。nilの場合は記録しない。
type UploadMetrics interface {
	RecordUpload(kind string)
}

// UploadHandler はファイルアップロードのHTTPハンドラー。
type UploadHandler struct {
	service UploadServiceInterface
	metrics UploadMetrics
	maxSize int64
}

// NewUploadHandler はUploadHandlerを生成する。maxSizeMBはマルチパート全体の上限。
func NewUploadHandler(service UploadServiceInterface, metrics UploadMetrics, maxSizeMB int64) *UploadHandler {
	return &UploadHandler{
		service: service,
		metrics: metrics,
		maxSize: maxSizeMB * 1024 * 1024,
	}
}

// UploadImage は画像をアップロードして公開URLを返す。
// POST /uploads/image (multipart/form-data, フィールド名 "file")
func (h *UploadHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, h.service.UploadImage, "image")
}

// UploadDocument は文書をアップロードして公開URLを返す。
// POST /uploads/document (multipart/form-data, フィールド名 "file")
func (h *UploadHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, h.service.UploadDocument, "document")
}

func (h *UploadHandler) upload(w http.ResponseWriter, r *http.Request, fn func(context.Context, *multipart.FileHeader) (*uploads.UploadResult, error), kind string) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize)
	if err := r.ParseMultipartForm(h.maxSize); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewUploadRejectedError("マルチパートフォームの読み取りに失敗しました"))
		return
	}

	file, fh, err := r.FormFile("file")
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewUploadRejectedError("fileフィールドが見つかりません"))
		return
	}
	file.Close()

	result, err := fn(r.Context(), fh)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordUpload(kind)
	}
	writeJSON(w, http.StatusCreated, result)
}
