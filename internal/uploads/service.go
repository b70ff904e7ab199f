// Package uploads はGCSへのファイルアップロードを提供する。
package uploads

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/hitoshi/careerhub/internal/model"
)

// ObjectStore はオブジェクトストレージへの書き込みを抽象化する。
// Putは書き込んだオブジェクトの公開URLを返す。
type ObjectStore interface {
	Put(ctx context.Context, objectName, contentType string, r io.Reader) (string, error)
}

// GCSStore はGoogle Cloud Storageを使ったObjectStoreの実装。
type GCSStore struct {
	client *storage.Client
	bucket string
}

// インターフェース実装の確認
var _ ObjectStore = (*GCSStore)(nil)

// NewGCSStore はGCSクライアントを生成してストアを返す。
// credentialsFileが空の場合はアプリケーションデフォルト認証を使う。
func NewGCSStore(ctx context.Context, bucket, credentialsFile string) (*GCSStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("GCSクライアントの生成に失敗しました: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

// Put はオブジェクトを書き込み、公開URLを返す。
func (s *GCSStore) Put(ctx context.Context, objectName, contentType string, r io.Reader) (string, error) {
	w := s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "no-cache"
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("オブジェクトの書き込みに失敗しました: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("オブジェクトのクローズに失敗しました: %w", err)
	}
	return publicURL(s.bucket, objectName), nil
}

// Close はGCSクライアントを閉じる。
func (s *GCSStore) Close() error {
	return s.client.Close()
}

// publicURL はバケット名とオブジェクト名から公開URLを組み立てる。
func publicURL(bucket, objectName string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, objectName)
}

// 拡張子ごとに許可するContent-Type。宣言されたContent-Typeが
// このカテゴリの値に含まれない場合はアップロードを拒否する。
var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

var documentTypes = map[string]string{
	".pdf":  "application/pdf",
	".hwp":  "application/x-hwp",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// UploadResult はアップロード結果。
type UploadResult struct {
	URL         string `json:"url"`
	ObjectName  string `json:"object_name"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Service はファイルアップロードのビジネスロジックを提供する。
type Service struct {
	store   ObjectStore
	maxSize int64
}

// NewService はアップロードサービスを生成する。maxSizeMBは1ファイルの上限サイズ。
func NewService(store ObjectStore, maxSizeMB int) *Service {
	return &Service{
		store:   store,
		maxSize: int64(maxSizeMB) * 1024 * 1024,
	}
}

// UploadImage は画像ファイルをアップロードする。
func (s *Service) UploadImage(ctx context.Context, fh *multipart.FileHeader) (*UploadResult, error) {
	return s.upload(ctx, fh, imageTypes, "images")
}

// UploadDocument は文書ファイル(pdf/hwp/xls/xlsx)をアップロードする。
func (s *Service) UploadDocument(ctx context.Context, fh *multipart.FileHeader) (*UploadResult, error) {
	return s.upload(ctx, fh, documentTypes, "documents")
}

func (s *Service) upload(ctx context.Context, fh *multipart.FileHeader, allowed map[string]string, prefix string) (*UploadResult, error) {
	if s.store == nil {
		return nil, fmt.Errorf("アップロードストレージが設定されていません")
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	contentType, ok := allowed[ext]
	if !ok {
		return nil, model.NewUploadRejectedError("許可されていない拡張子です: " + ext)
	}
	if fh.Size > s.maxSize {
		return nil, model.NewUploadRejectedError(fmt.Sprintf("ファイルサイズが上限(%dバイト)を超えています", s.maxSize))
	}
	if declared := fh.Header.Get("Content-Type"); declared != "" && !allowedContentType(declared, allowed) {
		return nil, model.NewUploadRejectedError("許可されていないContent-Typeです: " + declared)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("アップロードファイルのオープンに失敗しました: %w", err)
	}
	defer f.Close()

	objectName := prefix + "/" + uuid.New().String() + ext
	url, err := s.store.Put(ctx, objectName, contentType, f)
	if err != nil {
		return nil, fmt.Errorf("オブジェクトのアップロードに失敗しました: %w", err)
	}

	return &UploadResult{
		URL:         url,
		ObjectName:  objectName,
		FileName:    fh.Filename,
		ContentType: contentType,
		Size:        fh.Size,
	}, nil
}

func allowedContentType(declared string, allowed map[string]string) bool {
	// "image/png; charset=..." のようなパラメータ付きは型部分だけ比較する
	if i := strings.Index(declared, ";"); i >= 0 {
		declared = declared[:i]
	}
	declared = strings.TrimSpace(strings.ToLower(declared))
	for _, ct := range allowed {
		if declared == ct {
			return true
		}
	}
	return false
}
