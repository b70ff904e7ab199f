package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/hitoshi/careerhub/internal/model"
)

// mockObjectStore はテスト用のObjectStoreモック実装
type mockObjectStore struct {
	putFn func(ctx context.Context, objectName, contentType string, r io.Reader) (string, error)

	objectNames  []string
	contentTypes []string
}

var _ ObjectStore = (*mockObjectStore)(nil)

func (m *mockObjectStore) Put(ctx context.Context, objectName, contentType string, r io.Reader) (string, error) {
	m.objectNames = append(m.objectNames, objectName)
	m.contentTypes = append(m.contentTypes, contentType)
	if m.putFn != nil {
		return m.putFn(ctx, objectName, contentType, r)
	}
	return publicURL("test-bucket", objectName), nil
}

// buildFileHeader はmultipartフォームを実際に組み立ててFileHeaderを取り出す。
func buildFileHeader(t *testing.T, filename, contentType string, body []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("パートの作成に失敗: %v", err)
	}
	if _, err := part.Write(body); err != nil {
		t.Fatalf("パートの書き込みに失敗: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("マルチパートのクローズに失敗: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/uploads/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if err := req.ParseMultipartForm(32 << 20); err != nil {
		t.Fatalf("マルチパートのパースに失敗: %v", err)
	}
	return req.MultipartForm.File["file"][0]
}

func TestUploadImage_Success(t *testing.T) {
	store := &mockObjectStore{}
	svc := NewService(store, 10)

	fh := buildFileHeader(t, "photo.PNG", "image/png", []byte("png-bytes"))

	result, err := svc.UploadImage(context.Background(), fh)
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if len(store.objectNames) != 1 {
		t.Fatalf("Putの呼び出し回数 = %d, want 1", len(store.objectNames))
	}
	name := store.objectNames[0]
	if !strings.HasPrefix(name, "images/") {
		t.Errorf("オブジェクト名 = %s, images/プレフィックスであること", name)
	}
	if !strings.HasSuffix(name, ".png") {
		t.Errorf("オブジェクト名 = %s, 拡張子が小文字の.pngであること", name)
	}
	if store.contentTypes[0] != "image/png" {
		t.Errorf("ContentType = %s, want image/png", store.contentTypes[0])
	}
	if result.URL != "https://storage.googleapis.com/test-bucket/"+name {
		t.Errorf("URL = %s", result.URL)
	}
	if result.FileName != "photo.PNG" {
		t.Errorf("FileName = %s, want photo.PNG", result.FileName)
	}
	if result.Size != int64(len("png-bytes")) {
		t.Errorf("Size = %d, want %d", result.Size, len("png-bytes"))
	}
}

func TestUploadImage_RejectedExtension(t *testing.T) {
	store := &mockObjectStore{}
	svc := NewService(store, 10)

	fh := buildFileHeader(t, "malware.exe", "application/octet-stream", []byte("bin"))

	_, err := svc.UploadImage(context.Background(), fh)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUploadRejected {
		t.Fatalf("UPLOAD_REJECTEDであること: %v", err)
	}
	if len(store.objectNames) != 0 {
		t.Error("拒否時にPutが呼ばれないこと")
	}
}

func TestUploadImage_RejectedContentTypeMismatch(t *testing.T) {
	svc := NewService(&mockObjectStore{}, 10)

	// 拡張子はpngだが宣言されたContent-Typeがhtml
	fh := buildFileHeader(t, "page.png", "text/html", []byte("<html>"))

	_, err := svc.UploadImage(context.Background(), fh)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUploadRejected {
		t.Fatalf("UPLOAD_REJECTEDであること: %v", err)
	}
}

func TestUploadImage_RejectedOverSize(t *testing.T) {
	svc := NewService(&mockObjectStore{}, 0)

	fh := buildFileHeader(t, "big.jpg", "image/jpeg", []byte("jpeg-bytes"))

	_, err := svc.UploadImage(context.Background(), fh)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUploadRejected {
		t.Fatalf("UPLOAD_REJECTEDであること: %v", err)
	}
}

func TestUploadDocument_AllowedExtensions(t *testing.T) {
	tests := []struct {
		filename    string
		contentType string
		wantCT      string
	}{
		{"resume.pdf", "application/pdf", "application/pdf"},
		{"이력서.hwp", "application/x-hwp", "application/x-hwp"},
		{"sheet.xls", "application/vnd.ms-excel", "application/vnd.ms-excel"},
		{"sheet.xlsx", "", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			store := &mockObjectStore{}
			svc := NewService(store, 10)

			fh := buildFileHeader(t, tt.filename, tt.contentType, []byte("doc"))

			result, err := svc.UploadDocument(context.Background(), fh)
			if err != nil {
				t.Fatalf("予期しないエラー: %v", err)
			}
			if !strings.HasPrefix(store.objectNames[0], "documents/") {
				t.Errorf("オブジェクト名 = %s, documents/プレフィックスであること", store.objectNames[0])
			}
			if result.ContentType != tt.wantCT {
				t.Errorf("ContentType = %s, want %s", result.ContentType, tt.wantCT)
			}
		})
	}
}

func TestUploadDocument_ImageExtensionRejected(t *testing.T) {
	svc := NewService(&mockObjectStore{}, 10)

	// 画像は文書エンドポイントでは受け付けない
	fh := buildFileHeader(t, "photo.png", "image/png", []byte("png"))

	_, err := svc.UploadDocument(context.Background(), fh)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUploadRejected {
		t.Fatalf("UPLOAD_REJECTEDであること: %v", err)
	}
}

func TestUpload_StoreFailure(t *testing.T) {
	store := &mockObjectStore{
		putFn: func(ctx context.Context, objectName, contentType string, r io.Reader) (string, error) {
			return "", errors.New("gcs unavailable")
		},
	}
	svc := NewService(store, 10)

	fh := buildFileHeader(t, "photo.jpg", "image/jpeg", []byte("jpeg"))

	_, err := svc.UploadImage(context.Background(), fh)
	if err == nil {
		t.Fatal("エラーが返ること")
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		t.Errorf("インフラ障害はAPIエラーに変換しないこと: %v", err)
	}
}

func TestUpload_StoreNotConfigured(t *testing.T) {
	svc := NewService(nil, 10)

	fh := buildFileHeader(t, "photo.jpg", "image/jpeg", []byte("jpeg"))

	_, err := svc.UploadImage(context.Background(), fh)
	if err == nil {
		t.Fatal("ストア未設定ではエラーが返ること")
	}
}

func TestUpload_ObjectNamesUnique(t *testing.T) {
	store := &mockObjectStore{}
	svc := NewService(store, 10)

	for i := 0; i < 3; i++ {
		fh := buildFileHeader(t, "photo.jpg", "image/jpeg", []byte("jpeg"))
		if _, err := svc.UploadImage(context.Background(), fh); err != nil {
			t.Fatalf("予期しないエラー: %v", err)
		}
	}
	seen := map[string]bool{}
	for _, name := range store.objectNames {
		if seen[name] {
			t.Errorf("オブジェクト名が重複している: %s", name)
		}
		seen[name] = true
	}
}

func TestPublicURL(t *testing.T) {
	got := publicURL("my-bucket", "images/abc.png")
	want := "https://storage.googleapis.com/my-bucket/images/abc.png"
	if got != want {
		t.Errorf("publicURL = %s, want %s", got, want)
	}
}
