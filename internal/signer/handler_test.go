package signer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/hoopcoach/shot-coach/internal/s3util"
)

const validKey = "5b30ea2c-9f0f-4a9e-8c3a-000000000001/clip.mov"

type fakeSigner struct {
	url string
	err error
	key string
	ttl time.Duration
}

func (f *fakeSigner) SignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	f.key = key
	f.ttl = expiry
	return f.url, f.err
}

func post(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/get-signed-url", bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSignURL_Success(t *testing.T) {
	fake := &fakeSigner{url: "https://bucket.s3.amazonaws.com/signed"}
	h := NewHandler(fake)

	rec := post(t, h, `{"storageKey":"`+validKey+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if resp["signedUrl"] != fake.url {
		t.Errorf("signedUrl = %q, want %q", resp["signedUrl"], fake.url)
	}
	if fake.key != validKey {
		t.Errorf("signed key = %q, want %q", fake.key, validKey)
	}
	if fake.ttl != s3util.PlaybackURLTTL {
		t.Errorf("ttl = %v, want %v", fake.ttl, s3util.PlaybackURLTTL)
	}
}

func TestSignURL_RejectsInvalidKeys(t *testing.T) {
	h := NewHandler(&fakeSigner{})
	for _, body := range []string{
		`{}`,
		`{"storageKey":"../secrets"}`,
		`{"storageKey":"plain-file.mov"}`,
		`not json`,
	} {
		rec := post(t, h, body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestSignURL_SignerFailure(t *testing.T) {
	h := NewHandler(&fakeSigner{err: errors.New("presign blew up")})
	rec := post(t, h, `{"storageKey":"`+validKey+`"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "blew up") {
		t.Error("internal error detail leaked to the client")
	}
}

// Presigning is pure request signing, so it works offline with static
// credentials. This exercises the real s3util.Signer end to end.
func TestSignURL_RealPresigner(t *testing.T) {
	client := s3.New(s3.Options{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider("AKIAEXAMPLE", "secret", ""),
	})
	h := NewHandler(s3util.NewSigner(s3.NewPresignClient(client), "clips-bucket"))

	rec := post(t, h, `{"storageKey":"`+validKey+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	url := resp["signedUrl"]
	if !strings.Contains(url, "clips-bucket") || !strings.Contains(url, "X-Amz-Signature=") {
		t.Errorf("unexpected presigned URL: %s", url)
	}
	if !strings.Contains(url, "X-Amz-Expires=600") {
		t.Errorf("expected 600s expiry in URL: %s", url)
	}
}
