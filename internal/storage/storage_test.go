package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
)

type stubPutter struct {
	calls int
	err   error
	last  *s3.PutObjectInput
}

func (s *stubPutter) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	s.calls++
	s.last = params
	if s.err != nil {
		return nil, s.err
	}
	return &s3.PutObjectOutput{ETag: aws.String(`"abc123"`)}, nil
}

func TestPatientKeySanitizesName(t *testing.T) {
	id := uuid.New()
	key := PatientKey(id, "files", "../../exame final (1).pdf")
	if !strings.HasPrefix(key, "patients/"+id.String()+"/files/") {
		t.Fatalf("unexpected prefix: %s", key)
	}
	if strings.Contains(key, "..") && !strings.HasSuffix(key, ".pdf") {
		t.Fatalf("unexpected key: %s", key)
	}
	if strings.ContainsAny(key[strings.LastIndex(key, "/")+1:], " ()") {
		t.Fatalf("expected unsafe characters replaced: %s", key)
	}
}

func TestNoopUploaderReturnsSyntheticPath(t *testing.T) {
	res, err := NoopUploader{}.Upload(context.Background(), UploadInput{Key: "patients/1/photo/x.jpg"})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.URL != "/uploads/patients/1/photo/x.jpg" {
		t.Fatalf("unexpected url: %s", res.URL)
	}
}

func TestS3UploaderUsesPublicURL(t *testing.T) {
	putter := &stubPutter{}
	u := newS3Uploader(S3Config{Bucket: "clinica", PublicURL: "https://cdn.clinica.com.br/"}, putter)

	res, err := u.Upload(context.Background(), UploadInput{Key: "patients/1/photo/a.jpg", Body: []byte("img"), ContentType: "image/jpeg"})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.URL != "https://cdn.clinica.com.br/patients/1/photo/a.jpg" {
		t.Fatalf("unexpected url: %s", res.URL)
	}
	if res.ETag != "abc123" {
		t.Fatalf("unexpected etag: %s", res.ETag)
	}
	if aws.ToString(putter.last.Bucket) != "clinica" || aws.ToString(putter.last.ContentType) != "image/jpeg" {
		t.Fatalf("unexpected put input: %+v", putter.last)
	}
}

func TestS3UploaderOpensCircuitAfterFailures(t *testing.T) {
	putter := &stubPutter{err: errors.New("timeout")}
	u := newS3Uploader(S3Config{Bucket: "clinica", Endpoint: "http://minio:9000"}, putter)

	for i := 0; i < 3; i++ {
		if _, err := u.Upload(context.Background(), UploadInput{Key: "k", Body: []byte("x")}); err == nil {
			t.Fatalf("expected failure on attempt %d", i)
		}
	}

	_, err := u.Upload(context.Background(), UploadInput{Key: "k", Body: []byte("x")})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if putter.calls != 3 {
		t.Fatalf("expected 3 calls to S3, got %d", putter.calls)
	}
}

func TestS3UploaderRejectsEmptyBody(t *testing.T) {
	u := newS3Uploader(S3Config{Bucket: "clinica"}, &stubPutter{})
	if _, err := u.Upload(context.Background(), UploadInput{Key: "k"}); err == nil {
		t.Fatalf("expected error for empty body")
	}
}
