package objectstore

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestExportKey(t *testing.T) {
	got := ExportKey("user-1", "documents", "doc-1", "Quiz.docx")
	if got != "exports/user-1/documents/doc-1/Quiz.docx" {
		t.Fatalf("ExportKey() = %q", got)
	}
}

func TestNewRequiresEndpointAndBucket(t *testing.T) {
	if _, err := New(Config{Bucket: "b"}); err == nil {
		t.Fatal("expected error without endpoint")
	}
	if _, err := New(Config{Endpoint: "localhost:9000"}); err == nil {
		t.Fatal("expected error without bucket")
	}
}

func TestPresignedGetIsOffline(t *testing.T) {
	s, err := New(Config{
		Endpoint:  "localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio-secret",
		Bucket:    "testgem-exports",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	link, err := s.PresignedGet(context.Background(), ExportKey("u", "notes", "n1", "Lecture.pdf"), 15*time.Minute)
	if err != nil {
		t.Fatalf("PresignedGet() error = %v", err)
	}
	for _, fragment := range []string{
		"http://localhost:9000/testgem-exports/exports/u/notes/n1/Lecture.pdf",
		"X-Amz-Signature=",
		"X-Amz-Expires=900",
		"response-content-disposition=",
	} {
		if !strings.Contains(link, fragment) {
			t.Errorf("presigned url %q missing %q", link, fragment)
		}
	}
}
