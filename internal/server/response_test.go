package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"fileserver/internal/fsroot"
	"fileserver/internal/request"
)

func TestStatusLine(t *testing.T) {
	testCases := []struct {
		status int
		want   string
	}{
		{http.StatusOK, "HTTP/1.1 200 OK"},
		{http.StatusNotFound, "HTTP/1.1 404 NOT FOUND"},
		{http.StatusForbidden, "HTTP/1.1 403 FORBIDDEN"},
		{http.StatusBadRequest, "HTTP/1.1 400 BAD REQUEST"},
		{http.StatusRequestURITooLong, "HTTP/1.1 414 URI TOO LONG"},
		{http.StatusInternalServerError, "HTTP/1.1 500 INTERNAL SERVER ERROR"},
		{http.StatusServiceUnavailable, "HTTP/1.1 503 SERVICE UNAVAILABLE"},
	}

	for _, tc := range testCases {
		if got := statusLine(tc.status); got != tc.want {
			t.Errorf("statusLine(%d) = %q, want %q", tc.status, got, tc.want)
		}
	}

	// 結果の種類が返すステータスはすべて理由句が固定されている
	for k := Kind(0); k < kindCount; k++ {
		if _, ok := reasonPhrases[k.Status()]; !ok {
			t.Errorf("%s (%d) の理由句がありません", k, k.Status())
		}
	}
}

func TestResponseWriteTo(t *testing.T) {
	testCases := []struct {
		name string
		resp *Response
		want string
	}{
		{
			name: "ファイル",
			resp: &Response{Status: 200, ContentType: "text/plain", ContentLength: 5, Body: []byte("hello")},
			want: "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 5\r\n\r\nhello",
		},
		{
			name: "一覧",
			resp: htmlResponse(200, []byte("<html><body></body></html>")),
			want: "HTTP/1.1 200 OK\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n<html><body></body></html>",
		},
		{
			name: "404",
			resp: errorResponse(KindNotFound),
			want: "HTTP/1.1 404 NOT FOUND\r\nContent-Type: text/html; charset=UTF-8\r\n\r\nFile not found",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := tc.resp.WriteTo(&buf)
			if err != nil {
				t.Fatalf("予期しないエラー: %v", err)
			}
			if buf.String() != tc.want {
				t.Errorf("出力が一致しません:\ngot  %q\nwant %q", buf.String(), tc.want)
			}
			if n != int64(len(tc.want)) {
				t.Errorf("書き込みバイト数が一致しません: got %d, want %d", n, len(tc.want))
			}
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestResponseWriteToError(t *testing.T) {
	_, err := errorResponse(KindNotFound).WriteTo(failingWriter{})
	if err == nil {
		t.Error("書き込みエラーが返されませんでした")
	}
}

func TestDetectContentType(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
		want string
	}{
		{"PNG", pngHeader, "image/png"},
		{"PDF", []byte("%PDF-1.4\n"), "application/pdf"},
		{"GIF", []byte("GIF89a"), "image/gif"},
		{"不明なバイナリ", []byte{0x00, 0x01, 0x02, 0x03, 0xfe}, "application/octet-stream"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := detectContentType(tc.data); got != tc.want {
				t.Errorf("Content-Type が一致しません: got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFileResponse(t *testing.T) {
	resp := fileResponse(pngHeader)

	if resp.Status != http.StatusOK {
		t.Errorf("ステータスが一致しません: got %d", resp.Status)
	}
	if resp.ContentLength != int64(len(pngHeader)) {
		t.Errorf("Content-Length が一致しません: got %d, want %d", resp.ContentLength, len(pngHeader))
	}
	if resp.ContentType != "image/png" {
		t.Errorf("Content-Type が一致しません: got %q", resp.ContentType)
	}
}

func TestKindMapping(t *testing.T) {
	targets := map[fsroot.Kind]Kind{
		fsroot.KindRoot:      KindOK,
		fsroot.KindFile:      KindOK,
		fsroot.KindDir:       KindOK,
		fsroot.KindMissing:   KindNotFound,
		fsroot.KindForbidden: KindForbidden,
	}
	for in, want := range targets {
		if got := kindForTarget(in); got != want {
			t.Errorf("kindForTarget(%s) = %s, want %s", in, got, want)
		}
	}

	requestErrors := []struct {
		err  error
		want Kind
	}{
		{fmt.Errorf("%w: x", request.ErrMalformed), KindMalformedRequest},
		{request.ErrTooLarge, KindRequestTooLarge},
		{errors.New("connection reset"), KindIOFailure},
	}
	for _, tc := range requestErrors {
		if got := kindForRequestError(tc.err); got != tc.want {
			t.Errorf("kindForRequestError(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}

	// エラー本文はすべての失敗種別に定義されている
	for k := KindNotFound; k < kindCount; k++ {
		if errorBodies[k] == "" {
			t.Errorf("%s のエラー本文がありません", k)
		}
	}
}

func TestStats(t *testing.T) {
	stats := newStats()
	stats.Record(Result{Kind: KindOK, Bytes: 100})
	stats.Record(Result{Kind: KindOK, Bytes: 50})
	stats.Record(Result{Kind: KindNotFound, Bytes: 10})

	snap := stats.Snapshot()
	if snap.Connections != 3 {
		t.Errorf("接続数が一致しません: got %d, want 3", snap.Connections)
	}
	if snap.BytesSent != 160 {
		t.Errorf("送信バイト数が一致しません: got %d, want 160", snap.BytesSent)
	}
	if got := snap.Results["ok"]; got != 2 {
		t.Errorf("ok の件数が一致しません: got %d, want 2", got)
	}
	if got := snap.Results["not_found"]; got != 1 {
		t.Errorf("not_found の件数が一致しません: got %d, want 1", got)
	}
	if got := snap.Results["io_failure"]; got != 0 {
		t.Errorf("io_failure の件数が一致しません: got %d, want 0", got)
	}
}
