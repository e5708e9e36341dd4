package server

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	// htmlContentType は一覧とエラー応答に使う Content-Type
	htmlContentType = "text/html; charset=UTF-8"
)

// reasonPhrases はステータス行に書き出す理由句
// http.StatusText の表記には依存しない
var reasonPhrases = map[int]string{
	http.StatusOK:                  "OK",
	http.StatusBadRequest:          "BAD REQUEST",
	http.StatusForbidden:           "FORBIDDEN",
	http.StatusNotFound:            "NOT FOUND",
	http.StatusRequestURITooLong:   "URI TOO LONG",
	http.StatusInternalServerError: "INTERNAL SERVER ERROR",
}

// errorBodies は結果の種類ごとのエラー本文
var errorBodies = map[Kind]string{
	KindNotFound:         "File not found",
	KindForbidden:        "Forbidden",
	KindMalformedRequest: "Bad request",
	KindRequestTooLarge:  "Request too large",
	KindIOFailure:        "Internal server error",
}

// Response は接続に書き出す HTTP/1.1 レスポンス
type Response struct {
	Status        int
	ContentType   string
	ContentLength int64 // 負の場合は Content-Length を送らない
	Body          []byte
}

// htmlResponse は Content-Length なしの HTML レスポンスを作成する
func htmlResponse(status int, body []byte) *Response {
	return &Response{
		Status:        status,
		ContentType:   htmlContentType,
		ContentLength: -1,
		Body:          body,
	}
}

// errorResponse は結果の種類に対応するエラーレスポンスを作成する
func errorResponse(k Kind) *Response {
	return htmlResponse(k.Status(), []byte(errorBodies[k]))
}

// fileResponse はファイル内容を返すレスポンスを作成する
func fileResponse(data []byte) *Response {
	return &Response{
		Status:        http.StatusOK,
		ContentType:   detectContentType(data),
		ContentLength: int64(len(data)),
		Body:          data,
	}
}

// detectContentType はファイル内容のマジックバイトから Content-Type を判定する
// 判定できない内容は application/octet-stream になる
func detectContentType(data []byte) string {
	return mimetype.Detect(data).String()
}

// statusLine は "HTTP/1.1 404 NOT FOUND" の形式のステータス行を返す
func statusLine(status int) string {
	reason, ok := reasonPhrases[status]
	if !ok {
		reason = strings.ToUpper(http.StatusText(status))
	}
	return fmt.Sprintf("HTTP/1.1 %d %s", status, reason)
}

// WriteTo はレスポンスを w に書き出す
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)

	fmt.Fprintf(bw, "%s\r\n", statusLine(r.Status))
	fmt.Fprintf(bw, "Content-Type: %s\r\n", r.ContentType)
	if r.ContentLength >= 0 {
		fmt.Fprintf(bw, "Content-Length: %d\r\n", r.ContentLength)
	}
	bw.WriteString("\r\n")
	bw.Write(r.Body)

	if err := bw.Flush(); err != nil {
		return cw.n, fmt.Errorf("レスポンスの書き込みに失敗: %w", err)
	}
	return cw.n, nil
}

// countingWriter は書き込んだバイト数を数える
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
