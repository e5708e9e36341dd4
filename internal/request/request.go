// Package request は接続から HTTP リクエスト行を読み取り、要求パスを取り出す。
//
// ヘッダーやクエリ文字列は解釈しない。リクエスト行より後のバイト列の
// 読み捨ては接続を閉じる側で行う。
package request

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

var (
	// ErrMalformed はリクエスト行から要求パスを取り出せないことを表す
	ErrMalformed = errors.New("malformed request")
	// ErrTooLarge はリクエスト行が上限を超えたことを表す
	ErrTooLarge = errors.New("request line too large")
)

// minBufferSize は bufio.Reader が受け付ける最小サイズ
const minBufferSize = 16

// Request は解析済みのリクエスト行
type Request struct {
	Method string // メソッド（検証しない）
	Target string // 生のリクエストターゲット
	Path   string // パーセントデコード済みの要求パス
	Proto  string // プロトコル（省略されている場合は空）
}

// Read は r からリクエスト行を読み取り、解析する
// maxBytes を超えても改行が見つからない場合は ErrTooLarge を返す
func Read(r io.Reader, maxBytes int) (*Request, error) {
	if maxBytes < minBufferSize {
		maxBytes = minBufferSize
	}

	br := bufio.NewReaderSize(r, maxBytes)
	line, err := readLine(br)
	if err != nil {
		return nil, err
	}

	return Parse(line)
}

// readLine は改行までの1行を読み取る
func readLine(br *bufio.Reader) ([]byte, error) {
	line, err := br.ReadSlice('\n')
	switch {
	case err == nil:
		return line, nil
	case errors.Is(err, bufio.ErrBufferFull):
		return nil, ErrTooLarge
	case errors.Is(err, io.EOF):
		// 改行なしで切断された場合は読めた分を1行として扱う
		if len(line) == 0 {
			return nil, fmt.Errorf("%w: empty request", ErrMalformed)
		}
		return line, nil
	default:
		return nil, fmt.Errorf("リクエストの読み込みに失敗: %w", err)
	}
}

// Parse はリクエスト行を解析する
// 不正な UTF-8 は置換文字に変換され、2番目のトークンが要求パスになる
func Parse(raw []byte) (*Request, error) {
	line := decodeLossy(raw)
	line = strings.TrimRight(line, "\r\n")

	parts := strings.Split(line, " ")
	if len(parts) < 2 || parts[1] == "" {
		return nil, fmt.Errorf("%w: %q", ErrMalformed, line)
	}

	req := &Request{
		Method: parts[0],
		Target: parts[1],
	}
	if len(parts) > 2 {
		req.Proto = parts[2]
	}

	path, err := DecodePath(req.Target)
	if err != nil {
		return nil, err
	}
	req.Path = path

	return req, nil
}

// DecodePath はリクエストターゲットから要求パスを取り出す
// クエリ文字列は解釈せずに切り捨てる
func DecodePath(target string) (string, error) {
	if i := strings.IndexByte(target, '?'); i >= 0 {
		target = target[:i]
	}

	path, err := url.PathUnescape(target)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return path, nil
}

// decodeLossy は b を UTF-8 として解釈し、不正なバイト列を U+FFFD に置き換える
func decodeLossy(b []byte) string {
	s, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		// UTF8 デコーダは置換のみ行うためここには来ない
		return strings.ToValidUTF8(string(b), "\uFFFD")
	}
	return string(s)
}
