package server

import (
	"errors"
	"net/http"
	"time"

	"fileserver/internal/fsroot"
	"fileserver/internal/request"
)

// Kind は1接続の処理結果の種類
type Kind int

const (
	KindOK               Kind = iota // ファイルまたは一覧を返した
	KindNotFound                     // 対象が存在しない
	KindForbidden                    // ルートの外を指している
	KindMalformedRequest             // リクエスト行を解釈できない
	KindRequestTooLarge              // リクエスト行が上限を超えた
	KindIOFailure                    // 読み書きやファイル操作に失敗した

	kindCount
)

// String はログ出力用の名前を返す
func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindMalformedRequest:
		return "malformed_request"
	case KindRequestTooLarge:
		return "request_too_large"
	case KindIOFailure:
		return "io_failure"
	default:
		return "unknown"
	}
}

// Status は結果の種類に対応する HTTP ステータスコードを返す
func (k Kind) Status() int {
	switch k {
	case KindOK:
		return http.StatusOK
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindMalformedRequest:
		return http.StatusBadRequest
	case KindRequestTooLarge:
		return http.StatusRequestURITooLong
	default:
		return http.StatusInternalServerError
	}
}

// Result は1接続の処理結果
// 接続ごとのハンドラが返し、受け付けループが記録する
type Result struct {
	ID       string        // リクエストID
	Kind     Kind          // 結果の種類
	Status   int           // 送信したステータスコード（送信できなかった場合は0）
	Path     string        // デコード済みの要求パス
	Bytes    int64         // 送信したバイト数
	Duration time.Duration // 処理時間
	Err      error         // 失敗の原因
}

// kindForTarget は解決結果から結果の種類を決める
func kindForTarget(k fsroot.Kind) Kind {
	switch k {
	case fsroot.KindRoot, fsroot.KindFile, fsroot.KindDir:
		return KindOK
	case fsroot.KindForbidden:
		return KindForbidden
	default:
		return KindNotFound
	}
}

// kindForRequestError はリクエスト読み込みエラーを分類する
func kindForRequestError(err error) Kind {
	switch {
	case errors.Is(err, request.ErrTooLarge):
		return KindRequestTooLarge
	case errors.Is(err, request.ErrMalformed):
		return KindMalformedRequest
	default:
		return KindIOFailure
	}
}
