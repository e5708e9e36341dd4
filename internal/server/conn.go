package server

import (
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"fileserver/internal/fsroot"
	"fileserver/internal/listing"
	"fileserver/internal/request"

	"github.com/google/uuid"
)

const (
	// lingerTimeout は応答後に残りのリクエストを読み捨てる時間の上限
	lingerTimeout = 500 * time.Millisecond
	// maxLingerBytes は応答後に読み捨てるバイト数の上限
	maxLingerBytes = 256 << 10
)

// serveConn は1接続を処理して結果を記録する
// どの失敗もこの接続の中で完結し、受け付けループには影響しない
func (s *Server) serveConn(conn net.Conn) {
	defer closeConn(conn)

	res := s.handleConn(conn, uuid.NewString())
	s.stats.Record(res)
	logResult(conn.RemoteAddr(), res)
}

// handleConn はリクエスト行を読み、対応するレスポンスを書き出す
func (s *Server) handleConn(conn net.Conn, id string) (res Result) {
	start := time.Now()
	res.ID = id
	defer func() {
		res.Duration = time.Since(start)
	}()

	if d := s.config.Server.ReadTimeout; d > 0 {
		_ = conn.SetReadDeadline(start.Add(d))
	}

	var resp *Response
	req, err := request.Read(conn, s.config.Server.MaxRequestBytes)
	if err != nil {
		res.Kind = kindForRequestError(err)
		res.Err = err
		if res.Kind == KindIOFailure {
			// 読み込み自体に失敗した接続には応答しない
			return res
		}
		resp = errorResponse(res.Kind)
	} else {
		res.Path = req.Path
		log.Printf("[%s] リクエストパス: %s", id, req.Path)

		target := s.root.Resolve(req.Path)
		res.Kind = kindForTarget(target.Kind)

		resp, err = s.respond(id, target)
		if err != nil {
			res.Kind = KindIOFailure
			res.Err = err
			resp = errorResponse(KindIOFailure)
		}
	}

	if d := s.config.Server.WriteTimeout; d > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(d))
	}

	n, err := resp.WriteTo(conn)
	res.Bytes = n
	if err != nil {
		res.Kind = KindIOFailure
		res.Err = err
		return res
	}
	res.Status = resp.Status

	return res
}

// respond は解決結果に対応するレスポンスを作成する
func (s *Server) respond(id string, t fsroot.Target) (*Response, error) {
	switch t.Kind {
	case fsroot.KindRoot, fsroot.KindDir:
		return s.respondListing(id, t)

	case fsroot.KindFile:
		data, err := os.ReadFile(t.FSPath)
		if err != nil {
			return nil, fmt.Errorf("ファイルの読み込みに失敗 (%s): %w", t.SitePath, err)
		}
		return fileResponse(data), nil

	case fsroot.KindForbidden:
		return errorResponse(KindForbidden), nil

	default:
		return errorResponse(KindNotFound), nil
	}
}

// respondListing はディレクトリ一覧のレスポンスを作成する
func (s *Server) respondListing(id string, t fsroot.Target) (*Response, error) {
	entries, err := s.root.ReadDir(t)
	if err != nil {
		return nil, err
	}

	if s.config.Listing.DirsFirst {
		fsroot.DirsFirst(entries)
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.SitePath
	}
	log.Printf("[%s] ディレクトリ一覧: %v", id, names)

	body, err := listing.Render(listing.Page{
		Title:   t.SitePath,
		ShowUp:  t.Kind == fsroot.KindDir,
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}

	return htmlResponse(http.StatusOK, body), nil
}

// closeConn は送信側を閉じ、未読のリクエストを読み捨ててから接続を閉じる
// 未読データを残したまま閉じると RST が送られ、クライアントが応答を失う
func closeConn(conn net.Conn) {
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		if err := cw.CloseWrite(); err == nil {
			_ = conn.SetReadDeadline(time.Now().Add(lingerTimeout))
			_, _ = io.CopyN(io.Discard, conn, maxLingerBytes)
		}
	}
	_ = conn.Close()
}

// logResult は1接続の処理結果をログに出力する
func logResult(remote net.Addr, res Result) {
	if res.Err != nil {
		log.Printf("[%s] %s %q -> %d %s (%d bytes, %v): %v",
			res.ID, remote, res.Path, res.Status, res.Kind, res.Bytes, res.Duration, res.Err)
		return
	}
	log.Printf("[%s] %s %q -> %d %s (%d bytes, %v)",
		res.ID, remote, res.Path, res.Status, res.Kind, res.Bytes, res.Duration)
}
