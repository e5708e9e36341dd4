package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"fileserver/internal/config"
	"fileserver/internal/fsroot"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間
const shutdownTimeout = 5 * time.Second

// Server はファイル配信用のTCPサーバーを管理する構造体
type Server struct {
	config *config.Config
	root   *fsroot.Root
	stats  *Stats
	admin  *http.Server

	mu         sync.Mutex
	listener   net.Listener
	stopAccept context.CancelFunc
	closing    bool
	conns      sync.WaitGroup

	shutdownOnce sync.Once
	shutdownErr  error
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config) (*Server, error) {
	root, err := fsroot.New(cfg.Files.Root)
	if err != nil {
		return nil, fmt.Errorf("配信ルートの準備に失敗: %w", err)
	}

	s := &Server{
		config: cfg,
		root:   root,
		stats:  newStats(),
	}

	if cfg.AdminEnabled() {
		s.admin = &http.Server{
			Addr:         cfg.AdminAddress(),
			Handler:      s.AdminRouter(),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
	}

	return s, nil
}

// Stats は接続の統計を返す
func (s *Server) Stats() *Stats {
	return s.stats
}

// Addr はリッスン中のアドレスを返す（起動前は nil）
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start はサーバーを起動する
// コンテキストのキャンセルかシグナルを受けるとグレースフルにシャットダウンする
func (s *Server) Start(ctx context.Context) error {
	// 失敗したらすぐ分かるよう先にバインドする
	ln, err := net.Listen("tcp", s.config.ServerAddress())
	if err != nil {
		return fmt.Errorf("サーバーの起動に失敗: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	// ファイル配信
	serveDone := make(chan struct{})
	g.Go(func() error {
		defer close(serveDone)
		return s.Serve(ln)
	})

	// 管理API
	if s.admin != nil {
		g.Go(func() error {
			log.Printf("管理APIを起動しています: %s", s.admin.Addr)
			if err := s.admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("管理APIの起動に失敗: %w", err)
			}
			return nil
		})
	}

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// コンテキストかシグナルを待つ
	select {
	case <-gctx.Done():
		if ctx.Err() != nil {
			log.Println("コンテキストがキャンセルされました")
		}
	case <-serveDone:
	case sig := <-sigCh:
		log.Printf("シグナルを受信しました: %v", sig)
	}

	// グレースフルシャットダウン
	shutdownErr := s.Shutdown()
	if err := g.Wait(); err != nil {
		return err
	}
	return shutdownErr
}

// Serve は ln で接続を受け付け、それぞれを別のゴルーチンで処理する
// 同時に処理する接続数は MaxConnections で制限される
func (s *Server) Serve(ln net.Listener) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		_ = ln.Close()
		return nil
	}
	s.listener = ln
	s.stopAccept = cancel
	s.mu.Unlock()

	log.Printf("ファイルサーバーを起動しています: %s (root: %s)", ln.Addr(), s.root.Dir())

	// 上限に達している間は受け付けを止める
	sem := semaphore.NewWeighted(int64(s.config.Server.MaxConnections))

	var delay time.Duration
	for {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil
		}

		conn, err := ln.Accept()
		if err != nil {
			sem.Release(1)
			if s.isClosing() {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("リスナーが閉じられました: %w", err)
			}

			// 一時的な失敗とみなして待ってから再試行する
			delay = nextDelay(delay)
			log.Printf("接続の受け付けに失敗しました: %v (%v後に再試行)", err, delay)
			time.Sleep(delay)
			continue
		}
		delay = 0

		if !s.track() {
			sem.Release(1)
			_ = conn.Close()
			return nil
		}
		go func() {
			defer s.conns.Done()
			defer sem.Release(1)
			s.serveConn(conn)
		}()
	}
}

// Shutdown はサーバーをグレースフルにシャットダウンする
// 新しい接続の受け付けを止め、処理中の接続の完了を待つ
// 2回目以降の呼び出しは最初の結果を返す
func (s *Server) Shutdown() error {
	s.shutdownOnce.Do(func() {
		s.shutdownErr = s.shutdown()
	})
	return s.shutdownErr
}

func (s *Server) shutdown() error {
	log.Println("サーバーをシャットダウンしています...")

	// 5秒のタイムアウトを設定
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.mu.Lock()
	s.closing = true
	ln := s.listener
	if s.stopAccept != nil {
		s.stopAccept()
	}
	s.mu.Unlock()

	var errs []error
	if ln != nil {
		if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, fmt.Errorf("リスナーのクローズに失敗: %w", err))
		}
	}

	if s.admin != nil {
		if err := s.admin.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("管理APIのシャットダウンに失敗: %w", err))
		}
	}

	// 処理中の接続を待つ
	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("処理中の接続の完了待ちがタイムアウト: %w", ctx.Err()))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("サーバーのシャットダウンに失敗: %w", err)
	}

	log.Println("サーバーが正常にシャットダウンされました")
	return nil
}

// track は処理中の接続として登録する
// シャットダウン中は登録せず false を返す
func (s *Server) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closing {
		return false
	}
	s.conns.Add(1)
	return true
}

func (s *Server) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// nextDelay は受け付け失敗時の待ち時間を返す（5ms から倍々で最大1秒）
func nextDelay(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	if d *= 2; d > time.Second {
		return time.Second
	}
	return d
}
