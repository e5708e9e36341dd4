// Package main はファイルサーバーコマンドの実装です
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"fileserver/internal/config"
	"fileserver/internal/server"

	"github.com/fatih/color"
)

func main() {
	// コマンドラインオプション
	var (
		host       = flag.String("host", "", "サーバーのホスト (デフォルト: 127.0.0.1)")
		port       = flag.Int("port", 0, "サーバーのポート (デフォルト: 8080)")
		root       = flag.String("root", "", "配信するルートディレクトリ (デフォルト: ./public)")
		configFile = flag.String("config", "", "設定ファイルのパス (.yaml/.yml/.toml)")
		help       = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help {
		fmt.Println("fileserver")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  server [オプション]")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	// 設定を読み込む
	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// コマンドラインオプションで設定を上書き
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *root != "" {
		cfg.Files.Root = *root
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("設定が不正です: %v", err)
	}

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("サーバーの作成に失敗しました: %v", err)
	}

	printBanner(cfg)

	// サーバーを起動
	if err := srv.Start(context.Background()); err != nil {
		log.Fatalf("サーバーの起動に失敗しました: %v", err)
	}
}

// loadConfig は -config が指定されていればそのファイルを、なければ環境変数から設定を読み込む
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func printBanner(cfg *config.Config) {
	title := color.New(color.FgCyan, color.Bold)
	label := color.New(color.FgYellow)

	title.Println("fileserver")
	label.Print("  listen: ")
	fmt.Printf("http://%s/\n", cfg.ServerAddress())
	label.Print("  root:   ")
	fmt.Println(cfg.Files.Root)
	if cfg.AdminEnabled() {
		label.Print("  admin:  ")
		fmt.Printf("http://%s/api/status\n", cfg.AdminAddress())
	}
}
