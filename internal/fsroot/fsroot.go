// Package fsroot は配信ルート配下に閉じたパス解決とディレクトリ列挙を提供する。
//
// 要求パスはルートに連結する前に正規化され、ルートの外を指す結果
// （".." による脱出、ルート外へのシンボリックリンク）は KindForbidden に分類される。
package fsroot

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Kind は解決結果の分類
type Kind int

const (
	KindMissing   Kind = iota // 存在しない、またはファイルでもディレクトリでもない
	KindRoot                  // 配信ルートそのもの
	KindFile                  // 通常ファイル
	KindDir                   // ルート以外のディレクトリ
	KindForbidden             // ルートの外を指している
)

// String はログ出力用の名前を返す
func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	case KindForbidden:
		return "forbidden"
	default:
		return "missing"
	}
}

// Target は要求パスの解決結果
type Target struct {
	Kind     Kind
	FSPath   string // ファイルシステム上の絶対パス
	SitePath string // "/" から始まる正規化済みのサイト内パス
}

// Entry はディレクトリ一覧の1項目
type Entry struct {
	Name     string // 末尾の要素名
	SitePath string // ルートからのサイト内パス
	IsDir    bool
}

// Root は読み取り専用の配信ルート
type Root struct {
	dir string
}

// New は dir を配信ルートとする Root を作成する
// dir は存在するディレクトリでなければならない
func New(dir string) (*Root, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("ルートの絶対パス化に失敗: %w", err)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("ルートディレクトリを開けません: %w", err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("ルートディレクトリを開けません: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("ルートがディレクトリではありません: %s", resolved)
	}

	return &Root{dir: resolved}, nil
}

// Dir はルートの絶対パスを返す
func (r *Root) Dir() string {
	return r.dir
}

// Resolve は要求パス p をルート配下のパスに解決し、分類する
func (r *Root) Resolve(p string) Target {
	if p == "" || p == "/" {
		return r.rootTarget()
	}

	joined := filepath.Join(r.dir, filepath.FromSlash(p))
	rel, ok := r.rel(joined)
	if !ok {
		return Target{Kind: KindForbidden, FSPath: joined, SitePath: p}
	}
	if rel == "." {
		return r.rootTarget()
	}

	t := Target{
		Kind:     KindMissing,
		FSPath:   joined,
		SitePath: "/" + filepath.ToSlash(rel),
	}

	// シンボリックリンクを解決してもルート配下であること
	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return t
	}
	if _, ok := r.rel(resolved); !ok {
		t.Kind = KindForbidden
		return t
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return t
	}

	switch {
	case info.Mode().IsRegular():
		t.Kind = KindFile
	case info.IsDir():
		t.Kind = KindDir
	}
	return t
}

// ReadDir は t の直下の項目を名前順で返す
// t は KindRoot または KindDir でなければならない
func (r *Root) ReadDir(t Target) ([]Entry, error) {
	if t.Kind != KindRoot && t.Kind != KindDir {
		return nil, fmt.Errorf("ディレクトリではありません: %s (%s)", t.SitePath, t.Kind)
	}

	dirEntries, err := os.ReadDir(t.FSPath)
	if err != nil {
		return nil, fmt.Errorf("ディレクトリの読み込みに失敗: %w", err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		sitePath := path.Join(t.SitePath, de.Name())

		// ルート相対のパスが空になる項目は除外
		if strings.TrimPrefix(sitePath, "/") == "" {
			continue
		}

		entries = append(entries, Entry{
			Name:     de.Name(),
			SitePath: sitePath,
			IsDir:    isDir(t.FSPath, de),
		})
	}

	return entries, nil
}

// DirsFirst は entries をディレクトリ優先で並べ替える
// 同じ種類の中では元の順序を保つ
func DirsFirst(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].IsDir && !entries[j].IsDir
	})
}

func (r *Root) rootTarget() Target {
	return Target{Kind: KindRoot, FSPath: r.dir, SitePath: "/"}
}

// rel は target のルートからの相対パスを返す
// target がルートの外にある場合は false を返す
func (r *Root) rel(target string) (string, bool) {
	rel, err := filepath.Rel(r.dir, target)
	if err != nil {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

// isDir はシンボリックリンクの先も含めてディレクトリかどうかを判定する
func isDir(parent string, de fs.DirEntry) bool {
	if de.Type()&fs.ModeSymlink == 0 {
		return de.IsDir()
	}

	info, err := os.Stat(filepath.Join(parent, de.Name()))
	if err != nil {
		return false
	}
	return info.IsDir()
}
