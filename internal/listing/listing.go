// Package listing はディレクトリ一覧の HTML を生成する
package listing

import (
	"bytes"
	"fmt"
	"net/url"
	"path"

	"fileserver/internal/fsroot"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Page はディレクトリ一覧ページの内容
type Page struct {
	Title   string         // 見出しに表示するサイト内パス
	ShowUp  bool           // 親ディレクトリへのリンクを表示する（リンク先は Title の親）
	Entries []fsroot.Entry // 表示する項目
}

// Render は一覧ページを HTML として出力する
//
// 出力形式:
//
//	<html><body><h1>TITLE</h1>
//	<a href="PARENT">..</a><br/>
//	<a href="HREF">NAME</a><br/>
//	...</body></html>
//
// 名前とリンク先はすべてエスケープされる。
func Render(p Page) ([]byte, error) {
	body := element(atom.Body)

	h1 := element(atom.H1)
	h1.AppendChild(text(p.Title))
	body.AppendChild(h1)
	body.AppendChild(text("\n"))

	if p.ShowUp {
		appendLink(body, Href(path.Dir(p.Title)), "..")
		body.AppendChild(text("\n"))
	}

	for i, e := range p.Entries {
		if i > 0 {
			body.AppendChild(text("\n"))
		}
		appendLink(body, Href(e.SitePath), e.Name)
	}

	doc := element(atom.Html)
	doc.AppendChild(body)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("一覧のレンダリングに失敗: %w", err)
	}
	return buf.Bytes(), nil
}

// Href はサイト内パスをリンク先として使える形にエスケープする
func Href(sitePath string) string {
	u := url.URL{Path: sitePath}
	return u.EscapedPath()
}

func appendLink(parent *html.Node, href, label string) {
	a := element(atom.A)
	a.Attr = []html.Attribute{{Key: "href", Val: href}}
	a.AppendChild(text(label))

	parent.AppendChild(a)
	parent.AppendChild(element(atom.Br))
}

func element(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
