// Package server は、静的ファイルを配信するTCPサーバーを管理します。
//
// このパッケージは、接続の受け付け、リクエスト行の読み取り、
// 配信ルート配下のファイル・ディレクトリ一覧・404 の応答を担当します。
//
// 責務:
//   - TCPリスナーの起動と管理
//   - 接続ごとのリクエスト処理と結果（Result）の記録
//   - ファイル内容の配信（Content-Type はマジックバイトで判定）
//   - ディレクトリ一覧の配信
//   - 管理API（ヘルスチェック・ステータス）の提供
//
// 仕様:
//   - 1接続につき1リクエストを処理し、応答後に接続を閉じる
//   - 接続は個別のゴルーチンで処理し、同時接続数は設定で制限する
//   - ある接続の失敗は他の接続や受け付けループに影響しない
//   - 管理APIは gin を使用し、別ポートで待ち受ける
//   - グレースフルシャットダウンに対応
package server
