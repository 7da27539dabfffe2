// Package http は外部HTTP呼び出し（モデル取得・ストレージ・推論サーバー・Telegram）の共通処理を提供します。
package http

import (
	"net"
	"net/http"
	"time"
)

// NewHTTPClient は外部呼び出し用に設定されたHTTPクライアントを作成します。
//
// http.DefaultClient にはタイムアウトがないため、常にこのクライアントを使用すること。
// 推論サーバーへは同一ホストに繰り返し接続するため、ホストあたりのアイドル接続も多めに保持します。
func NewHTTPClient(timeout time.Duration) *http.Client {
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: t}
}
