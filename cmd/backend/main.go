// バックエンドサービスのエントリポイント。
// レコードのCRUDを担当する。すべての操作は認証サービスへの
// トークン検証を通過したリクエストのみが実行できる。
package main

import (
	"log"
	"os"

	"github.com/nao1215/authgate/internal/backend"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8082"
	}

	server, err := backend.NewServer(port)
	if err != nil {
		log.Fatalf("バックエンドサーバーの初期化に失敗: %v", err)
	}

	log.Printf("バックエンドサービスを起動します: :%s", port)
	if err := server.Run(); err != nil {
		log.Fatalf("バックエンドサービスの起動に失敗: %v", err)
	}
}
