// 認証サービスのエントリポイント。
// ユーザー登録・ログイン・JWTトークンの発行と検証を担当する。
// トークンの発行元であり、信頼判断の唯一の権威となる。
package main

import (
	"log"
	"os"

	"github.com/nao1215/authgate/internal/auth"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	server, err := auth.NewServer(port)
	if err != nil {
		log.Fatalf("認証サーバーの初期化に失敗: %v", err)
	}

	log.Printf("認証サービスを起動します: :%s", port)
	if err := server.Run(); err != nil {
		log.Fatalf("認証サービスの起動に失敗: %v", err)
	}
}
