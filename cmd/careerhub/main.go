package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/hitoshi/careerhub/internal/app"
)

func main() {
	// ローカル開発用。.envがない環境（本番コンテナ等）ではエラーを無視する。
	_ = godotenv.Load()

	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "careerhub: %v\n", err)
		os.Exit(1)
	}
}
