// Command token issues an operator JWT for the /v1 endpoints.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	jwtmw "parking_backend/internal/platform/jwt"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] .env not found; using system environment variables")
	}

	subject := flag.String("sub", "operator", "token subject (operator e-mail or device id)")
	role := flag.String("role", "operator", "role claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv(jwtmw.EnvKeyJWTSecret)
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	token, err := jwtmw.NewGenerator(secret, *ttl).GenerateToken(*subject, *role)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(token)
}
