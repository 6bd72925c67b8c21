package main

import (
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"
)

// Generates an API key and the bcrypt hash expected in API_KEY_HASH.
// The plain key goes to the integration partner, the hash goes to config.
func main() {
	var (
		key  string
		cost int
	)

	flag.StringVar(&key, "key", "", "API key to hash (generated when empty)")
	flag.IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost factor")
	flag.Parse()

	if key == "" {
		raw := make([]byte, 32)
		if _, err := rand.Read(raw); err != nil {
			log.Fatalf("failed to generate key: %v", err)
		}
		key = base64.RawURLEncoding.EncodeToString(raw)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		log.Fatalf("failed to hash key: %v", err)
	}

	fmt.Printf("API key:       %s\n", key)
	fmt.Printf("API_KEY_HASH:  %s\n", string(hash))
}
