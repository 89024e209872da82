// Command hash-token prints the bcrypt hash of an API token, for use
// as the API_TOKEN_HASH environment variable.
package main

import (
	"fmt"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	if len(os.Args) != 2 {
		log.Fatalf("usage: %s <token>", os.Args[0])
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(os.Args[1]), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("Failed to hash token:", err)
	}
	fmt.Println(string(hash))
}
