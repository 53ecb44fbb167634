// Command hashkey prints a bcrypt digest of an API key for AUTH_API_KEY_BCRYPT.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spec-kit/ticket-intake/internal/auth"
)

func main() {
	key := ""
	if len(os.Args) > 1 {
		key = os.Args[1]
	} else {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(os.Stderr, "usage: hashkey <api-key>  (or pipe the key on stdin)")
			os.Exit(2)
		}
		key = strings.TrimSpace(line)
	}
	if key == "" {
		fmt.Fprintln(os.Stderr, "empty key")
		os.Exit(2)
	}

	hashed, err := auth.HashAPIKey(key, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash key: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(hashed)
}
