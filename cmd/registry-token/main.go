// Command registry-token issues a bearer token that lets its holder create
// mappings on behalf of an identity.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/vadimbarashkov/url-registry/internal/adapter/auth"
	"github.com/vadimbarashkov/url-registry/internal/config"
)

func main() {
	identity := flag.String("identity", "", "identity the token is issued for")
	flag.Parse()

	if *identity == "" {
		fmt.Fprintln(os.Stderr, "identity is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	token, err := auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL).Issue(*identity)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Println(token)
}
