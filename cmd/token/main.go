// Command token issues a bearer token for a user id, signed with the
// server's secret. Without an argument a new user id is generated.
//
//	token [-s secret] [-t minutes] [user-id]
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/plantcare/internal/flagx"
	"github.com/dmitrijs2005/plantcare/internal/server/auth"
	"github.com/dmitrijs2005/plantcare/internal/server/config"
)

func main() {

	cfg := config.LoadConfig()

	userID := uuid.NewString()
	if rest := flagx.StripArgs(os.Args[1:], append(config.Flags, flagx.ConfigFlags...)); len(rest) > 0 {
		userID = rest[0]
	}

	token, err := auth.GenerateToken(userID, []byte(cfg.SecretKey), cfg.TokenValidityDuration)
	if err != nil {
		log.Fatalf("%v", err)
	}

	fmt.Fprintf(os.Stderr, "user %s, valid for %s\n", userID, cfg.TokenValidityDuration)
	fmt.Println(token)

}
