package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokengen mints admin JWTs for exercising the dashboard API locally.
func main() {
	// Parse command line flags
	secret := flag.String("secret", "very-secure-jwt-secret", "Secret key for signing the token")
	issuer := flag.String("issuer", "simple-dashboard", "Issuer of the token")
	subject := flag.String("subject", "", "Subject of the token (admin user ID)")
	email := flag.String("email", "admin@example.com", "Admin email claim")
	firstName := flag.String("first-name", "Admin", "Admin first name claim")
	lastName := flag.String("last-name", "User", "Admin last name claim")
	roles := flag.String("roles", "admin", "Comma separated role claims")
	expiry := flag.Duration("expiry", 30*time.Minute, "Token expiry duration (e.g., 30m, 1h, 24h)")
	outputFormat := flag.String("format", "compact", "Output format: compact or full")
	flag.Parse()

	if *subject == "" {
		fmt.Fprintf(os.Stderr, "Error: -subject is required (admin user ID)\n")
		os.Exit(1)
	}

	now := time.Now()
	expiryTime := now.Add(*expiry)
	claims := jwt.MapClaims{
		"iss":        *issuer,
		"sub":        *subject,
		"email":      *email,
		"first_name": *firstName,
		"last_name":  *lastName,
		"roles":      strings.Split(*roles, ","),
		"iat":        now.Unix(),
		"exp":        expiryTime.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString([]byte(*secret))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to sign token: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "compact":
		fmt.Println(tokenStr)
	case "full":
		claimsJSON, _ := json.MarshalIndent(claims, "", "  ")
		fmt.Printf("Token: %s\n\n=== Token Claims ===\n%s\n\nExpires: %s\n",
			tokenStr, claimsJSON, expiryTime.Format(time.RFC3339))
	default:
		fmt.Fprintf(os.Stderr, "Error: Unknown output format: %s\n", *outputFormat)
		os.Exit(1)
	}
}
