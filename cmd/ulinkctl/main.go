// ulinkctl is a small command-line client for the ULink API, useful for
// smoke-testing an app key and for creating links from scripts.
//
// Configuration comes from the environment (a .env file is honored):
//
//	ULINK_API_KEY   app key (required)
//	ULINK_BASE_URL  API base URL (defaults to production)
//	ULINK_DEBUG     "1" or "true" for verbose SDK logging
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/mdp/qrterminal/v3"

	"github.com/mohn93/ulink-go/sdk"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	_ = godotenv.Load()

	apiKey := os.Getenv("ULINK_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("ULINK_API_KEY is not set")
	}
	debug := os.Getenv("ULINK_DEBUG") == "1" || os.Getenv("ULINK_DEBUG") == "true"

	args := os.Args[1:]
	if len(args) == 0 {
		return fmt.Errorf("usage: ulinkctl <create|resolve> [flags]")
	}

	client := sdk.New(sdk.Config{
		APIKey:  apiKey,
		BaseURL: os.Getenv("ULINK_BASE_URL"),
		Debug:   debug,

		// A CLI run is not an app install; skip deferred matching.
		DisableDeferredLinkCheck: true,
	})
	defer client.Dispose()

	if err := client.Initialize(); err != nil {
		return fmt.Errorf("initialize SDK: %w", err)
	}

	switch args[0] {
	case "create":
		return runCreate(client, args[1:])
	case "resolve":
		return runResolve(client, args[1:])
	default:
		return fmt.Errorf("unknown command %q (expected create or resolve)", args[0])
	}
}

func runCreate(client *sdk.Client, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	linkType := fs.String("type", "dynamic", "link type: dynamic or unified")
	domain := fs.String("domain", "", "link domain (required)")
	slug := fs.String("slug", "", "custom slug (optional)")
	name := fs.String("name", "", "link name (optional)")
	iosURL := fs.String("ios", "", "iOS URL (required for unified links)")
	androidURL := fs.String("android", "", "Android URL (required for unified links)")
	fallback := fs.String("fallback", "", "fallback URL (required)")
	qr := fs.Bool("qr", false, "print the created link as a terminal QR code")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var params sdk.LinkParameters
	switch *linkType {
	case "dynamic":
		params = sdk.DynamicLink(*domain, *fallback)
	case "unified":
		params = sdk.UnifiedLink(*domain, *iosURL, *androidURL, *fallback)
	default:
		return fmt.Errorf("invalid -type %q", *linkType)
	}
	params.Slug = *slug
	params.Name = *name

	res, err := client.CreateLink(params)
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("create link: %s", res.Error)
	}
	fmt.Println(res.URL)
	if *qr {
		qrterminal.GenerateHalfBlock(res.URL, qrterminal.L, os.Stdout)
	}
	return nil
}

func runResolve(client *sdk.Client, args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: ulinkctl resolve <url>")
	}

	res, err := client.ResolveLink(fs.Arg(0))
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("resolve link: %s", res.Error)
	}
	encoded, err := json.MarshalIndent(res.Data, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}
